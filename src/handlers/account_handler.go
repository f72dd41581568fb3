package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"finlense-server/src/db"
	"finlense-server/src/ledger"

	"github.com/go-chi/chi/v5"
)

func CreateAccount(accounts *ledger.Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		var req ledger.NewAccount
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Printf("ERROR: Failed to decode create account request body for user %s: %v", userID, err)
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		req.UserID = userID

		account, err := accounts.CreateAccount(r.Context(), req)
		if err != nil {
			writeLedgerError(w, err, "create account")
			return
		}
		if account.IsDefault {
			db.InvalidateDefaultAccount(userID)
		}
		log.Printf("INFO: Created account %s for user %s (default: %t)", account.ID, userID, account.IsDefault)
		writeJSON(w, http.StatusCreated, account)
	}
}

func SetDefaultAccount(accounts *ledger.Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		accountID := chi.URLParam(r, "account_id")

		account, err := accounts.SetDefaultAccount(r.Context(), userID, accountID)
		if err != nil {
			writeLedgerError(w, err, "update default account")
			return
		}
		db.InvalidateDefaultAccount(userID)
		log.Printf("INFO: Account %s is now the default for user %s", accountID, userID)
		writeJSON(w, http.StatusOK, account)
	}
}
