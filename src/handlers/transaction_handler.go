package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"finlense-server/src/ledger"
)

func CreateTransaction(accounts *ledger.Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		var req ledger.NewTransaction
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Printf("ERROR: Failed to decode create transaction request body for user %s: %v", userID, err)
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		req.UserID = userID

		txn, err := accounts.CreateTransaction(r.Context(), req)
		if err != nil {
			writeLedgerError(w, err, "create transaction")
			return
		}
		log.Printf("INFO: Created transaction %s on account %s for user %s", txn.ID, txn.AccountID, userID)
		writeJSON(w, http.StatusCreated, txn)
	}
}

func BulkDeleteTransactions(accounts *ledger.Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		var req struct {
			IDs []string `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Printf("ERROR: Failed to decode bulk delete request body for user %s: %v", userID, err)
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		deleted, err := accounts.BulkDeleteTransactions(r.Context(), userID, req.IDs)
		if err != nil {
			writeLedgerError(w, err, "delete transactions")
			return
		}
		log.Printf("INFO: Deleted %d transactions for user %s", deleted, userID)
		writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
	}
}
