package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"finlense-server/src/ledger"
	"finlense-server/src/middleware"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
	}
}

// writeLedgerError maps ledger errors onto status codes. Validation messages are
// returned to the caller; anything else is logged and hidden.
func writeLedgerError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, ledger.ErrInvalidRequest):
		http.Error(w, strings.TrimPrefix(err.Error(), ledger.ErrInvalidRequest.Error()+": "), http.StatusBadRequest)
	case errors.Is(err, ledger.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		log.Printf("ERROR: Failed to %s: %v", action, err)
		http.Error(w, "failed to "+action, http.StatusInternalServerError)
	}
}

// requireUser returns the authenticated user id, answering 401 when there is none.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
	return userID, ok
}
