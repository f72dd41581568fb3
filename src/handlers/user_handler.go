package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"finlense-server/src/ledger"
	"finlense-server/src/models"
)

type UserReader interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

func GetCurrentUser(users UserReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		user, err := users.GetUser(r.Context(), userID)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				http.Error(w, "user not found", http.StatusNotFound)
				return
			}
			log.Printf("ERROR: Failed to get user - user_id: %s: %v", userID, err)
			http.Error(w, "failed to get user", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, user)
	}
}
