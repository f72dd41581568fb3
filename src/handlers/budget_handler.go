package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"finlense-server/src/alerts"
	"finlense-server/src/ledger"
	"finlense-server/src/models"
	"finlense-server/src/util"

	"github.com/shopspring/decimal"
)

type BudgetStore interface {
	UpsertBudget(ctx context.Context, userID string, amount decimal.Decimal) (*models.Budget, error)
	GetBudgetByUser(ctx context.Context, userID string) (*models.Budget, error)
}

type BudgetTracker interface {
	Status(ctx context.Context, budget models.Budget) (*alerts.Status, error)
}

func UpsertBudget(store BudgetStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		var req struct {
			Amount decimal.Decimal `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Printf("ERROR: Failed to decode budget request body for user %s: %v", userID, err)
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if !util.ValidateAmount(req.Amount) {
			http.Error(w, "amount must be positive with at most two decimals", http.StatusBadRequest)
			return
		}

		budget, err := store.UpsertBudget(r.Context(), userID, req.Amount)
		if err != nil {
			log.Printf("ERROR: Failed to save budget for user %s: %v", userID, err)
			http.Error(w, "failed to save budget", http.StatusInternalServerError)
			return
		}
		log.Printf("INFO: Saved budget %s for user %s, amount %s", budget.ID, userID, budget.Amount.StringFixed(2))
		writeJSON(w, http.StatusOK, budget)
	}
}

// GetBudget returns the budget with its month-to-date status. Status is null while the
// user has no default account.
func GetBudget(store BudgetStore, tracker BudgetTracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		budget, err := store.GetBudgetByUser(r.Context(), userID)
		if errors.Is(err, ledger.ErrNotFound) {
			http.Error(w, "budget not found", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Printf("ERROR: Failed to get budget for user %s: %v", userID, err)
			http.Error(w, "failed to get budget", http.StatusInternalServerError)
			return
		}

		status, err := tracker.Status(r.Context(), *budget)
		if err != nil && !errors.Is(err, alerts.ErrNoDefaultAccount) {
			log.Printf("ERROR: Failed to compute budget status for user %s: %v", userID, err)
			http.Error(w, "failed to get budget", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, struct {
			Budget *models.Budget `json:"budget"`
			Status *alerts.Status `json:"status"`
		}{budget, status})
	}
}
