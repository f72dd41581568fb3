package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"finlense-server/src/alerts"
	"finlense-server/src/events"
	"finlense-server/src/ledger"
	"finlense-server/src/reports"
	"finlense-server/src/scheduler"
)

type RecurringJobs interface {
	Trigger(ctx context.Context) (scheduler.TriggerResult, error)
	Process(ctx context.Context, ev events.RecurringProcess) (ledger.Outcome, error)
}

type MonthlyReportRunner interface {
	Run(ctx context.Context) (reports.ReportSummary, error)
}

type BudgetAlertRunner interface {
	Run(ctx context.Context) (alerts.AlertSummary, error)
}

func TriggerRecurring(jobs RecurringJobs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := jobs.Trigger(r.Context())
		if err != nil {
			log.Printf("ERROR: Recurring sweep failed: %v", err)
			http.Error(w, "failed to trigger recurring transactions", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusAccepted, result)
	}
}

// ProcessRecurring materializes a single occurrence, for callers that deliver the
// process event over HTTP instead of the bus.
func ProcessRecurring(jobs RecurringJobs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ev events.RecurringProcess
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			log.Printf("ERROR: Failed to decode recurring process request body: %v", err)
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		outcome, err := jobs.Process(r.Context(), ev)
		if err != nil {
			if errors.Is(err, ledger.ErrInvalidRequest) {
				http.Error(w, "transactionId and userId are required", http.StatusBadRequest)
				return
			}
			http.Error(w, "failed to process recurring transaction", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"outcome": outcome.String()})
	}
}

func RunMonthlyReport(job MonthlyReportRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := job.Run(r.Context())
		if err != nil {
			log.Printf("ERROR: Monthly report run failed: %v", err)
			http.Error(w, "monthly report run failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func RunBudgetAlerts(job BudgetAlertRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := job.Run(r.Context())
		if err != nil {
			log.Printf("ERROR: Budget alert run failed: %v", err)
			http.Error(w, "budget alert run failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}
