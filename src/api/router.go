package api

import (
	"net/http"

	"finlense-server/src/handlers"
	"finlense-server/src/ledger"
	"finlense-server/src/middleware"

	"github.com/go-chi/chi/v5"
)

type Deps struct {
	Accounts *ledger.Accounts
	Budgets  handlers.BudgetStore
	Users    handlers.UserReader
	Tracker  handlers.BudgetTracker

	Recurring     handlers.RecurringJobs
	MonthlyReport handlers.MonthlyReportRunner
	BudgetAlerts  handlers.BudgetAlertRunner

	JWTSecret    string
	JobTokenHash string
	CORSOrigins  []string
	ReadOnly     bool
}

func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware(d.CORSOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		// Job triggers
		r.With(middleware.JobTokenMiddleware(d.JobTokenHash)).Route("/jobs", func(r chi.Router) {
			r.Post("/recurring", handlers.TriggerRecurring(d.Recurring))
			r.Post("/recurring/process", handlers.ProcessRecurring(d.Recurring))
			r.Post("/monthly-report", handlers.RunMonthlyReport(d.MonthlyReport))
			r.Post("/budget-alerts", handlers.RunBudgetAlerts(d.BudgetAlerts))
		})

		// Protected routes
		r.With(middleware.JWTAuthMiddleware(d.JWTSecret), middleware.ReadOnlyMiddleware(d.ReadOnly)).Group(func(r chi.Router) {
			// User
			r.Get("/user", handlers.GetCurrentUser(d.Users))

			// Accounts
			r.Post("/accounts", handlers.CreateAccount(d.Accounts))
			r.Put("/accounts/{account_id}/default", handlers.SetDefaultAccount(d.Accounts))

			// Transactions
			r.Post("/transactions", handlers.CreateTransaction(d.Accounts))
			r.Post("/transactions/bulk-delete", handlers.BulkDeleteTransactions(d.Accounts))

			// Budget
			r.Put("/budget", handlers.UpsertBudget(d.Budgets))
			r.Get("/budget", handlers.GetBudget(d.Budgets, d.Tracker))
		})
	})

	return r
}
