package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finlense-server/src/alerts"
	"finlense-server/src/db/memory"
	"finlense-server/src/events"
	"finlense-server/src/ledger"
	"finlense-server/src/middleware"
	"finlense-server/src/models"
	"finlense-server/src/reports"
	"finlense-server/src/scheduler"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const testUser = "user-1"

var testNow = time.Date(2026, time.March, 20, 12, 0, 0, 0, time.UTC)

func authed(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(middleware.WithUserID(req.Context(), testUser))
}

func withParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestHandlersRequireUser(t *testing.T) {
	accounts := ledger.NewAccounts(memory.NewStore(), nil)
	for name, h := range map[string]http.HandlerFunc{
		"create account":     CreateAccount(accounts),
		"create transaction": CreateTransaction(accounts),
		"bulk delete":        BulkDeleteTransactions(accounts),
	} {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}")))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", name, rec.Code)
		}
	}
}

func TestAccountAndTransactionFlow(t *testing.T) {
	store := memory.NewStore()
	accounts := ledger.NewAccounts(store, func() time.Time { return testNow })

	rec := httptest.NewRecorder()
	CreateAccount(accounts)(rec, authed(http.MethodPost, "/api/accounts", `{"name":"Checking","balance":"1000.00"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create account status = %d: %s", rec.Code, rec.Body)
	}
	var account models.Account
	if err := json.NewDecoder(rec.Body).Decode(&account); err != nil {
		t.Fatal(err)
	}
	if !account.IsDefault || !account.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("account = %+v, want default with balance 1000", account)
	}

	rec = httptest.NewRecorder()
	body := `{"account_id":"` + account.ID + `","type":"EXPENSE","amount":"50.00","category":"rent","date":"2026-03-15T00:00:00Z"}`
	CreateTransaction(accounts)(rec, authed(http.MethodPost, "/api/transactions", body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction status = %d: %s", rec.Code, rec.Body)
	}
	var txn models.Transaction
	if err := json.NewDecoder(rec.Body).Decode(&txn); err != nil {
		t.Fatal(err)
	}

	got, _ := store.GetAccount(context.Background(), account.ID)
	if !got.Balance.Equal(decimal.NewFromInt(950)) {
		t.Fatalf("balance = %s, want 950", got.Balance)
	}

	rec = httptest.NewRecorder()
	BulkDeleteTransactions(accounts)(rec, authed(http.MethodPost, "/api/transactions/bulk-delete", `{"ids":["`+txn.ID+`","missing"]}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("bulk delete status = %d: %s", rec.Code, rec.Body)
	}
	var deleted map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&deleted); err != nil {
		t.Fatal(err)
	}
	if deleted["deleted"] != 1 {
		t.Fatalf("deleted = %v, want 1", deleted)
	}
	got, _ = store.GetAccount(context.Background(), account.ID)
	if !got.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("balance after delete = %s, want 1000", got.Balance)
	}
}

func TestCreateTransactionErrors(t *testing.T) {
	store := memory.NewStore()
	store.AddAccount(models.Account{ID: "acc-1", UserID: testUser, Name: "Main", Type: models.AccountCurrent, IsDefault: true})
	accounts := ledger.NewAccounts(store, nil)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed", `{"amount":`, http.StatusBadRequest},
		{"negative amount", `{"account_id":"acc-1","type":"EXPENSE","amount":"-5","category":"food"}`, http.StatusBadRequest},
		{"bad type", `{"account_id":"acc-1","type":"TRANSFER","amount":"5","category":"food"}`, http.StatusBadRequest},
		{"unknown interval", `{"account_id":"acc-1","type":"EXPENSE","amount":"5","category":"food","is_recurring":true,"recurring_interval":"HOURLY"}`, http.StatusBadRequest},
		{"unknown account", `{"account_id":"acc-9","type":"EXPENSE","amount":"5","category":"food"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			CreateTransaction(accounts)(rec, authed(http.MethodPost, "/api/transactions", tc.body))
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tc.want, rec.Body)
			}
		})
	}
}

func TestBulkDeleteRequiresIDs(t *testing.T) {
	rec := httptest.NewRecorder()
	BulkDeleteTransactions(ledger.NewAccounts(memory.NewStore(), nil))(rec, authed(http.MethodPost, "/", `{"ids":[]}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSetDefaultAccount(t *testing.T) {
	store := memory.NewStore()
	store.AddAccount(models.Account{ID: "acc-1", UserID: testUser, Name: "Main", Type: models.AccountCurrent, IsDefault: true})
	store.AddAccount(models.Account{ID: "acc-2", UserID: testUser, Name: "Savings", Type: models.AccountSavings})
	accounts := ledger.NewAccounts(store, nil)

	rec := httptest.NewRecorder()
	SetDefaultAccount(accounts)(rec, withParam(authed(http.MethodPut, "/", ""), "account_id", "acc-2"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	def, err := store.GetDefaultAccount(context.Background(), testUser)
	if err != nil || def.ID != "acc-2" {
		t.Fatalf("default = %+v, %v; want acc-2", def, err)
	}

	rec = httptest.NewRecorder()
	SetDefaultAccount(accounts)(rec, withParam(authed(http.MethodPut, "/", ""), "account_id", "acc-404"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown account status = %d, want 404", rec.Code)
	}
}

func TestBudgetUpsertAndStatus(t *testing.T) {
	store := memory.NewStore()
	tracker := alerts.NewTracker(store, store, func() time.Time { return testNow })

	rec := httptest.NewRecorder()
	GetBudget(store, tracker)(rec, authed(http.MethodGet, "/api/budget", ""))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing budget status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	UpsertBudget(store)(rec, authed(http.MethodPut, "/api/budget", `{"amount":"0"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("zero budget status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	UpsertBudget(store)(rec, authed(http.MethodPut, "/api/budget", `{"amount":"500.00"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert status = %d: %s", rec.Code, rec.Body)
	}

	// No default account yet: budget is returned without a status.
	rec = httptest.NewRecorder()
	GetBudget(store, tracker)(rec, authed(http.MethodGet, "/api/budget", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d: %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), `"status":null`) {
		t.Fatalf("expected null status, got %s", rec.Body)
	}

	store.AddAccount(models.Account{ID: "acc-1", UserID: testUser, Name: "Main", Type: models.AccountCurrent, IsDefault: true})
	store.AddTransaction(models.Transaction{
		ID: "t1", UserID: testUser, AccountID: "acc-1", Type: models.Expense,
		Amount: decimal.NewFromInt(400), Category: "rent", Date: testNow.Add(-24 * time.Hour),
	})

	rec = httptest.NewRecorder()
	GetBudget(store, tracker)(rec, authed(http.MethodGet, "/api/budget", ""))
	var resp struct {
		Budget models.Budget `json:"budget"`
		Status *alerts.Status `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status == nil {
		t.Fatal("expected a status once a default account exists")
	}
	if !resp.Status.PercentageUsed.Equal(decimal.NewFromInt(80)) || !resp.Status.Remaining.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("status = %+v, want 80%% used and 100 remaining", resp.Status)
	}
}

func TestGetCurrentUser(t *testing.T) {
	store := memory.NewStore()
	store.AddUser(models.User{ID: testUser, Email: "ada@example.com", Name: "Ada"})

	rec := httptest.NewRecorder()
	GetCurrentUser(store)(rec, authed(http.MethodGet, "/api/user", ""))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ada@example.com") {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), "ghost"))
	rec = httptest.NewRecorder()
	GetCurrentUser(store)(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown user status = %d, want 404", rec.Code)
	}
}

type fakeJobs struct {
	trigger   scheduler.TriggerResult
	outcome   ledger.Outcome
	err       error
	processed []events.RecurringProcess
}

func (f *fakeJobs) Trigger(ctx context.Context) (scheduler.TriggerResult, error) {
	return f.trigger, f.err
}

func (f *fakeJobs) Process(ctx context.Context, ev events.RecurringProcess) (ledger.Outcome, error) {
	f.processed = append(f.processed, ev)
	return f.outcome, f.err
}

type reportRunner struct {
	summary reports.ReportSummary
	err     error
}

func (r reportRunner) Run(ctx context.Context) (reports.ReportSummary, error) { return r.summary, r.err }

type alertRunner struct {
	summary alerts.AlertSummary
	err     error
}

func (r alertRunner) Run(ctx context.Context) (alerts.AlertSummary, error) { return r.summary, r.err }

func TestJobHandlers(t *testing.T) {
	jobs := &fakeJobs{trigger: scheduler.TriggerResult{Triggered: 3}, outcome: ledger.OutcomeProcessed}

	rec := httptest.NewRecorder()
	TriggerRecurring(jobs)(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusAccepted || !strings.Contains(rec.Body.String(), `"triggered":3`) {
		t.Fatalf("trigger: status = %d body = %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	ProcessRecurring(jobs)(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"transactionId":"t1","userId":"u1"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("process: status = %d body = %s", rec.Code, rec.Body)
	}
	if len(jobs.processed) != 1 || jobs.processed[0].TransactionID != "t1" || jobs.processed[0].UserID != "u1" {
		t.Fatalf("processed = %+v", jobs.processed)
	}

	jobs.err = ledger.ErrInvalidRequest
	rec = httptest.NewRecorder()
	ProcessRecurring(jobs)(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid process status = %d, want 400", rec.Code)
	}

	jobs.err = errors.New("db down")
	rec = httptest.NewRecorder()
	TriggerRecurring(jobs)(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("failing trigger status = %d, want 500", rec.Code)
	}

	rec = httptest.NewRecorder()
	RunMonthlyReport(reportRunner{summary: reports.ReportSummary{Processed: 2, Succeeded: 2}})(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"succeeded":2`) {
		t.Fatalf("monthly report: status = %d body = %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	RunBudgetAlerts(alertRunner{err: errors.New("boom")})(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("budget alerts status = %d, want 500", rec.Code)
	}
}
