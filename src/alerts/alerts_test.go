package alerts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"finlense-server/src/db/memory"
	"finlense-server/src/mail"
	"finlense-server/src/models"

	"github.com/shopspring/decimal"
)

var now = time.Date(2026, time.March, 20, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

type recordingMailer struct {
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func expense(id, account, amount string, date time.Time) models.Transaction {
	return models.Transaction{
		ID: id, UserID: "u1", AccountID: account, Type: models.Expense,
		Amount: decimal.RequireFromString(amount), Category: "misc", Date: date,
		Status: models.StatusCompleted,
	}
}

func seed(budget string, lastAlert *time.Time) *memory.Store {
	store := memory.NewStore()
	store.AddUser(models.User{ID: "u1", Email: "ana@example.com", Name: "Ana"})
	store.AddAccount(models.Account{ID: "checking", UserID: "u1", Name: "Checking", IsDefault: true})
	store.AddAccount(models.Account{ID: "savings", UserID: "u1", Name: "Savings"})
	store.AddBudget(models.Budget{ID: "b1", UserID: "u1", Amount: decimal.RequireFromString(budget), LastAlertSent: lastAlert})

	store.AddTransaction(expense("t1", "checking", "300", time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)))
	store.AddTransaction(expense("t2", "checking", "150", time.Date(2026, time.March, 19, 0, 0, 0, 0, time.UTC)))
	// Ignored: last month, not yet happened, another account, income.
	store.AddTransaction(expense("t3", "checking", "400", time.Date(2026, time.February, 28, 23, 0, 0, 0, time.UTC)))
	store.AddTransaction(expense("t4", "checking", "400", time.Date(2026, time.March, 25, 0, 0, 0, 0, time.UTC)))
	store.AddTransaction(expense("t5", "savings", "400", time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)))
	income := expense("t6", "checking", "1000", time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC))
	income.Type = models.Income
	store.AddTransaction(income)
	return store
}

func newJob(store *memory.Store, mailer mail.Mailer) *BudgetAlertJob {
	tracker := NewTracker(store, store, clock)
	return NewBudgetAlertJob(store, tracker, mailer, clock, 10)
}

func TestTrackerStatus(t *testing.T) {
	store := seed("500", nil)
	budget, _ := store.GetBudgetByUser(context.Background(), "u1")

	status, err := NewTracker(store, store, clock).Status(context.Background(), *budget)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.TotalExpenses.Equal(decimal.NewFromInt(450)) {
		t.Errorf("expenses = %s, want 450", status.TotalExpenses)
	}
	if !status.PercentageUsed.Equal(decimal.NewFromInt(90)) {
		t.Errorf("percentage = %s, want 90", status.PercentageUsed)
	}
	if !status.Remaining.Equal(decimal.NewFromInt(50)) || status.Account.ID != "checking" {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestTrackerStatusErrors(t *testing.T) {
	store := memory.NewStore()
	tracker := NewTracker(store, store, clock)

	_, err := tracker.Status(context.Background(), models.Budget{UserID: "u1", Amount: decimal.NewFromInt(100)})
	if !errors.Is(err, ErrNoDefaultAccount) {
		t.Fatalf("err = %v, want ErrNoDefaultAccount", err)
	}
	_, err = tracker.Status(context.Background(), models.Budget{UserID: "u1", Amount: decimal.Zero})
	if !errors.Is(err, ErrNonPositiveBudget) {
		t.Fatalf("err = %v, want ErrNonPositiveBudget", err)
	}
}

func TestBudgetAlertSentOncePerMonth(t *testing.T) {
	store := seed("500", nil)
	mailer := &recordingMailer{}
	job := newJob(store, mailer)

	summary, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Alerted != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].To != "ana@example.com" || mailer.sent[0].Subject != "Budget Alert for Checking" {
		t.Fatalf("sent = %+v", mailer.sent)
	}
	budget, _ := store.GetBudgetByUser(context.Background(), "u1")
	if budget.LastAlertSent == nil || !budget.LastAlertSent.Equal(now) {
		t.Fatalf("last alert = %v, want %s", budget.LastAlertSent, now)
	}

	summary, err = job.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Alerted != 0 || summary.Skipped != 1 || len(mailer.sent) != 1 {
		t.Fatalf("second run alerted again: %+v, %d emails", summary, len(mailer.sent))
	}
}

func TestBudgetAlertConditions(t *testing.T) {
	lastMonth := time.Date(2026, time.February, 27, 0, 0, 0, 0, time.UTC)
	lastYear := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
	earlier := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		budget    string
		lastAlert *time.Time
		wantSent  bool
	}{
		{"at threshold", "562.50", nil, true},
		{"below threshold", "563", nil, false},
		{"alerted last month", "500", &lastMonth, true},
		{"alerted same month last year", "500", &lastYear, true},
		{"already alerted this month", "500", &earlier, false},
		{"zero budget", "0", nil, false},
		{"over budget", "100", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seed(tt.budget, tt.lastAlert)
			mailer := &recordingMailer{}

			summary, err := newJob(store, mailer).Run(context.Background())
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if sent := len(mailer.sent) == 1; sent != tt.wantSent {
				t.Fatalf("sent = %v, want %v (summary %+v)", sent, tt.wantSent, summary)
			}
			if summary.Failed != 0 {
				t.Fatalf("summary = %+v", summary)
			}
		})
	}
}

func TestBudgetAlertSendFailureIsNotRecorded(t *testing.T) {
	store := seed("500", nil)
	mailer := &recordingMailer{err: errors.New("provider down")}

	summary, err := newJob(store, mailer).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 1 || summary.Alerted != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	budget, _ := store.GetBudgetByUser(context.Background(), "u1")
	if budget.LastAlertSent != nil {
		t.Fatal("alert recorded although the email was not sent")
	}

	mailer.err = nil
	summary, _ = newJob(store, mailer).Run(context.Background())
	if summary.Alerted != 1 {
		t.Fatalf("retry run summary = %+v, want the alert sent", summary)
	}
}

type slowMailer struct {
	mu    sync.Mutex
	delay time.Duration
	sent  int
}

func (m *slowMailer) Send(ctx context.Context, msg mail.Message) error {
	time.Sleep(m.delay)
	m.mu.Lock()
	m.sent++
	m.mu.Unlock()
	return nil
}

func TestConcurrentBudgetAlertRunsSendOnce(t *testing.T) {
	store := seed("500", nil)
	mailer := &slowMailer{delay: 50 * time.Millisecond}

	var wg sync.WaitGroup
	summaries := make([]AlertSummary, 2)
	for i := range summaries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			summary, err := newJob(store, mailer).Run(context.Background())
			if err != nil {
				t.Errorf("Run: %v", err)
			}
			summaries[i] = summary
		}(i)
	}
	wg.Wait()

	if mailer.sent != 1 {
		t.Fatalf("%d alert emails for one budget in one month, want 1", mailer.sent)
	}
	if summaries[0].Alerted+summaries[1].Alerted != 1 || summaries[0].Skipped+summaries[1].Skipped != 1 {
		t.Fatalf("summaries = %+v", summaries)
	}
}

func TestBudgetAlertSendFailureRestoresPreviousAlert(t *testing.T) {
	lastMonth := time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)
	store := seed("500", &lastMonth)

	summary, _ := newJob(store, &recordingMailer{err: errors.New("provider down")}).Run(context.Background())
	if summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	budget, _ := store.GetBudgetByUser(context.Background(), "u1")
	if budget.LastAlertSent == nil || !budget.LastAlertSent.Equal(lastMonth) {
		t.Fatalf("last alert = %v, want %s restored", budget.LastAlertSent, lastMonth)
	}
}

func TestClaimBudgetAlert(t *testing.T) {
	store := seed("500", nil)
	ctx := context.Background()

	won, err := store.ClaimBudgetAlert(ctx, "b1", now)
	if err != nil || !won {
		t.Fatalf("first claim = %t, %v", won, err)
	}
	if won, _ := store.ClaimBudgetAlert(ctx, "b1", now.Add(time.Hour)); won {
		t.Fatal("second claim in the same month succeeded")
	}
	if won, _ := store.ClaimBudgetAlert(ctx, "b1", now.AddDate(0, 1, 0)); !won {
		t.Fatal("claim in the next month was refused")
	}

	// A release only undoes the caller's own claim.
	if err := store.ReleaseBudgetAlert(ctx, "b1", now, nil); err != nil {
		t.Fatal(err)
	}
	budget, _ := store.GetBudgetByUser(ctx, "u1")
	if budget.LastAlertSent == nil || !budget.LastAlertSent.Equal(now.AddDate(0, 1, 0)) {
		t.Fatalf("stale release overwrote the current claim: %v", budget.LastAlertSent)
	}
}

func TestBudgetAlertSkipsUsersWithoutDefaultAccount(t *testing.T) {
	store := memory.NewStore()
	store.AddUser(models.User{ID: "u2", Email: "bo@example.com"})
	store.AddBudget(models.Budget{ID: "b2", UserID: "u2", Amount: decimal.NewFromInt(10)})
	mailer := &recordingMailer{}

	summary, err := newJob(store, mailer).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Skipped != 1 || summary.Failed != 0 || len(mailer.sent) != 0 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestAlertedThisMonthUsesNowLocation(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	local := time.Date(2026, time.April, 1, 2, 0, 0, 0, loc)
	// 2026-03-31 17:00 UTC is already April in UTC+9.
	last := time.Date(2026, time.March, 31, 17, 0, 0, 0, time.UTC)
	if !AlertedThisMonth(&last, local) {
		t.Fatal("expected the alert to count for April in UTC+9")
	}
	if AlertedThisMonth(nil, local) {
		t.Fatal("nil last alert must not count")
	}
}
