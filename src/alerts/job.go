package alerts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"finlense-server/src/mail"
	"finlense-server/src/models"
	"finlense-server/src/util"

	"github.com/shopspring/decimal"
)

// Threshold is the percentage of the budget at which the owner is alerted.
var Threshold = decimal.NewFromInt(80)

type BudgetSource interface {
	ListBudgets(ctx context.Context, afterID string, limit int) ([]models.Budget, error)
	// ClaimBudgetAlert sets LastAlertSent to at unless it already falls in at's calendar
	// month. It reports whether this caller won the month.
	ClaimBudgetAlert(ctx context.Context, budgetID string, at time.Time) (bool, error)
	// ReleaseBudgetAlert restores previous if the claim made at claimed is still current.
	ReleaseBudgetAlert(ctx context.Context, budgetID string, claimed time.Time, previous *time.Time) error
	GetUser(ctx context.Context, id string) (*models.User, error)
}

type AlertSummary struct {
	Checked int `json:"checked"`
	Alerted int `json:"alerted"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type BudgetAlertJob struct {
	budgets  BudgetSource
	tracker  *Tracker
	mailer   mail.Mailer
	now      func() time.Time
	pageSize int
}

func NewBudgetAlertJob(budgets BudgetSource, tracker *Tracker, mailer mail.Mailer, now func() time.Time, pageSize int) *BudgetAlertJob {
	if now == nil {
		now = time.Now
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	return &BudgetAlertJob{budgets: budgets, tracker: tracker, mailer: mailer, now: now, pageSize: pageSize}
}

// AlertedThisMonth reports whether last falls in the same calendar month as now.
func AlertedThisMonth(last *time.Time, now time.Time) bool {
	if last == nil {
		return false
	}
	l := last.In(now.Location())
	return l.Year() == now.Year() && l.Month() == now.Month()
}

// Run checks every budget. The month is claimed before the email goes out, so concurrent
// runs send one alert at most; a failed send releases the claim for the next run.
func (j *BudgetAlertJob) Run(ctx context.Context) (AlertSummary, error) {
	var summary AlertSummary
	cursor := ""
	for {
		budgets, err := j.budgets.ListBudgets(ctx, cursor, j.pageSize)
		if err != nil {
			return summary, fmt.Errorf("list budgets: %w", err)
		}
		for _, b := range budgets {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			summary.Checked++

			alerted, err := j.check(ctx, b)
			switch {
			case errors.Is(err, ErrNoDefaultAccount), errors.Is(err, ErrNonPositiveBudget):
				summary.Skipped++
			case err != nil:
				summary.Failed++
				log.Printf("ERROR: budget alert for budget %s (user %s): %v", b.ID, b.UserID, err)
			case alerted:
				summary.Alerted++
			default:
				summary.Skipped++
			}
		}
		if len(budgets) < j.pageSize {
			break
		}
		cursor = budgets[len(budgets)-1].ID
	}

	log.Printf("INFO: budget alerts: %d checked, %d alerted, %d skipped, %d errors", summary.Checked, summary.Alerted, summary.Skipped, summary.Failed)
	return summary, nil
}

func (j *BudgetAlertJob) check(ctx context.Context, b models.Budget) (bool, error) {
	status, err := j.tracker.Status(ctx, b)
	if err != nil {
		return false, err
	}
	now := j.now()
	if status.PercentageUsed.LessThan(Threshold) || AlertedThisMonth(b.LastAlertSent, now) {
		return false, nil
	}

	user, err := j.budgets.GetUser(ctx, b.UserID)
	if err != nil {
		return false, fmt.Errorf("load user: %w", err)
	}
	if !util.ValidateEmail(user.Email) {
		return false, fmt.Errorf("invalid email address %q", user.Email)
	}

	msg, err := mail.BudgetAlert(user.Email, mail.BudgetAlertData{
		Name:           user.Name,
		BudgetAmount:   b.Amount,
		TotalExpenses:  status.TotalExpenses,
		PercentageUsed: status.PercentageUsed,
		Remaining:      status.Remaining,
		AccountName:    status.Account.Name,
	})
	if err != nil {
		return false, err
	}

	claimed, err := j.budgets.ClaimBudgetAlert(ctx, b.ID, now)
	if err != nil {
		return false, fmt.Errorf("claim alert: %w", err)
	}
	if !claimed {
		return false, nil
	}
	if err := j.mailer.Send(ctx, msg); err != nil {
		if rerr := j.budgets.ReleaseBudgetAlert(context.WithoutCancel(ctx), b.ID, now, b.LastAlertSent); rerr != nil {
			log.Printf("ERROR: releasing alert claim on budget %s: %v", b.ID, rerr)
		}
		return false, err
	}
	log.Printf("INFO: budget alert sent to user %s at %s%% used", b.UserID, status.PercentageUsed.StringFixed(1))
	return true, nil
}
