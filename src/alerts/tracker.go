// Package alerts tracks spending against monthly budgets and emails the owner once
// per calendar month when spending crosses the alert threshold.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finlense-server/src/ledger"
	"finlense-server/src/models"

	"github.com/shopspring/decimal"
)

var (
	ErrNoDefaultAccount  = errors.New("no default account")
	ErrNonPositiveBudget = errors.New("budget amount must be positive")
	hundred              = decimal.NewFromInt(100)
)

type AccountResolver interface {
	GetDefaultAccount(ctx context.Context, userID string) (*models.Account, error)
}

type ExpenseSource interface {
	// SumExpenses totals EXPENSE entries on the account dated in [from, to].
	SumExpenses(ctx context.Context, userID, accountID string, from, to time.Time) (decimal.Decimal, error)
}

type Status struct {
	Budget         models.Budget   `json:"budget"`
	Account        models.Account  `json:"account"`
	TotalExpenses  decimal.Decimal `json:"total_expenses"`
	PercentageUsed decimal.Decimal `json:"percentage_used"`
	Remaining      decimal.Decimal `json:"remaining"`
}

type Tracker struct {
	accounts AccountResolver
	expenses ExpenseSource
	now      func() time.Time
}

func NewTracker(accounts AccountResolver, expenses ExpenseSource, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{accounts: accounts, expenses: expenses, now: now}
}

// Status measures month-to-date spending on the owner's default account.
func (t *Tracker) Status(ctx context.Context, budget models.Budget) (*Status, error) {
	if !budget.Amount.IsPositive() {
		return nil, ErrNonPositiveBudget
	}

	account, err := t.accounts.GetDefaultAccount(ctx, budget.UserID)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, ErrNoDefaultAccount
	}
	if err != nil {
		return nil, fmt.Errorf("resolve default account for user %s: %w", budget.UserID, err)
	}

	now := t.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	spent, err := t.expenses.SumExpenses(ctx, budget.UserID, account.ID, start, now)
	if err != nil {
		return nil, fmt.Errorf("sum expenses for account %s: %w", account.ID, err)
	}

	return &Status{
		Budget:         budget,
		Account:        *account,
		TotalExpenses:  spent,
		PercentageUsed: spent.Div(budget.Amount).Mul(hundred),
		Remaining:      budget.Amount.Sub(spent),
	}, nil
}
