package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"finlense-server/src/models"
	"finlense-server/src/recurrence"
	"finlense-server/src/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const openingBalanceCategory = "opening-balance"

type NewAccount struct {
	UserID         string             `json:"-"`
	Name           string             `json:"name"`
	Type           models.AccountType `json:"type"`
	OpeningBalance decimal.Decimal    `json:"balance"`
	IsDefault      bool               `json:"is_default"`
}

type NewTransaction struct {
	UserID            string                   `json:"-"`
	AccountID         string                   `json:"account_id"`
	Type              models.TransactionType   `json:"type"`
	Amount            decimal.Decimal          `json:"amount"`
	Description       string                   `json:"description"`
	Category          string                   `json:"category"`
	Date              time.Time                `json:"date"`
	IsRecurring       bool                     `json:"is_recurring"`
	RecurringInterval models.RecurringInterval `json:"recurring_interval"`
}

// Accounts implements the user-initiated ledger writes. Each method is one store transaction.
type Accounts struct {
	store Store
	now   func() time.Time
}

func NewAccounts(store Store, now func() time.Time) *Accounts {
	if now == nil {
		now = time.Now
	}
	return &Accounts{store: store, now: now}
}

// CreateAccount creates an account with a zero balance and records a positive
// opening balance as an INCOME entry, so the balance always equals the entry sum.
// The owner's first account becomes the default.
func (a *Accounts) CreateAccount(ctx context.Context, in NewAccount) (*models.Account, error) {
	if in.UserID == "" || !util.ValidateName(in.Name) {
		return nil, fmt.Errorf("%w: account name is required", ErrInvalidRequest)
	}
	if in.Type == "" {
		in.Type = models.AccountCurrent
	}
	if in.Type != models.AccountCurrent && in.Type != models.AccountSavings {
		return nil, fmt.Errorf("%w: unknown account type %q", ErrInvalidRequest, in.Type)
	}
	if in.OpeningBalance.IsNegative() || !in.OpeningBalance.Equal(in.OpeningBalance.Round(2)) {
		return nil, fmt.Errorf("%w: opening balance must be a non-negative amount", ErrInvalidRequest)
	}

	now := a.now()
	account := &models.Account{
		ID:        uuid.New().String(),
		UserID:    in.UserID,
		Name:      strings.TrimSpace(in.Name),
		Type:      in.Type,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := a.store.WithTx(ctx, func(tx Tx) error {
		count, err := tx.CountAccounts(ctx, in.UserID)
		if err != nil {
			return fmt.Errorf("count accounts: %w", err)
		}
		if count == 0 || in.IsDefault {
			if err := tx.ClearDefaultAccount(ctx, in.UserID); err != nil {
				return fmt.Errorf("clear default account: %w", err)
			}
			account.IsDefault = true
		}
		if err := tx.InsertAccount(ctx, account); err != nil {
			return fmt.Errorf("insert account: %w", err)
		}
		if !in.OpeningBalance.IsPositive() {
			return nil
		}

		opening := &models.Transaction{
			ID:          uuid.New().String(),
			UserID:      in.UserID,
			AccountID:   account.ID,
			Type:        models.Income,
			Amount:      in.OpeningBalance,
			Description: "Opening balance",
			Category:    openingBalanceCategory,
			Date:        now,
			Status:      models.StatusCompleted,
		}
		if err := tx.InsertTransaction(ctx, opening); err != nil {
			return fmt.Errorf("insert opening balance: %w", err)
		}
		return tx.IncrementBalance(ctx, account.ID, opening.Amount)
	})
	if err != nil {
		return nil, err
	}
	account.Balance = in.OpeningBalance
	return account, nil
}

// SetDefaultAccount clears any prior default of the owner before marking the new one.
func (a *Accounts) SetDefaultAccount(ctx context.Context, userID, accountID string) (*models.Account, error) {
	var account *models.Account
	err := a.store.WithTx(ctx, func(tx Tx) error {
		var err error
		account, err = tx.GetAccountForUpdate(ctx, userID, accountID)
		if err != nil {
			return err
		}
		if account.IsDefault {
			return nil
		}
		if err := tx.ClearDefaultAccount(ctx, userID); err != nil {
			return fmt.Errorf("clear default account: %w", err)
		}
		if err := tx.MarkDefaultAccount(ctx, userID, accountID); err != nil {
			return fmt.Errorf("mark default account: %w", err)
		}
		account.IsDefault = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// CreateTransaction records a manual entry. Recurring entries become templates whose
// first occurrence is due one interval after the entry date.
func (a *Accounts) CreateTransaction(ctx context.Context, in NewTransaction) (*models.Transaction, error) {
	if in.UserID == "" || in.AccountID == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrInvalidRequest)
	}
	if in.Type != models.Income && in.Type != models.Expense {
		return nil, fmt.Errorf("%w: type must be INCOME or EXPENSE", ErrInvalidRequest)
	}
	if !util.ValidateAmount(in.Amount) {
		return nil, fmt.Errorf("%w: amount must be positive with at most two decimals", ErrInvalidRequest)
	}
	if !util.ValidateCategory(in.Category) {
		return nil, fmt.Errorf("%w: category is required", ErrInvalidRequest)
	}

	now := a.now()
	if in.Date.IsZero() {
		in.Date = now
	}
	t := &models.Transaction{
		ID:          uuid.New().String(),
		UserID:      in.UserID,
		AccountID:   in.AccountID,
		Type:        in.Type,
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Date:        in.Date,
		Status:      models.StatusCompleted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.IsRecurring {
		interval, err := recurrence.ParseInterval(string(in.RecurringInterval))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		next, err := recurrence.NextDate(in.Date, interval)
		if err != nil {
			return nil, err
		}
		t.IsRecurring = true
		t.RecurringInterval = interval
		t.NextRecurringDate = &next
	}

	err := a.store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.GetAccountForUpdate(ctx, in.UserID, in.AccountID); err != nil {
			return err
		}
		if err := tx.InsertTransaction(ctx, t); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		return tx.IncrementBalance(ctx, t.AccountID, t.SignedAmount())
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// BulkDeleteTransactions removes the owner's entries and reverses their effect on each
// account balance. Ids that do not belong to the owner are ignored.
func (a *Accounts) BulkDeleteTransactions(ctx context.Context, userID string, ids []string) (int, error) {
	if userID == "" || len(ids) == 0 {
		return 0, fmt.Errorf("%w: at least one transaction id is required", ErrInvalidRequest)
	}

	deleted := 0
	err := a.store.WithTx(ctx, func(tx Tx) error {
		txns, err := tx.GetTransactionsByIDs(ctx, userID, ids)
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}

		reversals := make(map[string]decimal.Decimal)
		var order []string
		for _, t := range txns {
			if _, ok := reversals[t.AccountID]; !ok {
				order = append(order, t.AccountID)
			}
			reversals[t.AccountID] = reversals[t.AccountID].Sub(t.SignedAmount())
		}

		if deleted, err = tx.DeleteTransactions(ctx, userID, ids); err != nil {
			return fmt.Errorf("delete transactions: %w", err)
		}
		for _, accountID := range order {
			if err := tx.IncrementBalance(ctx, accountID, reversals[accountID]); err != nil {
				return fmt.Errorf("adjust balance of account %s: %w", accountID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
