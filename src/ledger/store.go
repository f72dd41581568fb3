// Package ledger owns every write that touches account balances: recurring
// occurrence materialization and the manual account/transaction operations.
// All balance changes are atomic increments paired with a ledger entry.
package ledger

import (
	"context"
	"errors"
	"time"

	"finlense-server/src/models"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
)

// Reader is the read side of the ledger store used outside of a transaction.
type Reader interface {
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	// ListDueRecurring returns up to limit due templates with id > afterID, ordered by id.
	ListDueRecurring(ctx context.Context, now time.Time, afterID string, limit int) ([]models.Transaction, error)
}

// Store groups writes into all-or-nothing units.
type Store interface {
	Reader
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of operations available inside one store transaction.
type Tx interface {
	// GetTransactionForUpdate locks the row until the transaction ends.
	GetTransactionForUpdate(ctx context.Context, id, userID string) (*models.Transaction, error)
	GetTransactionsByIDs(ctx context.Context, userID string, ids []string) ([]models.Transaction, error)
	InsertTransaction(ctx context.Context, t *models.Transaction) error
	DeleteTransactions(ctx context.Context, userID string, ids []string) (int, error)
	AdvanceRecurrence(ctx context.Context, id string, lastProcessed, next time.Time) error

	GetAccountForUpdate(ctx context.Context, userID, accountID string) (*models.Account, error)
	CountAccounts(ctx context.Context, userID string) (int, error)
	InsertAccount(ctx context.Context, a *models.Account) error
	ClearDefaultAccount(ctx context.Context, userID string) error
	MarkDefaultAccount(ctx context.Context, userID, accountID string) error
	// IncrementBalance applies balance = balance + delta in the store, never read-modify-write.
	IncrementBalance(ctx context.Context, accountID string, delta decimal.Decimal) error
}
