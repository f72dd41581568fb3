package db

import (
	"context"
	"fmt"
	"time"

	"finlense-server/src/ledger"
	"finlense-server/src/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, user_id, name, type, balance, is_default, created_at, updated_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.Balance, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (s *Store) GetDefaultAccount(ctx context.Context, userID string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 AND is_default`
	return scanAccount(s.pool.QueryRow(ctx, query, userID))
}

func (tx *pgTx) GetAccountForUpdate(ctx context.Context, userID, accountID string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND user_id = $2 FOR UPDATE`
	return scanAccount(tx.q.QueryRow(ctx, query, accountID, userID))
}

func (tx *pgTx) CountAccounts(ctx context.Context, userID string) (int, error) {
	var n int
	err := tx.q.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

func (tx *pgTx) InsertAccount(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (id, user_id, name, type, balance, is_default)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	return tx.q.QueryRow(ctx, query, a.ID, a.UserID, a.Name, a.Type, a.Balance, a.IsDefault).
		Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (tx *pgTx) ClearDefaultAccount(ctx context.Context, userID string) error {
	_, err := tx.q.Exec(ctx, `UPDATE accounts SET is_default = FALSE, updated_at = NOW() WHERE user_id = $1 AND is_default`, userID)
	return err
}

func (tx *pgTx) MarkDefaultAccount(ctx context.Context, userID, accountID string) error {
	cmd, err := tx.q.Exec(ctx, `UPDATE accounts SET is_default = TRUE, updated_at = NOW() WHERE id = $1 AND user_id = $2`, accountID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (tx *pgTx) IncrementBalance(ctx context.Context, accountID string, delta decimal.Decimal) error {
	cmd, err := tx.q.Exec(ctx, `UPDATE accounts SET balance = balance + $1, updated_at = NOW() WHERE id = $2`, delta, accountID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", accountID, ledger.ErrNotFound)
	}
	return nil
}

// SumExpenses totals EXPENSE entries on the account dated in [from, to].
func (s *Store) SumExpenses(ctx context.Context, userID, accountID string, from, to time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1 AND account_id = $2 AND type = 'EXPENSE'
			AND date >= $3 AND date <= $4
	`
	var total decimal.Decimal
	if err := s.pool.QueryRow(ctx, query, userID, accountID, from, to).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum expenses: %w", err)
	}
	return total, nil
}
