package db

import (
	"context"
	"fmt"
	"time"

	"finlense-server/src/ledger"
	"finlense-server/src/models"

	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, user_id, account_id, type, amount, description, category, date,
	is_recurring, COALESCE(recurring_interval, ''), next_recurring_date, last_processed,
	status, created_at, updated_at`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.AccountID,
		&t.Type,
		&t.Amount,
		&t.Description,
		&t.Category,
		&t.Date,
		&t.IsRecurring,
		&t.RecurringInterval,
		&t.NextRecurringDate,
		&t.LastProcessed,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func collectTransactions(rows pgx.Rows) ([]models.Transaction, error) {
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	t, err := scanTransaction(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (s *Store) ListDueRecurring(ctx context.Context, now time.Time, afterID string, limit int) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE is_recurring
			AND status = 'COMPLETED'
			AND (last_processed IS NULL OR next_recurring_date <= $1)
			AND id > $2
		ORDER BY id
		LIMIT $3
	`
	rows, err := s.pool.Query(ctx, query, now, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query due templates: %w", err)
	}
	return collectTransactions(rows)
}

// ListTransactions returns the owner's entries dated in [from, to).
func (s *Store) ListTransactions(ctx context.Context, userID string, from, to time.Time) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND date >= $2 AND date < $3
		ORDER BY id
	`
	rows, err := s.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	return collectTransactions(rows)
}

func (tx *pgTx) GetTransactionForUpdate(ctx context.Context, id, userID string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 AND user_id = $2 FOR UPDATE`
	t, err := scanTransaction(tx.q.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (tx *pgTx) GetTransactionsByIDs(ctx context.Context, userID string, ids []string) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND id = ANY($2)
		ORDER BY id
		FOR UPDATE
	`
	rows, err := tx.q.Query(ctx, query, userID, ids)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

func (tx *pgTx) InsertTransaction(ctx context.Context, t *models.Transaction) error {
	var interval *string
	if t.RecurringInterval != "" {
		s := string(t.RecurringInterval)
		interval = &s
	}

	query := `
		INSERT INTO transactions (
			id, user_id, account_id, type, amount, description, category, date,
			is_recurring, recurring_interval, next_recurring_date, last_processed, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`
	return tx.q.QueryRow(ctx, query,
		t.ID,
		t.UserID,
		t.AccountID,
		t.Type,
		t.Amount,
		t.Description,
		t.Category,
		t.Date,
		t.IsRecurring,
		interval,
		t.NextRecurringDate,
		t.LastProcessed,
		t.Status,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (tx *pgTx) DeleteTransactions(ctx context.Context, userID string, ids []string) (int, error) {
	cmd, err := tx.q.Exec(ctx, `DELETE FROM transactions WHERE user_id = $1 AND id = ANY($2)`, userID, ids)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (tx *pgTx) AdvanceRecurrence(ctx context.Context, id string, lastProcessed, next time.Time) error {
	query := `
		UPDATE transactions
		SET last_processed = $1, next_recurring_date = $2, updated_at = NOW()
		WHERE id = $3
	`
	cmd, err := tx.q.Exec(ctx, query, lastProcessed, next, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ledger.ErrNotFound
	}
	return nil
}
