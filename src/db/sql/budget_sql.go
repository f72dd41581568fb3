package db

import (
	"context"
	"errors"
	"time"

	"finlense-server/src/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

func (s *Store) UpsertBudget(ctx context.Context, userID string, amount decimal.Decimal) (*models.Budget, error) {
	query := `
		INSERT INTO budgets (id, user_id, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET amount = EXCLUDED.amount, updated_at = NOW()
		RETURNING id, user_id, amount, last_alert_sent, created_at, updated_at
	`
	var b models.Budget
	err := s.pool.QueryRow(ctx, query, uuid.New().String(), userID, amount).
		Scan(&b.ID, &b.UserID, &b.Amount, &b.LastAlertSent, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) GetBudgetByUser(ctx context.Context, userID string) (*models.Budget, error) {
	query := `
		SELECT id, user_id, amount, last_alert_sent, created_at, updated_at
		FROM budgets WHERE user_id = $1
	`
	var b models.Budget
	err := s.pool.QueryRow(ctx, query, userID).
		Scan(&b.ID, &b.UserID, &b.Amount, &b.LastAlertSent, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (s *Store) ListBudgets(ctx context.Context, afterID string, limit int) ([]models.Budget, error) {
	query := `
		SELECT id, user_id, amount, last_alert_sent, created_at, updated_at
		FROM budgets WHERE id > $1
		ORDER BY id
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var budgets []models.Budget
	for rows.Next() {
		var b models.Budget
		err := rows.Scan(&b.ID, &b.UserID, &b.Amount, &b.LastAlertSent, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// ClaimBudgetAlert compares against at's month bounds in at's location, so the
// month matches the one the job evaluated.
func (s *Store) ClaimBudgetAlert(ctx context.Context, budgetID string, at time.Time) (bool, error) {
	at = at.Truncate(time.Microsecond)
	monthStart := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, at.Location())
	query := `
		UPDATE budgets SET last_alert_sent = $1, updated_at = NOW()
		WHERE id = $2
		  AND (last_alert_sent IS NULL OR last_alert_sent < $3 OR last_alert_sent >= $4)
		RETURNING id
	`
	var id string
	err := s.pool.QueryRow(ctx, query, at, budgetID, monthStart, monthStart.AddDate(0, 1, 0)).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) ReleaseBudgetAlert(ctx context.Context, budgetID string, claimed time.Time, previous *time.Time) error {
	query := `
		UPDATE budgets SET last_alert_sent = $1, updated_at = NOW()
		WHERE id = $2 AND last_alert_sent = $3
	`
	_, err := s.pool.Exec(ctx, query, previous, budgetID, claimed.Truncate(time.Microsecond))
	return err
}
