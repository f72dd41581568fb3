package db

import (
	"context"
	"fmt"

	"finlense-server/src/models"
)

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	query := `
		SELECT id, email, name, created_at
		FROM users
		WHERE id = $1
	`
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// ListUsers pages through users by id.
func (s *Store) ListUsers(ctx context.Context, afterID string, limit int) ([]models.User, error) {
	query := `
		SELECT id, email, name, created_at
		FROM users
		WHERE id > $1
		ORDER BY id
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
