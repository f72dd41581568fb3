package ledger

import (
	"context"
	"fmt"
	"time"

	"finlense-server/src/models"
)

const defaultPageSize = 100

// IsDue reports whether a recurring template should produce an occurrence at now:
// it has never been processed, or its next recurring date has arrived.
func IsDue(t models.Transaction, now time.Time) bool {
	if !t.IsRecurring || t.Status != models.StatusCompleted {
		return false
	}
	if t.LastProcessed == nil {
		return true
	}
	return t.NextRecurringDate != nil && !t.NextRecurringDate.After(now)
}

// DueSelector pages through due recurring templates without loading the ledger at once.
type DueSelector struct {
	store    Reader
	pageSize int
}

func NewDueSelector(store Reader, pageSize int) *DueSelector {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &DueSelector{store: store, pageSize: pageSize}
}

// Each calls fn for every template due at now. Iteration stops at the first error.
func (s *DueSelector) Each(ctx context.Context, now time.Time, fn func(models.Transaction) error) error {
	cursor := ""
	for {
		page, err := s.store.ListDueRecurring(ctx, now, cursor, s.pageSize)
		if err != nil {
			return fmt.Errorf("list due recurring transactions: %w", err)
		}
		for _, t := range page {
			if err := fn(t); err != nil {
				return err
			}
		}
		if len(page) < s.pageSize {
			return nil
		}
		cursor = page[len(page)-1].ID
	}
}

func (s *DueSelector) All(ctx context.Context, now time.Time) ([]models.Transaction, error) {
	var due []models.Transaction
	err := s.Each(ctx, now, func(t models.Transaction) error {
		due = append(due, t)
		return nil
	})
	return due, err
}
