// Package reports aggregates a user's month and mails the monthly report.
package reports

import (
	"context"
	"fmt"
	"time"

	"finlense-server/src/models"
)

type TransactionSource interface {
	// ListTransactions returns the owner's entries dated in [from, to).
	ListTransactions(ctx context.Context, userID string, from, to time.Time) ([]models.Transaction, error)
}

// MonthBounds returns the first instant of anchor's month and the first instant of the
// following month, in anchor's location.
func MonthBounds(anchor time.Time) (start, end time.Time) {
	start = time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location())
	return start, start.AddDate(0, 1, 0)
}

type StatsAggregator struct {
	source TransactionSource
}

func NewStatsAggregator(source TransactionSource) *StatsAggregator {
	return &StatsAggregator{source: source}
}

func (a *StatsAggregator) Stats(ctx context.Context, userID string, anchor time.Time) (models.MonthlyStats, error) {
	start, end := MonthBounds(anchor)
	txns, err := a.source.ListTransactions(ctx, userID, start, end)
	if err != nil {
		return models.MonthlyStats{}, fmt.Errorf("list transactions for user %s: %w", userID, err)
	}

	stats := models.NewMonthlyStats()
	for _, t := range txns {
		switch t.Type {
		case models.Income:
			stats.TotalIncome = stats.TotalIncome.Add(t.Amount)
		case models.Expense:
			stats.TotalExpenses = stats.TotalExpenses.Add(t.Amount)
			stats.ByCategory[t.Category] = stats.ByCategory[t.Category].Add(t.Amount)
		}
	}
	stats.TransactionCount = len(txns)
	return stats, nil
}
