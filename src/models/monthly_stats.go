package models

import "github.com/shopspring/decimal"

// MonthlyStats is derived from ledger entries for one calendar month. It is never persisted.
type MonthlyStats struct {
	TotalIncome      decimal.Decimal            `json:"total_income"`
	TotalExpenses    decimal.Decimal            `json:"total_expenses"`
	ByCategory       map[string]decimal.Decimal `json:"by_category"`
	TransactionCount int                        `json:"transaction_count"`
}

func NewMonthlyStats() MonthlyStats {
	return MonthlyStats{
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
		ByCategory:    make(map[string]decimal.Decimal),
	}
}
