package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is a monthly spending limit evaluated against the owner's default account.
type Budget struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	LastAlertSent *time.Time      `json:"last_alert_sent"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
