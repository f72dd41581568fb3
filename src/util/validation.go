package util

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// maxAmount matches the NUMERIC(18,2) columns.
var maxAmount = decimal.New(1, 16)

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidateAmount accepts strictly positive amounts with at most two decimal places.
func ValidateAmount(amount decimal.Decimal) bool {
	if !amount.IsPositive() || amount.GreaterThanOrEqual(maxAmount) {
		return false
	}
	return amount.Equal(amount.Round(2))
}

func ValidateCategory(category string) bool {
	category = strings.TrimSpace(category)
	return len(category) >= 1 && len(category) <= 64
}

func ValidateName(name string) bool {
	name = strings.TrimSpace(name)
	return len(name) >= 1 && len(name) <= 100
}
