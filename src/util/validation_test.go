package util

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		amount string
		want   bool
	}{
		{"0.01", true},
		{"50", true},
		{"1234.50", true},
		{"0", false},
		{"-10", false},
		{"10.005", false},
		{"10000000000000000", false},
	}
	for _, tt := range tests {
		if got := ValidateAmount(decimal.RequireFromString(tt.amount)); got != tt.want {
			t.Errorf("ValidateAmount(%s) = %v, want %v", tt.amount, got, tt.want)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	if !ValidateEmail("jane.doe+budget@example.com") {
		t.Error("expected valid email")
	}
	for _, email := range []string{"", "jane", "jane@", "@example.com", "jane@example"} {
		if ValidateEmail(email) {
			t.Errorf("ValidateEmail(%q) = true, want false", email)
		}
	}
}

func TestValidateCategory(t *testing.T) {
	if !ValidateCategory("groceries") {
		t.Error("expected valid category")
	}
	if ValidateCategory("   ") {
		t.Error("blank category should be invalid")
	}
}
