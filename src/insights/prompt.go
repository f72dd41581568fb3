package insights

import (
	"fmt"
	"sort"
	"strings"

	"finlense-server/src/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type categoryTotal struct {
	name   string
	amount decimal.Decimal
}

// sortedCategories orders by amount descending, then name.
func sortedCategories(byCategory map[string]decimal.Decimal) []categoryTotal {
	out := make([]categoryTotal, 0, len(byCategory))
	for name, amount := range byCategory {
		out = append(out, categoryTotal{name: name, amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].amount.Cmp(out[j].amount); c != 0 {
			return c > 0
		}
		return out[i].name < out[j].name
	})
	return out
}

// percentOf renders part as a percentage of whole with one decimal place.
func percentOf(part, whole decimal.Decimal) string {
	if !whole.IsPositive() {
		return "0.0"
	}
	return part.Div(whole).Mul(hundred).StringFixed(1)
}

func BuildPrompt(stats models.MonthlyStats, monthLabel string) string {
	var b strings.Builder
	b.WriteString("You are a financial advisor analyzing monthly expenses. Provide exactly 3 actionable insights based on this data.\n\n")

	fmt.Fprintf(&b, "Financial Summary for %s:\n", monthLabel)
	fmt.Fprintf(&b, "- Total Income: $%s\n", stats.TotalIncome.StringFixed(2))
	fmt.Fprintf(&b, "- Total Expenses: $%s\n", stats.TotalExpenses.StringFixed(2))
	fmt.Fprintf(&b, "- Net Savings: $%s\n", stats.TotalIncome.Sub(stats.TotalExpenses).StringFixed(2))
	fmt.Fprintf(&b, "- Number of Transactions: %d\n\n", stats.TransactionCount)

	b.WriteString("Expense Breakdown by Category:\n")
	for _, c := range sortedCategories(stats.ByCategory) {
		fmt.Fprintf(&b, "  - %s: $%s (%s%%)\n", c.name, c.amount.StringFixed(2), percentOf(c.amount, stats.TotalExpenses))
	}

	b.WriteString(`
Provide 3 specific, actionable insights. Each insight should:
1. Be one clear sentence
2. Include specific numbers from the data
3. Provide actionable advice

Return ONLY a valid JSON array with exactly 3 strings. Example format:
["Your food expenses of $500 are 30% of your budget - consider meal planning to save $100/month", "Great job! You saved $200 this month, which is 20% of your income", "Your entertainment spending increased by $50 - try setting a monthly limit of $150"]

Return ONLY the JSON array, no other text.`)
	return b.String()
}
