package insights

import (
	"fmt"

	"finlense-server/src/models"
)

const genericInsight = "Continue tracking your expenses to get more personalized insights next month."

// Fallback renders three insights straight from the numbers.
func Fallback(stats models.MonthlyStats) [3]string {
	var insights []string

	switch cmp := stats.TotalExpenses.Cmp(stats.TotalIncome); {
	case cmp > 0:
		over := stats.TotalExpenses.Sub(stats.TotalIncome)
		if stats.TotalIncome.IsPositive() {
			insights = append(insights, fmt.Sprintf("You spent $%s more than you earned this month, %s%% over your income. Consider reviewing your expenses.", over.StringFixed(2), percentOf(over, stats.TotalIncome)))
		} else {
			insights = append(insights, fmt.Sprintf("You spent $%s more than you earned this month. Consider reviewing your expenses.", over.StringFixed(2)))
		}
	case cmp < 0:
		saved := stats.TotalIncome.Sub(stats.TotalExpenses)
		insights = append(insights, fmt.Sprintf("Great job! You saved $%s this month, which is %s%% of your income.", saved.StringFixed(2), percentOf(saved, stats.TotalIncome)))
	default:
		insights = append(insights, fmt.Sprintf("You broke even this month: $%s earned and $%s spent.", stats.TotalIncome.StringFixed(2), stats.TotalExpenses.StringFixed(2)))
	}

	if categories := sortedCategories(stats.ByCategory); len(categories) > 0 {
		top := categories[0]
		insights = append(insights, fmt.Sprintf("Your highest expense category is %s at $%s (%s%% of total expenses).", top.name, top.amount.StringFixed(2), percentOf(top.amount, stats.TotalExpenses)))
	}

	insights = append(insights, fmt.Sprintf("You made %d transactions this month. Consistent tracking helps identify spending patterns.", stats.TransactionCount))

	for len(insights) < 3 {
		insights = append(insights, genericInsight)
	}

	var out [3]string
	copy(out[:], insights)
	return out
}
