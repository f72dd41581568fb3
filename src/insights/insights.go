// Package insights turns a month of ledger statistics into three short narrative
// insights, using an external summarizer when one is configured and a deterministic
// rendering of the numbers otherwise.
package insights

import (
	"context"
	"errors"
	"log"

	"finlense-server/src/models"
)

var ErrNotConfigured = errors.New("summarizer not configured")

// Summarizer sends one prompt to a text generation model and returns its raw reply.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

var onboarding = [3]string{
	"Start tracking your expenses to get personalized insights.",
	"Add your first transaction to see AI-powered recommendations.",
	"Set up a budget to track your financial goals.",
}

type Generator struct {
	summarizer Summarizer
}

// NewGenerator accepts a nil summarizer, in which case every insight comes from Fallback.
func NewGenerator(summarizer Summarizer) *Generator {
	return &Generator{summarizer: summarizer}
}

// Generate always returns three non-empty insights. Summarizer errors and unusable
// replies fall back to insights computed from stats.
func (g *Generator) Generate(ctx context.Context, stats models.MonthlyStats, monthLabel string) [3]string {
	if stats.TotalIncome.IsZero() && stats.TotalExpenses.IsZero() {
		return onboarding
	}
	if g.summarizer == nil {
		return Fallback(stats)
	}

	raw, err := g.summarizer.Summarize(ctx, BuildPrompt(stats, monthLabel))
	if err != nil {
		if !errors.Is(err, ErrNotConfigured) {
			log.Printf("ERROR: generating insights for %s: %v", monthLabel, err)
		}
		return Fallback(stats)
	}

	insights, err := ParseInsights(raw)
	if err != nil {
		log.Printf("ERROR: unusable insights reply for %s: %v", monthLabel, err)
		return Fallback(stats)
	}
	return insights
}
