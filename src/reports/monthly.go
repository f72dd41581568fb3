package reports

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"finlense-server/src/mail"
	"finlense-server/src/models"
	"finlense-server/src/util"
)

type UserSource interface {
	ListUsers(ctx context.Context, afterID string, limit int) ([]models.User, error)
}

type InsightGenerator interface {
	Generate(ctx context.Context, stats models.MonthlyStats, monthLabel string) [3]string
}

type ReportSummary struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

var errInvalidEmail = errors.New("invalid email address")

type MonthlyReportJob struct {
	users    UserSource
	stats    *StatsAggregator
	insights InsightGenerator
	mailer   mail.Mailer
	now      func() time.Time
	pageSize int
}

func NewMonthlyReportJob(users UserSource, stats *StatsAggregator, insights InsightGenerator, mailer mail.Mailer, now func() time.Time, pageSize int) *MonthlyReportJob {
	if now == nil {
		now = time.Now
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	return &MonthlyReportJob{users: users, stats: stats, insights: insights, mailer: mailer, now: now, pageSize: pageSize}
}

// Run mails every user a report on the month before now. A failure for one user is
// logged and counted; the run continues with the next user.
func (j *MonthlyReportJob) Run(ctx context.Context) (ReportSummary, error) {
	start, _ := MonthBounds(j.now())
	anchor := start.AddDate(0, 0, -1)
	label := anchor.Format("January 2006")

	var summary ReportSummary
	cursor := ""
	for {
		users, err := j.users.ListUsers(ctx, cursor, j.pageSize)
		if err != nil {
			return summary, fmt.Errorf("list users: %w", err)
		}
		for _, u := range users {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			summary.Processed++
			if err := j.report(ctx, u, anchor, label); err != nil {
				summary.Failed++
				log.Printf("ERROR: monthly report for user %s: %v", u.ID, err)
				continue
			}
			summary.Succeeded++
		}
		if len(users) < j.pageSize {
			break
		}
		cursor = users[len(users)-1].ID
	}

	log.Printf("INFO: monthly report for %s. Summary: %d successful, %d errors", label, summary.Succeeded, summary.Failed)
	return summary, nil
}

func (j *MonthlyReportJob) report(ctx context.Context, u models.User, anchor time.Time, label string) error {
	if !util.ValidateEmail(u.Email) {
		return fmt.Errorf("%w: %q", errInvalidEmail, u.Email)
	}

	stats, err := j.stats.Stats(ctx, u.ID, anchor)
	if err != nil {
		return err
	}
	insights := j.insights.Generate(ctx, stats, label)

	msg, err := mail.MonthlyReport(u.Email, mail.MonthlyReportData{
		Name:          u.Name,
		Month:         label,
		TotalIncome:   stats.TotalIncome,
		TotalExpenses: stats.TotalExpenses,
		Net:           stats.TotalIncome.Sub(stats.TotalExpenses),
		Categories:    categoryLines(stats),
		Insights:      insights,
	})
	if err != nil {
		return err
	}
	return j.mailer.Send(ctx, msg)
}

func categoryLines(stats models.MonthlyStats) []mail.CategoryLine {
	lines := make([]mail.CategoryLine, 0, len(stats.ByCategory))
	for name, amount := range stats.ByCategory {
		lines = append(lines, mail.CategoryLine{Name: name, Amount: amount})
	}
	sort.Slice(lines, func(i, k int) bool {
		if c := lines[i].Amount.Cmp(lines[k].Amount); c != 0 {
			return c > 0
		}
		return lines[i].Name < lines[k].Name
	})
	return lines
}
