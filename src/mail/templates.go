package mail

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"
)

type CategoryLine struct {
	Name   string
	Amount decimal.Decimal
}

type MonthlyReportData struct {
	Name          string
	Month         string
	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	Net           decimal.Decimal
	Categories    []CategoryLine
	Insights      [3]string
}

type BudgetAlertData struct {
	Name           string
	BudgetAmount   decimal.Decimal
	TotalExpenses  decimal.Decimal
	PercentageUsed decimal.Decimal
	Remaining      decimal.Decimal
	AccountName    string
}

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return "$" + d.StringFixed(2) },
	"pct":   func(d decimal.Decimal) string { return d.StringFixed(1) + "%" },
}

const layout = `{{define "layout"}}<!DOCTYPE html>
<html>
<body style="background-color:#f6f9fc;font-family:-apple-system,sans-serif;">
<div style="background-color:#ffffff;margin:0 auto;padding:20px;border-radius:5px;max-width:600px;">
{{template "body" .}}
</div>
</body>
</html>{{end}}`

const monthlyReportBody = `{{define "body"}}
<h1 style="color:#1f2937;text-align:center;">Monthly Financial Report</h1>
<p>Hello {{.Name}},</p>
<p>Here&rsquo;s your financial summary for {{.Month}}:</p>
<table style="width:100%;">
<tr><td>Total Income</td><td style="text-align:right;">{{money .TotalIncome}}</td></tr>
<tr><td>Total Expenses</td><td style="text-align:right;">{{money .TotalExpenses}}</td></tr>
<tr><td>Net</td><td style="text-align:right;">{{money .Net}}</td></tr>
</table>
{{if .Categories}}<h2>Expenses by Category</h2>
<table style="width:100%;">
{{range .Categories}}<tr><td>{{.Name}}</td><td style="text-align:right;">{{money .Amount}}</td></tr>
{{end}}</table>{{end}}
<h2>Insights</h2>
<ul>
{{range .Insights}}<li>{{.}}</li>
{{end}}</ul>
<p style="color:#6b7280;">Thank you for using our finance app. Keep tracking your finances for better financial health!</p>
{{end}}`

const budgetAlertBody = `{{define "body"}}
<h1 style="color:#1f2937;text-align:center;">Budget Alert</h1>
<p>Hello {{.Name}},</p>
<p>You&rsquo;ve used {{pct .PercentageUsed}} of your monthly budget{{if .AccountName}} on {{.AccountName}}{{end}}.</p>
<table style="width:100%;">
<tr><td>Budget Amount</td><td style="text-align:right;">{{money .BudgetAmount}}</td></tr>
<tr><td>Spent So Far</td><td style="text-align:right;">{{money .TotalExpenses}}</td></tr>
<tr><td>Remaining</td><td style="text-align:right;">{{money .Remaining}}</td></tr>
</table>
{{end}}`

var (
	monthlyReportTemplate = template.Must(template.Must(template.New("monthly-report").Funcs(funcs).Parse(layout)).Parse(monthlyReportBody))
	budgetAlertTemplate   = template.Must(template.Must(template.New("budget-alert").Funcs(funcs).Parse(layout)).Parse(budgetAlertBody))
)

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func MonthlyReport(to string, data MonthlyReportData) (Message, error) {
	html, err := render(monthlyReportTemplate, data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Your Monthly Financial Report - " + data.Month, HTML: html}, nil
}

func BudgetAlert(to string, data BudgetAlertData) (Message, error) {
	html, err := render(budgetAlertTemplate, data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Budget Alert for " + data.AccountName, HTML: html}, nil
}
