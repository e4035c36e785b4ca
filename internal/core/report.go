package core

import (
	"fmt"
	"strconv"
)

// Spending-level thresholds for the health assessment, in paise.
const (
	LowMonthlySpendPaise  = 30_000_00
	HighMonthlySpendPaise = 150_000_00

	// A single category above this share of total spend reads as
	// concentration risk.
	ConcentrationSharePercent = 50.0
)

type (
	// ReportCategory carries a ranked category with its formatted share.
	ReportCategory struct {
		Name       string `json:"name"`
		Percentage string `json:"percentage"`
	}

	// MonthlyReport is the deterministic report produced from aggregates
	// alone; it involves no randomness and no external calls.
	MonthlyReport struct {
		HealthAssessment string           `json:"healthAssessment"`
		TopCategories    []ReportCategory `json:"topCategories"`
		Recommendations  []string         `json:"recommendations"`
	}
)

// ComposeMonthlyReport derives the health assessment and recommendations from
// an owner-scoped, filter-narrowed record set.
func ComposeMonthlyReport(expenses []Expense) MonthlyReport {
	total := Total(expenses)
	top := TopCategories(expenses, DefaultTopCategories)

	report := MonthlyReport{
		HealthAssessment: healthAssessment(top, total),
		Recommendations:  recommendations(top),
		TopCategories:    make([]ReportCategory, 0, len(top)),
	}
	for _, c := range top {
		report.TopCategories = append(report.TopCategories, ReportCategory{
			Name:       c.Name,
			Percentage: strconv.FormatFloat(c.Percentage, 'f', 2, 64),
		})
	}
	return report
}

func healthAssessment(top []TopCategory, total Money) string {
	if len(top) == 0 {
		return "No expenses recorded this month. Consider tracking your spending more closely."
	}

	concentration := "Expenses are relatively balanced across categories."
	if top[0].Percentage > ConcentrationSharePercent {
		concentration = "High concentration of expenses in a single category!"
	}

	level := "Moderate monthly spending"
	switch {
	case total.Paise < LowMonthlySpendPaise:
		level = "Low monthly spending"
	case total.Paise > HighMonthlySpendPaise:
		level = "High monthly spending"
	}

	return fmt.Sprintf("%s %s at %s. The top category (%s) accounts for %.2f%% of your total expenses.",
		concentration, level, FormatINR(total.Paise), top[0].Name, top[0].Percentage)
}

func recommendations(top []TopCategory) []string {
	if len(top) == 0 {
		return []string{
			"Start tracking your expenses systematically",
			"Create a basic budget to understand your spending patterns",
			"Consider using budgeting apps or spreadsheets",
		}
	}
	return []string{
		fmt.Sprintf("Review your %s expenses in detail", top[0].Name),
		"Create a budget that allocates funds across different categories",
		"Look for ways to reduce spending in your top expense category",
		"Build an emergency fund to provide financial security",
		"Track your expenses consistently to gain better financial insights",
	}
}
