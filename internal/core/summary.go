package core

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// CategoryStat is the summed amount of one category's transactions.
type CategoryStat struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
}

// PeriodStat holds per-type sums for a truncated period: YYYY-MM for months,
// YYYY-Www (ISO week) for weeks.
type PeriodStat struct {
	Period           string          `json:"period"`
	TotalIncome      decimal.Decimal `json:"total_income"`
	TotalExpense     decimal.Decimal `json:"total_expense"`
	TransactionCount int64           `json:"transaction_count"`
}

// StatsSummary is the derived overview of a date window. No field is ever
// absent: windows without transactions report zeros.
type StatsSummary struct {
	TotalIncome       decimal.Decimal `json:"total_income"`
	TotalExpense      decimal.Decimal `json:"total_expense"`
	Balance           decimal.Decimal `json:"balance"`
	AvgMonthlyIncome  decimal.Decimal `json:"avg_monthly_income"`
	AvgMonthlyExpense decimal.Decimal `json:"avg_monthly_expense"`
	MaxIncome         decimal.Decimal `json:"max_income"`
	MaxExpense        decimal.Decimal `json:"max_expense"`
	MonthsCount       int64           `json:"months_count"`
}

// NewStatsSummary derives balance and monthly averages from the raw window
// aggregates. The averaging divisor is floored at 1 month.
func NewStatsSummary(totalIncome, totalExpense, maxIncome, maxExpense decimal.Decimal, months int64) StatsSummary {
	divisor := decimal.NewFromInt(max(months, 1))
	return StatsSummary{
		TotalIncome:       totalIncome,
		TotalExpense:      totalExpense,
		Balance:           totalIncome.Sub(totalExpense),
		AvgMonthlyIncome:  totalIncome.Div(divisor),
		AvgMonthlyExpense: totalExpense.Div(divisor),
		MaxIncome:         maxIncome,
		MaxExpense:        maxExpense,
		MonthsCount:       months,
	}
}

// SavingsRate is (income - expense) / income * 100, or 0 without income.
func (s StatsSummary) SavingsRate() decimal.Decimal {
	if !s.TotalIncome.IsPositive() {
		return decimal.Zero
	}
	return s.TotalIncome.Sub(s.TotalExpense).Div(s.TotalIncome).Mul(hundred)
}

// SummaryReport is a StatsSummary together with its savings rate, as shown
// on overview screens.
type SummaryReport struct {
	StatsSummary
	SavingsRate decimal.Decimal `json:"savings_rate"`
	Window      string          `json:"window"`
}

// Report attaches the savings rate, rounded to two places, and the window
// label to s.
func (s StatsSummary) Report(w Window) SummaryReport {
	return SummaryReport{
		StatsSummary: s,
		SavingsRate:  s.SavingsRate().Round(2),
		Window:       w.String(),
	}
}
