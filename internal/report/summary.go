// Package report renders ledger statistics for terminals, with numbers
// formatted for the reader's locale.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"finances/internal/core"
)

// Overview is everything the summary command prints.
type Overview struct {
	Summary  core.SummaryReport
	Expenses []core.CategoryShare
	Income   []core.CategoryShare
}

// ParseLanguage maps a BCP 47 tag such as "en" or "it-IT" onto a language.
func ParseLanguage(s string) (language.Tag, error) {
	tag, err := language.Parse(strings.TrimSpace(s))
	if err != nil {
		return language.Und, fmt.Errorf("invalid language %q: %w", s, err)
	}
	return tag, nil
}

// Write prints o as aligned columns using tag's number formatting.
func Write(w io.Writer, tag language.Tag, o Overview) error {
	p := message.NewPrinter(tag)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	s := o.Summary

	p.Fprintf(tw, "Window\t%s\t\n", s.Window)
	p.Fprintf(tw, "Months\t%d\t\n", s.MonthsCount)
	p.Fprintf(tw, "Income\t%.2f\t\n", money(s.TotalIncome))
	p.Fprintf(tw, "Expenses\t%.2f\t\n", money(s.TotalExpense))
	p.Fprintf(tw, "Balance\t%.2f\t\n", money(s.Balance))
	p.Fprintf(tw, "Avg monthly income\t%.2f\t\n", money(s.AvgMonthlyIncome))
	p.Fprintf(tw, "Avg monthly expenses\t%.2f\t\n", money(s.AvgMonthlyExpense))
	p.Fprintf(tw, "Largest income\t%.2f\t\n", money(s.MaxIncome))
	p.Fprintf(tw, "Largest expense\t%.2f\t\n", money(s.MaxExpense))
	p.Fprintf(tw, "Savings rate\t%.2f%%\t\n", money(s.SavingsRate))

	writeShares(p, tw, "Expenses by category", o.Expenses)
	writeShares(p, tw, "Income by category", o.Income)

	return tw.Flush()
}

func writeShares(p *message.Printer, w io.Writer, title string, shares []core.CategoryShare) {
	p.Fprintf(w, "\t\t\n%s\t\t\n", title)
	if len(shares) == 0 {
		p.Fprintf(w, "  (none)\t\t\n")
		return
	}
	for _, sh := range shares {
		p.Fprintf(w, "  %s\t%.2f\t%.1f%%\t\n", sh.Name, money(sh.Total), money(sh.Percentage))
	}
}

func money(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
