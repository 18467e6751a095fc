package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Named windows offered by the stats filters. Every preset ends today.
const (
	PresetToday     = "today"
	PresetWeek      = "week"
	PresetMonth     = "month"
	Preset3Months   = "3months"
	Preset6Months   = "6months"
	PresetYear      = "year"
	PresetYearToDay = "ytd"
	PresetAll       = "all"
)

// historyStart is the lower bound used by the "all" preset.
var historyStart = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// PresetWindow resolves a named preset relative to now.
func PresetWindow(name string, now time.Time) (Window, error) {
	today := truncateDay(now.UTC())
	var start time.Time
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PresetToday:
		start = today
	case PresetWeek:
		start = today.AddDate(0, 0, -7)
	case PresetMonth:
		start = today.AddDate(0, -1, 0)
	case Preset3Months:
		start = today.AddDate(0, -3, 0)
	case Preset6Months:
		start = today.AddDate(0, -6, 0)
	case PresetYear:
		start = today.AddDate(-1, 0, 0)
	case PresetYearToDay:
		start = time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	case PresetAll, "":
		start = historyStart
	default:
		return Window{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidWindow, name)
	}
	return NewWindow(start, today)
}

// CategoryShare is a CategoryStat with its percentage of the listed total.
type CategoryShare struct {
	CategoryStat
	Percentage decimal.Decimal `json:"percentage"`
}

// Shares computes each category's share of the sum of stats, rounded to one
// decimal place. Shares are all zero when the sum is not positive.
func Shares(stats []CategoryStat) []CategoryShare {
	total := decimal.Zero
	for _, s := range stats {
		total = total.Add(s.Total)
	}
	out := make([]CategoryShare, len(stats))
	for i, s := range stats {
		pct := decimal.Zero
		if total.IsPositive() {
			pct = s.Total.Div(total).Mul(hundred).Round(1)
		}
		out[i] = CategoryShare{CategoryStat: s, Percentage: pct}
	}
	return out
}
