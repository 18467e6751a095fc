package storage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"finances/internal/core"

	"github.com/shopspring/decimal"
)

// MaxWeeklyPeriods caps the number of ISO weeks WeeklyTotals returns.
const MaxWeeklyPeriods = 10

const totalPlaces = 6

// MonthlyQuery selects which transactions MonthlyTotals groups. Year and
// Window are mutually exclusive; with neither set the whole history is used.
type MonthlyQuery struct {
	Year   int
	Window *core.Window
	Order  core.SortOrder
}

func (q MonthlyQuery) window() (*core.Window, error) {
	switch {
	case q.Year != 0 && q.Window != nil:
		return nil, fmt.Errorf("%w: year and window are exclusive", core.ErrInvalidWindow)
	case q.Year != 0:
		if q.Year < 1 || q.Year > 9999 {
			return nil, fmt.Errorf("%w: year %d", core.ErrInvalidWindow, q.Year)
		}
		w := core.YearWindow(q.Year)
		return &w, nil
	default:
		return q.Window, nil
	}
}

const categoryTotals = `SELECT c.id, c.name, SUM(t.amount) AS total
FROM transactions t
JOIN categories c ON t.category_id = c.id
WHERE t.type = ?
GROUP BY c.id, c.name
ORDER BY total DESC, c.id ASC`

const categoryTotalsInWindow = `SELECT c.id, c.name, SUM(t.amount) AS total
FROM transactions t
JOIN categories c ON t.category_id = c.id
WHERE t.type = ? AND date(t.date) BETWEEN ? AND ?
GROUP BY c.id, c.name
ORDER BY total DESC, c.id ASC`

// CategoryTotals sums transaction amounts per category of the given type,
// largest first. Categories without matching transactions are omitted.
func (r *SQLiteRepository) CategoryTotals(ctx context.Context, kind core.Kind, w *core.Window) ([]core.CategoryStat, error) {
	query, args := categoryTotals, []any{kind.String()}
	if w != nil {
		query, args = categoryTotalsInWindow, append(args, w.StartKey(), w.EndKey())
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("category totals (type=%s): %w", kind, err)
	}
	defer rows.Close()

	stats := []core.CategoryStat{}
	for rows.Next() {
		var (
			s     core.CategoryStat
			total float64
		)
		if err := rows.Scan(&s.ID, &s.Name, &total); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		s.Total = roundTotal(total)
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("category totals (type=%s): %w", kind, err)
	}
	return stats, nil
}

const monthlyTotals = `SELECT strftime('%%Y-%%m', date) AS period,
	COALESCE(SUM(CASE WHEN type = 'income' THEN amount END), 0.0),
	COALESCE(SUM(CASE WHEN type = 'expense' THEN amount END), 0.0),
	COUNT(id)
FROM transactions
%s
GROUP BY period
ORDER BY period %s`

// MonthlyTotals groups transactions by YYYY-MM with separate income and
// expense sums. The caller chooses the ordering; an empty Order is
// descending.
func (r *SQLiteRepository) MonthlyTotals(ctx context.Context, q MonthlyQuery) ([]core.PeriodStat, error) {
	order, err := core.ParseSortOrder(string(q.Order), core.Descending)
	if err != nil {
		return nil, err
	}
	w, err := q.window()
	if err != nil {
		return nil, err
	}

	var (
		where string
		args  []any
	)
	if w != nil {
		where = "WHERE date(date) BETWEEN ? AND ?"
		args = []any{w.StartKey(), w.EndKey()}
	}
	// order is one of two whitelisted keywords.
	query := fmt.Sprintf(monthlyTotals, where, order)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	stats := []core.PeriodStat{}
	for rows.Next() {
		var (
			s               core.PeriodStat
			income, expense float64
		)
		if err := rows.Scan(&s.Period, &income, &expense, &s.TransactionCount); err != nil {
			return nil, fmt.Errorf("scan monthly total: %w", err)
		}
		s.TotalIncome = roundTotal(income)
		s.TotalExpense = roundTotal(expense)
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	return stats, nil
}

// MonthlyAll is the whole history, newest month first.
func (r *SQLiteRepository) MonthlyAll(ctx context.Context) ([]core.PeriodStat, error) {
	return r.MonthlyTotals(ctx, MonthlyQuery{Order: core.Descending})
}

// MonthlyByYear is one calendar year in chronological order.
func (r *SQLiteRepository) MonthlyByYear(ctx context.Context, year int) ([]core.PeriodStat, error) {
	return r.MonthlyTotals(ctx, MonthlyQuery{Year: year, Order: core.Ascending})
}

const dailyTotals = `SELECT date(date) AS day,
	COALESCE(SUM(CASE WHEN type = 'income' THEN amount END), 0.0),
	COALESCE(SUM(CASE WHEN type = 'expense' THEN amount END), 0.0),
	COUNT(id)
FROM transactions
WHERE date(date) BETWEEN ? AND ?
GROUP BY day`

// WeeklyTotals groups the window by ISO week (YYYY-Www), newest week first,
// and keeps only the MaxWeeklyPeriods most recent weeks.
//
// SQLite sums per day; days are folded into ISO weeks here because %W
// numbering is not ISO-8601.
func (r *SQLiteRepository) WeeklyTotals(ctx context.Context, w core.Window) ([]core.PeriodStat, error) {
	rows, err := r.db.QueryContext(ctx, dailyTotals, w.StartKey(), w.EndKey())
	if err != nil {
		return nil, fmt.Errorf("weekly totals (window=%s): %w", w, err)
	}
	defer rows.Close()

	type bucket struct {
		income, expense float64
		count           int64
	}
	weeks := make(map[string]*bucket)
	for rows.Next() {
		var (
			day             string
			income, expense float64
			count           int64
		)
		if err := rows.Scan(&day, &income, &expense, &count); err != nil {
			return nil, fmt.Errorf("scan daily total: %w", err)
		}
		d, err := time.Parse(time.DateOnly, day)
		if err != nil {
			return nil, fmt.Errorf("weekly totals: %w: %q", core.ErrInvalidDate, day)
		}
		key := isoWeekKey(d)
		b, ok := weeks[key]
		if !ok {
			b = &bucket{}
			weeks[key] = b
		}
		b.income += income
		b.expense += expense
		b.count += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("weekly totals (window=%s): %w", w, err)
	}

	keys := make([]string, 0, len(weeks))
	for k := range weeks {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if len(keys) > MaxWeeklyPeriods {
		keys = keys[:MaxWeeklyPeriods]
	}

	stats := make([]core.PeriodStat, len(keys))
	for i, k := range keys {
		b := weeks[k]
		stats[i] = core.PeriodStat{
			Period:           k,
			TotalIncome:      roundTotal(b.income),
			TotalExpense:     roundTotal(b.expense),
			TransactionCount: b.count,
		}
	}
	return stats, nil
}

func isoWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

const availableYears = `SELECT DISTINCT strftime('%Y', date) AS year
FROM transactions
WHERE strftime('%Y', date) IS NOT NULL
ORDER BY year DESC`

// AvailableYears lists every year that has at least one transaction, newest
// first.
func (r *SQLiteRepository) AvailableYears(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, availableYears)
	if err != nil {
		return nil, fmt.Errorf("available years: %w", err)
	}
	defer rows.Close()

	years := []int{}
	for rows.Next() {
		var y string
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("scan year: %w", err)
		}
		n, err := strconv.Atoi(y)
		if err != nil {
			return nil, fmt.Errorf("available years: parse %q: %w", y, err)
		}
		years = append(years, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("available years: %w", err)
	}
	return years, nil
}

const statsSummary = `SELECT
	COALESCE(SUM(CASE WHEN type = 'income' THEN amount END), 0.0),
	COALESCE(SUM(CASE WHEN type = 'expense' THEN amount END), 0.0),
	COALESCE(MAX(CASE WHEN type = 'income' THEN amount END), 0.0),
	COALESCE(MAX(CASE WHEN type = 'expense' THEN amount END), 0.0),
	COUNT(DISTINCT strftime('%Y-%m', date))
FROM transactions
WHERE date(date) BETWEEN ? AND ?`

// StatsSummary computes totals, maxima and monthly averages over window w.
// Every field is zero when the window holds no transactions.
func (r *SQLiteRepository) StatsSummary(ctx context.Context, w core.Window) (core.StatsSummary, error) {
	var (
		income, expense       float64
		maxIncome, maxExpense float64
		months                int64
	)
	err := r.db.QueryRowContext(ctx, statsSummary, w.StartKey(), w.EndKey()).
		Scan(&income, &expense, &maxIncome, &maxExpense, &months)
	if err != nil {
		return core.StatsSummary{}, fmt.Errorf("stats summary (window=%s): %w", w, err)
	}

	return core.NewStatsSummary(
		roundTotal(income),
		roundTotal(expense),
		core.AmountFromFloat(maxIncome),
		core.AmountFromFloat(maxExpense),
		months,
	), nil
}

// roundTotal trims float summation noise (0.1+0.2) from REAL aggregates.
func roundTotal(f float64) decimal.Decimal {
	return core.AmountFromFloat(f).Round(totalPlaces)
}
