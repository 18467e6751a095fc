package services

import (
	"context"
	"fmt"

	"finances/internal/core"
	"finances/internal/storage"
)

// CategoryTotals returns per-category sums of one type with their share of
// the listed total, largest first.
func (s *FinanceService) CategoryTotals(ctx context.Context, kind core.Kind, w *core.Window) ([]core.CategoryShare, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	stats, err := s.stats.CategoryTotals(ctx, kind, w)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	return core.Shares(stats), nil
}

// MonthlyTotals groups by month in the order q asks for.
func (s *FinanceService) MonthlyTotals(ctx context.Context, q storage.MonthlyQuery) ([]core.PeriodStat, error) {
	stats, err := s.stats.MonthlyTotals(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	return stats, nil
}

// WeeklyTotals returns the most recent ISO weeks of w, newest first.
func (s *FinanceService) WeeklyTotals(ctx context.Context, w core.Window) ([]core.PeriodStat, error) {
	stats, err := s.stats.WeeklyTotals(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("weekly totals: %w", err)
	}
	return stats, nil
}

func (s *FinanceService) AvailableYears(ctx context.Context) ([]int, error) {
	years, err := s.stats.AvailableYears(ctx)
	if err != nil {
		return nil, fmt.Errorf("available years: %w", err)
	}
	return years, nil
}

// Summary computes the stats summary of w together with its savings rate.
func (s *FinanceService) Summary(ctx context.Context, w core.Window) (core.SummaryReport, error) {
	summary, err := s.stats.StatsSummary(ctx, w)
	if err != nil {
		return core.SummaryReport{}, fmt.Errorf("stats summary: %w", err)
	}
	return summary.Report(w), nil
}
