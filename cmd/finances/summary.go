package main

import (
	"time"

	"github.com/spf13/cobra"

	"finances/internal/cli"
	"finances/internal/core"
	"finances/internal/log"
	"finances/internal/report"
	"finances/internal/services"
)

var summaryFlags struct {
	start  string
	end    string
	preset string
	lang   string
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print totals, savings rate and category breakdown for a window",
	Example: `  finances summary --start 2024-01-01 --end 2024-12-31
  finances summary --preset ytd --lang it`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func init() {
	f := summaryCmd.Flags()
	f.StringVar(&summaryFlags.start, "start", "", "first day of the window (YYYY-MM-DD)")
	f.StringVar(&summaryFlags.end, "end", "", "last day of the window (YYYY-MM-DD)")
	f.StringVar(&summaryFlags.preset, "preset", "", "named window: today, week, month, 3months, 6months, year, ytd, all")
	f.StringVar(&summaryFlags.lang, "lang", "en", "language used to format numbers")
	summaryCmd.MarkFlagsRequiredTogether("start", "end")
	summaryCmd.MarkFlagsMutuallyExclusive("start", "preset")
}

func runSummary(cmd *cobra.Command, _ []string) error {
	tag, err := report.ParseLanguage(summaryFlags.lang)
	if err != nil {
		return err
	}
	win, err := summaryWindow(time.Now())
	if err != nil {
		return err
	}

	cfg, err := cli.LoadAndValidateConfig(envFile)
	if err != nil {
		return err
	}
	// stdout carries the report
	logger, err := cli.SetupLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	repo, err := cli.InitSQLite(ctx, logger.WithComponent(log.ComponentCLI), cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	svc := services.NewFinanceService(repo, repo, nil)
	summary, err := svc.Summary(ctx, win)
	if err != nil {
		return err
	}
	expenses, err := svc.CategoryTotals(ctx, core.KindExpense, &win)
	if err != nil {
		return err
	}
	income, err := svc.CategoryTotals(ctx, core.KindIncome, &win)
	if err != nil {
		return err
	}

	return report.Write(cmd.OutOrStdout(), tag, report.Overview{
		Summary:  summary,
		Expenses: expenses,
		Income:   income,
	})
}

func summaryWindow(now time.Time) (core.Window, error) {
	if summaryFlags.start != "" {
		return core.ParseWindow(summaryFlags.start, summaryFlags.end)
	}
	return core.PresetWindow(summaryFlags.preset, now)
}
