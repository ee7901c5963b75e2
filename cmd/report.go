package cmd

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendburn/internal/config"
	"github.com/theirongolddev/spendburn/internal/forecast"
	"github.com/theirongolddev/spendburn/internal/report"
)

var (
	flagReportBudget     string
	flagReportDays       int
	flagReportNoForecast bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Full analytics report as JSON",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&flagReportBudget, "budget", "", "Budget for the budget section (default [budget] monthly)")
	reportCmd.Flags().IntVar(&flagReportDays, "days", 0, "Forecast horizon in days")
	reportCmd.Flags().BoolVar(&flagReportNoForecast, "no-forecast", false, "Skip the forecast section")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts := report.Options{Horizon: flagReportDays, SkipForecast: flagReportNoForecast}
	if opts.Month, err = selectMonth(); err != nil {
		return err
	}
	if flagReportBudget != "" {
		b, err := decimal.NewFromString(flagReportBudget)
		if err != nil {
			return &config.ConfigError{Field: "budget", Value: flagReportBudget, Reason: "not a number"}
		}
		opts.Budget = &b
	}

	// The report is always JSON; keep stderr quiet unless asked.
	flagJSON = true
	result, err := loadLedger(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	var fc *forecast.Forecaster
	if !opts.SkipForecast {
		f, closeCache, err := newForecaster(cfg)
		if err != nil {
			return err
		}
		defer closeCache()
		fc = f
	}

	r, err := report.Build(cmd.Context(), result, cfg, fc, opts)
	if err != nil {
		return err
	}
	return printJSON(r)
}
