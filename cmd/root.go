// Package cmd implements the spendburn CLI commands.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendburn/internal/cli"
	"github.com/theirongolddev/spendburn/internal/config"
	"github.com/theirongolddev/spendburn/internal/forecast"
	"github.com/theirongolddev/spendburn/internal/model"
	"github.com/theirongolddev/spendburn/internal/pipeline"
	"github.com/theirongolddev/spendburn/internal/source"
	"github.com/theirongolddev/spendburn/internal/store"
)

var (
	flagLedger      string
	flagMonth       string
	flagConfig      string
	flagNoCache     bool
	flagQuiet       bool
	flagVerbose     bool
	flagJSON        bool
	flagSkipBadRows bool
)

// Cached forecasts older than this are dropped when the cache is opened.
const cacheMaxAge = 30 * 24 * time.Hour

var errNoLedger = errors.New("no ledger configured: pass --ledger or run `spendburn setup`")

var rootCmd = &cobra.Command{
	Use:               "spendburn",
	Short:             "Personal spending analytics CLI",
	Long:              "Analyze a transaction ledger: monthly, category and merchant spend, budgets, forecasts and alerts.",
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	RunE:              runSummary,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagLedger, "ledger", "l", "", "Ledger CSV file or directory (default from config)")
	rootCmd.PersistentFlags().StringVarP(&flagMonth, "month", "m", "", "Month to report, YYYY-MM (default latest)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default "+config.ConfigPath()+")")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Skip the SQLite forecast cache")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print machine-readable JSON")
	rootCmd.PersistentFlags().BoolVar(&flagSkipBadRows, "skip-bad-rows", false, "Skip unparseable rows instead of failing")
}

func setupLogging(_ *cobra.Command, _ []string) error {
	level := slog.LevelInfo
	switch {
	case flagVerbose:
		level = slog.LevelDebug
	case flagQuiet:
		level = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// silenceLogs drops everything below error; used while a full-screen UI owns the terminal.
func silenceLogs() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.ConfigPath()
}

// loadConfig reads and validates the effective configuration.
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadFrom(configPath())
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ledgerPath resolves --ledger, falling back to the configured path.
func ledgerPath(cfg config.Config) (string, error) {
	p := flagLedger
	if p == "" {
		p = cfg.General.Ledger
	}
	if p == "" {
		return "", errNoLedger
	}
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding %s: %w", p, err)
		}
		p = filepath.Join(home, rest)
	}
	return p, nil
}

func sourceOptions(cfg config.Config) (source.Options, error) {
	policy, err := source.ParsePolicy(cfg.General.LoadPolicy)
	if err != nil {
		return source.Options{}, err
	}
	if flagSkipBadRows {
		policy = source.PolicySkip
	}
	order, err := source.ParseDateOrder(cfg.General.DateOrder)
	if err != nil {
		return source.Options{}, err
	}
	return source.Options{Policy: policy, DateOrder: order}, nil
}

// loadLedger is the shared data loading path used by all report commands.
func loadLedger(ctx context.Context, cfg config.Config) (*pipeline.LoadResult, error) {
	path, err := ledgerPath(cfg)
	if err != nil {
		return nil, err
	}
	opts, err := sourceOptions(cfg)
	if err != nil {
		return nil, err
	}

	progress := !flagQuiet && !flagJSON
	if progress {
		fmt.Fprintf(os.Stderr, "  Scanning %s...\n", path)
	}
	progressFn := func(current, total int) {
		if progress {
			fmt.Fprintf(os.Stderr, "\r  Parsing [%d/%d]", current, total)
		}
	}

	result, err := pipeline.Load(ctx, path, opts, progressFn)
	if err != nil {
		if progress {
			fmt.Fprintln(os.Stderr)
		}
		return nil, err
	}

	if progress {
		fmt.Fprintf(os.Stderr, "\r  Loaded %s transactions from %d file(s)    \n",
			cli.FormatNumber(int64(result.Ledger.Len())), result.ParsedFiles)
		if result.Skipped > 0 {
			fmt.Fprintln(os.Stderr, cli.RenderWarning(fmt.Sprintf("Skipped %d bad row(s)", result.Skipped)))
			for _, rowErr := range result.RowErrors {
				fmt.Fprintln(os.Stderr, cli.RenderMuted("    "+rowErr.Error()))
			}
		}
	}
	return result, nil
}

// newForecaster builds the configured model, wrapped with the SQLite cache
// unless --no-cache is set. The returned closer releases the cache.
func newForecaster(cfg config.Config) (*forecast.Forecaster, func(), error) {
	m, err := forecast.NewModel(cfg.Forecast)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {}
	if !flagNoCache {
		cache, err := store.Open(store.CachePath())
		if err != nil {
			slog.Warn("forecast cache unavailable", "path", store.CachePath(), "err", err)
		} else {
			if n, err := cache.Purge(cacheMaxAge); err != nil {
				slog.Warn("forecast cache purge failed", "err", err)
			} else if n > 0 {
				slog.Debug("purged stale forecasts", "count", n)
			}
			m = forecast.NewCachedModel(m, cache, slog.Default())
			closer = func() { _ = cache.Close() }
		}
	}
	return forecast.New(m, cfg.Forecast, slog.Default()), closer, nil
}

// selectMonth parses --month; the zero key means "latest".
func selectMonth() (model.MonthKey, error) {
	if flagMonth == "" {
		return model.MonthKey{}, nil
	}
	k, err := model.ParseMonthKey(flagMonth)
	if err != nil {
		return k, fmt.Errorf("--month: %w", err)
	}
	return k, nil
}

// resolveMonth applies selectMonth against the loaded ledger.
func resolveMonth(result *pipeline.LoadResult) (model.MonthKey, error) {
	k, err := selectMonth()
	if err != nil || !k.IsZero() {
		return k, err
	}
	k, _ = result.Ledger.LatestMonth()
	return k, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printEmpty(cfg config.Config) {
	fmt.Println("\n  No transactions found in the ledger.")
	if cfg.General.Ledger == "" && flagLedger == "" {
		fmt.Println("  Run `spendburn setup` to point spendburn at your CSV export.")
	}
}
