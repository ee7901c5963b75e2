package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendburn/internal/config"
	"github.com/theirongolddev/spendburn/internal/tui"
	"github.com/theirongolddev/spendburn/internal/tui/theme"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	theme.SetActive(cfg.Appearance.Theme)

	// Force TrueColor so background fills always produce ANSI codes.
	lipgloss.SetColorProfile(termenv.TrueColor)

	path, err := ledgerPath(cfg)
	needSetup := !config.ExistsAt(configPath())
	if err != nil && !needSetup {
		return err
	}
	opts, err := sourceOptions(cfg)
	if err != nil {
		return err
	}
	month, err := selectMonth()
	if err != nil {
		return err
	}

	fc, closeCache, err := newForecaster(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	// Progress goes to the UI, not stderr; slog output would corrupt the screen.
	flagQuiet = true
	silenceLogs()

	app := tui.NewApp(tui.Options{
		Config:     cfg,
		LedgerPath: path,
		Source:     opts,
		Forecaster: fc,
		Month:      month,
		NeedSetup:  needSetup,
		ConfigPath: configPath(),
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
