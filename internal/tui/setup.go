package tui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/spendburn/internal/config"
	"github.com/theirongolddev/spendburn/internal/pipeline"
	"github.com/theirongolddev/spendburn/internal/tui/theme"
)

// SetupValues holds the fields edited by the setup form. Budget is kept as
// text so an empty value means "no budget".
type SetupValues struct {
	Ledger    string
	Currency  string
	Budget    string
	DateOrder string
	Theme     string
}

// SetupValuesFrom seeds the form from an existing config.
func SetupValuesFrom(cfg config.Config) SetupValues {
	v := SetupValues{
		Ledger:    cfg.General.Ledger,
		Currency:  cfg.General.Currency,
		DateOrder: cfg.General.DateOrder,
		Theme:     cfg.Appearance.Theme,
	}
	if cfg.Budget.Monthly != nil {
		v.Budget = strconv.FormatFloat(*cfg.Budget.Monthly, 'f', -1, 64)
	}
	return v
}

// NewSetupForm builds the first-run wizard. Values are written into vals as
// the user edits them.
func NewSetupForm(cfg config.Config, vals *SetupValues) *huh.Form {
	tracker := pipeline.NewBudgetTracker(cfg.Budget)

	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, t := range theme.All {
		themeOpts = append(themeOpts, huh.NewOption(t.Name, t.Name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to spendburn").
				Description("Point spendburn at your transaction CSV and set a monthly budget."),
			huh.NewInput().
				Title("Ledger path").
				Description("A CSV file or a directory of CSV files.").
				Placeholder("~/finance/transactions.csv").
				Value(&vals.Ledger),
			huh.NewInput().
				Title("Currency symbol").
				CharLimit(4).
				Value(&vals.Currency).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("currency symbol is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Date order for ambiguous dates").
				Options(
					huh.NewOption("day first (02/01/2006)", "dmy"),
					huh.NewOption("month first (01/02/2006)", "mdy"),
				).
				Value(&vals.DateOrder),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Monthly budget").
				Description(fmt.Sprintf("Leave empty for none. Minimum %s, in steps of %s.",
					tracker.Floor.String(), tracker.Step.String())).
				Value(&vals.Budget).
				Validate(func(s string) error {
					_, err := parseBudget(s, tracker)
					return err
				}),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&vals.Theme),
		),
	).WithTheme(huh.ThemeCatppuccin())
}

// ApplySetup copies form values into cfg.
func ApplySetup(cfg *config.Config, vals SetupValues) error {
	budget, err := parseBudget(vals.Budget, pipeline.NewBudgetTracker(cfg.Budget))
	if err != nil {
		return err
	}
	cfg.General.Ledger = strings.TrimSpace(vals.Ledger)
	cfg.General.Currency = strings.TrimSpace(vals.Currency)
	if vals.DateOrder != "" {
		cfg.General.DateOrder = vals.DateOrder
	}
	if vals.Theme != "" {
		cfg.Appearance.Theme = vals.Theme
	}
	cfg.Budget.Monthly = nil
	if budget != nil {
		f := budget.InexactFloat64()
		cfg.Budget.Monthly = &f
	}
	return nil
}

// parseBudget returns nil for an empty string.
func parseBudget(s string, tracker pipeline.BudgetTracker) (*decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return nil, fmt.Errorf("%q is not a number", s)
	}
	if err := tracker.Validate(d); err != nil {
		return nil, err
	}
	return &d, nil
}

// expandHome resolves a leading "~/" against the user's home directory.
func expandHome(p string) string {
	rest, ok := strings.CutPrefix(p, "~/")
	if !ok {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, rest)
}
