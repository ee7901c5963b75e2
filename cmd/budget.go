package cmd

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendburn/internal/cli"
	"github.com/theirongolddev/spendburn/internal/config"
	"github.com/theirongolddev/spendburn/internal/pipeline"
)

var flagBudgetAmount string

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Compare a month's spend with the monthly budget",
	RunE:  runBudget,
}

func init() {
	budgetCmd.Flags().StringVar(&flagBudgetAmount, "amount", "", "Budget to check against (default [budget] monthly)")
	rootCmd.AddCommand(budgetCmd)
}

func runBudget(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var budget decimal.Decimal
	switch {
	case flagBudgetAmount != "":
		budget, err = decimal.NewFromString(flagBudgetAmount)
		if err != nil {
			return &config.ConfigError{Field: "budget", Value: flagBudgetAmount, Reason: "not a number"}
		}
	case cfg.Budget.Monthly != nil:
		budget = decimal.NewFromFloat(*cfg.Budget.Monthly)
	default:
		return errors.New("no budget: pass --amount or set [budget] monthly in " + configPath())
	}

	tracker := pipeline.NewBudgetTracker(cfg.Budget)
	if err := tracker.Validate(budget); err != nil {
		return err
	}

	result, err := loadLedger(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	month, err := resolveMonth(result)
	if err != nil {
		return err
	}
	st, err := tracker.Evaluate(month, result.Ledger.Transactions(), budget)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(st)
	}

	cur := cfg.General.Currency
	fmt.Println()
	fmt.Println(cli.RenderTitle("BUDGET  " + cli.FormatMonth(month)))
	fmt.Println()

	fmt.Print(cli.RenderTable(cli.Table{Rows: [][]string{
		{"Budget", cli.FormatMoney(cur, st.Budget)},
		{"Spent", cli.FormatMoney(cur, st.Spent)},
		{"Remaining", cli.FormatMoney(cur, st.Remaining)},
		{"---"},
		{"Used", cli.FormatPercent(st.UsedPercent / 100)},
	}}))
	fmt.Println()
	fmt.Printf("  %s\n", cli.RenderBudgetBar(st, 40))
	fmt.Printf("  Verdict: %s\n", cli.RenderVerdict(st))
	return nil
}
