package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendburn/internal/cli"
	"github.com/theirongolddev/spendburn/internal/model"
	"github.com/theirongolddev/spendburn/internal/pipeline"
)

var (
	flagAllMonths bool
	flagFilter    string
	flagTop       int
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Spend by category for a month",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runBreakdown(cmd, "CATEGORIES", "Category", pipeline.FilterByCategory, pipeline.CategoryBreakdown, cli.CategoryLabel)
	},
}

var merchantsCmd = &cobra.Command{
	Use:   "merchants",
	Short: "Spend by merchant for a month",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runBreakdown(cmd, "MERCHANTS", "Merchant", pipeline.FilterByMerchant, pipeline.MerchantBreakdown, cli.MerchantLabel)
	},
}

func init() {
	for _, c := range []*cobra.Command{categoriesCmd, merchantsCmd} {
		c.Flags().BoolVar(&flagAllMonths, "all", false, "Cover the whole ledger instead of one month")
		c.Flags().StringVar(&flagFilter, "filter", "", "Only names containing this text (case-insensitive)")
		c.Flags().IntVar(&flagTop, "top", 0, "Show only the top N rows")
		rootCmd.AddCommand(c)
	}
}

func runBreakdown(
	cmd *cobra.Command,
	title, column string,
	filter func([]model.Transaction, string) []model.Transaction,
	breakdown func([]model.Transaction) []model.KeyTotal,
	label func(string) string,
) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	result, err := loadLedger(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	txns := result.Ledger.Transactions()
	scope := "All months"
	if !flagAllMonths {
		month, err := resolveMonth(result)
		if err != nil {
			return err
		}
		txns = pipeline.FilterByMonth(txns, month)
		scope = cli.FormatMonth(month)
	}
	if flagFilter != "" {
		txns = filter(txns, flagFilter)
	}

	rows := breakdown(txns)
	if flagTop > 0 && len(rows) > flagTop {
		rows = rows[:flagTop]
	}

	if flagJSON {
		return printJSON(rows)
	}
	if len(rows) == 0 {
		fmt.Printf("\n  No transactions for %s.\n", strings.ToLower(scope))
		return nil
	}

	cur := cfg.General.Currency
	peak := rows[0].Total.InexactFloat64()

	fmt.Println()
	fmt.Println(cli.RenderTitle(title + "  " + scope))
	fmt.Println()

	tableRows := make([][]string, 0, len(rows)+2)
	for _, r := range rows {
		tableRows = append(tableRows, []string{
			label(r.Key),
			cli.FormatNumber(int64(r.Count)),
			cli.FormatMoney(cur, r.Total),
			cli.FormatPercent(r.Share),
			cli.RenderHorizontalBar(r.Total.InexactFloat64(), peak, 20),
		})
	}
	tableRows = append(tableRows, []string{"---"}, []string{
		"Total", cli.FormatNumber(int64(len(txns))), cli.FormatMoney(cur, pipeline.Total(txns)), "", "",
	})

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{column, "Txns", "Spent", "Share", ""},
		Rows:    tableRows,
	}))
	return nil
}
