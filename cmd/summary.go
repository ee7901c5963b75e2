package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendburn/internal/cli"
	"github.com/theirongolddev/spendburn/internal/pipeline"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Spending summary across the whole ledger",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	result, err := loadLedger(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	txns := result.Ledger.Transactions()
	stats := pipeline.Summarize(txns, cfg.General.Seasonal())

	if flagJSON {
		return printJSON(stats)
	}
	if stats.Transactions == 0 {
		printEmpty(cfg)
		return nil
	}

	month, err := resolveMonth(result)
	if err != nil {
		return err
	}
	cur := cfg.General.Currency
	spent := pipeline.Total(pipeline.FilterByMonth(txns, month))
	prev := pipeline.Total(pipeline.FilterByMonth(txns, month.Prev()))

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("SPENDING  %s → %s",
		cli.FormatDate(stats.FirstDate), cli.FormatDate(stats.LastDate))))
	fmt.Println()

	rows := [][]string{
		{"Transactions", cli.FormatNumber(int64(stats.Transactions))},
		{"Active Days", cli.FormatNumber(int64(stats.ActiveDays))},
		{"Months", cli.FormatNumber(int64(stats.Months))},
		{"---"},
		{"Total Spent", cli.FormatMoney(cur, stats.Total)},
		{"Per Month", cli.FormatMoney(cur, stats.PerMonth)},
		{"Per Active Day", cli.FormatMoney(cur, stats.PerActiveDay)},
		{"Seasonal (" + cli.FormatMonths(stats.SeasonalMonths) + ")", cli.FormatMoney(cur, stats.SeasonalTotal)},
		{"---"},
	}
	if stats.TopCategory != nil {
		rows = append(rows, []string{"Top Category", fmt.Sprintf("%s  %s (%s)",
			cli.CategoryLabel(stats.TopCategory.Key), cli.FormatMoney(cur, stats.TopCategory.Total), cli.FormatPercent(stats.TopCategory.Share))})
	}
	if stats.TopMerchant != nil {
		rows = append(rows, []string{"Top Merchant", fmt.Sprintf("%s  %s (%s)",
			cli.MerchantLabel(stats.TopMerchant.Key), cli.FormatMoney(cur, stats.TopMerchant.Total), cli.FormatPercent(stats.TopMerchant.Share))})
	}
	if stats.Largest != nil {
		rows = append(rows, []string{"Largest", fmt.Sprintf("%s  %s at %s",
			cli.FormatMoney(cur, stats.Largest.Amount), cli.FormatDate(stats.Largest.Date), cli.MerchantLabel(stats.Largest.Merchant))})
	}
	rows = append(rows,
		[]string{"---"},
		[]string{cli.FormatMonth(month), fmt.Sprintf("%s  (%s vs %s)",
			cli.FormatMoney(cur, spent), cli.FormatDelta(cur, spent, prev), cli.FormatMonth(month.Prev()))},
	)

	fmt.Print(cli.RenderTable(cli.Table{Rows: rows}))
	return nil
}
