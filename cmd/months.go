package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendburn/internal/cli"
	"github.com/theirongolddev/spendburn/internal/pipeline"
)

var flagSeasonal bool

var monthsCmd = &cobra.Command{
	Use:   "months",
	Short: "Spend per calendar month",
	RunE:  runMonths,
}

func init() {
	monthsCmd.Flags().BoolVar(&flagSeasonal, "seasonal", false, "Only the configured seasonal months, across every year")
	rootCmd.AddCommand(monthsCmd)
}

func runMonths(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	result, err := loadLedger(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	txns := result.Ledger.Transactions()
	title := "MONTHLY SPEND"
	if flagSeasonal {
		txns = pipeline.FilterByMonths(txns, cfg.General.Seasonal()...)
		title += "  " + cli.FormatMonths(cfg.General.Seasonal())
	}
	series := pipeline.MonthlySeries(txns)

	if flagJSON {
		return printJSON(series)
	}
	if len(series) == 0 {
		printEmpty(cfg)
		return nil
	}

	cur := cfg.General.Currency
	peak := 0.0
	for _, m := range series {
		peak = max(peak, m.Total.InexactFloat64())
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(title))
	fmt.Println()

	rows := make([][]string, 0, len(series)+2)
	for i, m := range series {
		delta := ""
		if i > 0 {
			delta = cli.FormatDelta(cur, m.Total, series[i-1].Total)
		}
		rows = append(rows, []string{
			cli.FormatMonth(m.Month),
			cli.FormatNumber(int64(m.Count)),
			cli.FormatMoney(cur, m.Total),
			delta,
			cli.RenderHorizontalBar(m.Total.InexactFloat64(), peak, 20),
		})
	}
	rows = append(rows, []string{"---"}, []string{
		"Total", cli.FormatNumber(int64(len(txns))), cli.FormatMoney(cur, pipeline.Total(txns)), "", "",
	})

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Month", "Txns", "Spent", "Change", ""},
		Rows:    rows,
	}))
	return nil
}
