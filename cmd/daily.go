package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendburn/internal/cli"
	"github.com/theirongolddev/spendburn/internal/pipeline"
)

var flagDailyFill bool

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Daily spend table for a month",
	RunE:  runDaily,
}

func init() {
	dailyCmd.Flags().BoolVar(&flagDailyFill, "fill", true, "Show days without transactions as zero rows")
	rootCmd.AddCommand(dailyCmd)
}

func runDaily(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
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

	days := pipeline.DailySeries(pipeline.FilterByMonth(result.Ledger.Transactions(), month), flagDailyFill)
	if flagJSON {
		return printJSON(days)
	}
	if len(days) == 0 {
		fmt.Printf("\n  No transactions in %s.\n", cli.FormatMonth(month))
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("DAILY SPEND  " + cli.FormatMonth(month)))
	fmt.Println()

	cur := cfg.General.Currency
	values := make([]float64, len(days))
	rows := make([][]string, 0, len(days))
	for i, d := range days {
		values[i] = d.Total.InexactFloat64()
		rows = append(rows, []string{
			cli.FormatDate(d.Date),
			cli.FormatDayOfWeek(int(d.Date.Weekday())),
			cli.FormatNumber(int64(d.Count)),
			cli.FormatMoney(cur, d.Total),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Day", "Txns", "Spent"},
		Rows:    rows,
	}))
	fmt.Printf("\n  %s\n", cli.RenderSparkline(values))
	return nil
}
