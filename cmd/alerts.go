package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendburn/internal/alert"
	"github.com/theirongolddev/spendburn/internal/cli"
)

var flagTriggeredOnly bool

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Run the spending alert rules over the ledger",
	RunE:  runAlerts,
}

func init() {
	alertsCmd.Flags().BoolVar(&flagTriggeredOnly, "triggered", false, "Only show alerts that fired")
	rootCmd.AddCommand(alertsCmd)
}

func runAlerts(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	result, err := loadLedger(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	verdicts := alert.NewEngine(cfg.Alerts, cfg.General.Currency).Evaluate(result.Ledger.Transactions())
	if flagTriggeredOnly {
		verdicts = alert.Triggered(verdicts)
	}

	if flagJSON {
		return printJSON(verdicts)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("ALERTS"))
	fmt.Println()
	if len(verdicts) == 0 {
		fmt.Println("  No alerts fired.")
		return nil
	}
	for _, v := range verdicts {
		fmt.Println(cli.RenderAlert(v))
	}
	return nil
}
