package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendburn/internal/cli"
	"github.com/theirongolddev/spendburn/internal/forecast"
)

var flagForecastDays int

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast daily spend for the coming days",
	RunE:  runForecast,
}

func init() {
	forecastCmd.Flags().IntVar(&flagForecastDays, "days", 0, "Horizon in days (default [forecast] horizon_days)")
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	result, err := loadLedger(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	fc, closeCache, err := newForecaster(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	horizon := flagForecastDays
	if horizon == 0 {
		horizon = cfg.Forecast.HorizonDays
	}
	points, err := fc.Forecast(cmd.Context(), result.Ledger.Transactions(), horizon)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(points)
	}

	cur := cfg.General.Currency
	var total float64
	values := make([]float64, len(points))
	rows := make([][]string, 0, len(points)+2)
	for i, p := range points {
		total += p.Predicted
		values[i] = p.Predicted
		rows = append(rows, []string{
			cli.FormatDate(p.Date),
			cli.FormatDayOfWeek(int(p.Date.Weekday())),
			cli.FormatMoneyFloat(cur, p.Predicted),
			cli.FormatMoneyFloat(cur, p.Lower),
			cli.FormatMoneyFloat(cur, p.Upper),
		})
	}
	rows = append(rows, []string{"---"}, []string{"Total", "", cli.FormatMoneyFloat(cur, total), "", ""})

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("FORECAST  Next %d days", len(points))))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Day", "Predicted", "Lower", "Upper"},
		Rows:    rows,
	}))
	fmt.Printf("\n  %s\n", cli.RenderSparkline(values))
	fmt.Println(cli.RenderMuted("  Model: " + modelName(fc)))
	return nil
}

func modelName(fc *forecast.Forecaster) string {
	if fc == nil || fc.Model == nil {
		return "none"
	}
	return fc.Model.Name()
}
