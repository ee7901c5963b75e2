package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/spendburn/internal/cli"
	"github.com/theirongolddev/spendburn/internal/forecast"
	"github.com/theirongolddev/spendburn/internal/tui/components"
	"github.com/theirongolddev/spendburn/internal/tui/theme"
)

func (a App) renderForecastTab(cw, h int) string {
	t := theme.Active
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	cur := a.cfg.General.Currency

	switch {
	case a.forecaster == nil:
		return components.ContentCard("Forecast", muted.Render("Forecasting is disabled"), cw)
	case a.forecasting:
		return components.ContentCard("Forecast",
			a.spinner.View()+muted.Render(fmt.Sprintf(" Forecasting the next %d days…", a.horizon)), cw)
	case a.forecastErr != nil:
		msg := a.forecastErr.Error()
		if errors.Is(a.forecastErr, forecast.ErrInsufficientHistory) {
			msg += "\n\nAdd more dated transactions to enable forecasting."
		}
		return components.ContentCard("Forecast",
			lipgloss.NewStyle().Foreground(t.Bad).Background(t.Surface).Render(msg), cw)
	case len(a.forecast) == 0:
		return components.ContentCard("Forecast", muted.Render("No forecast"), cw)
	}

	var total, peak float64
	peakIdx := 0
	for i, p := range a.forecast {
		total += p.Predicted
		if p.Predicted > peak {
			peak, peakIdx = p.Predicted, i
		}
	}

	var b strings.Builder
	modelName := ""
	if a.forecaster.Model != nil {
		modelName = a.forecaster.Model.Name()
	}
	metrics := []components.Metric{
		{Label: fmt.Sprintf("Next %d days", len(a.forecast)), Value: cli.FormatMoneyFloat(cur, total), Color: t.Info},
		{Label: "Per Day", Value: cli.FormatMoneyFloat(cur, total/float64(len(a.forecast)))},
		{Label: "Peak Day", Value: cli.FormatMoneyFloat(cur, peak), Delta: cli.FormatDate(a.forecast[peakIdx].Date)},
		{Label: "Model", Value: modelName},
	}
	b.WriteString(components.MetricCardRow(metrics, cw))
	b.WriteString("\n")

	values := make([]float64, len(a.forecast))
	labels := make([]string, len(a.forecast))
	for i, p := range a.forecast {
		values[i] = p.Predicted
		labels[i] = p.Date.Format("Jan 2")
	}
	chart := components.BarChart(values, labels, cur, t.Info, components.CardInnerWidth(cw), 6)
	b.WriteString(components.ContentCard("Predicted Daily Spend", chart, cw))
	b.WriteString("\n")

	// Table rows fill whatever height is left.
	used := lipgloss.Height(b.String())
	rows := max(h-used-4, 3)

	header := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Bold(true)
	cell := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	band := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var tbl strings.Builder
	tbl.WriteString(header.Render(fmt.Sprintf("%-12s %14s %14s %14s", "Date", "Predicted", "Lower", "Upper")))
	for i, p := range a.forecast {
		if i == rows {
			tbl.WriteString("\n" + band.Render(fmt.Sprintf("… %d more days", len(a.forecast)-rows)))
			break
		}
		tbl.WriteString("\n")
		tbl.WriteString(cell.Render(fmt.Sprintf("%-12s %14s ", cli.FormatDate(p.Date), cli.FormatMoneyFloat(cur, p.Predicted))))
		tbl.WriteString(band.Render(fmt.Sprintf("%14s %14s", cli.FormatMoneyFloat(cur, p.Lower), cli.FormatMoneyFloat(cur, p.Upper))))
	}
	b.WriteString(components.ContentCard("Daily Forecast", tbl.String(), cw))
	return b.String()
}
