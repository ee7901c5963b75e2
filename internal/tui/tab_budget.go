package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/spendburn/internal/cli"
	"github.com/theirongolddev/spendburn/internal/tui/components"
	"github.com/theirongolddev/spendburn/internal/tui/theme"
)

func (a App) renderBudgetTab(cw int) string {
	t := theme.Active
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	month := a.selectedMonth()

	if !a.hasBudget {
		body := "No monthly budget configured.\n\n" +
			dim.Render(fmt.Sprintf("Press + to start at the %s floor, or set [budget] monthly in %s",
				a.money(a.tracker.Floor), "config.toml"))
		return components.ContentCard("Budget", body, cw)
	}

	st := a.budgetState()
	verdictColor := t.Good
	verdict := "Within budget"
	if st.Exceeded {
		verdictColor = t.Bad
		verdict = "Over budget"
	}
	remainingColor := t.Good
	if st.Remaining.IsNegative() {
		remainingColor = t.Bad
	}

	var b strings.Builder
	metrics := []components.Metric{
		{Label: "Budget", Value: a.money(st.Budget), Delta: "step " + a.money(a.tracker.Step)},
		{Label: "Spent · " + cli.FormatMonth(month), Value: a.money(st.Spent)},
		{Label: "Remaining", Value: a.money(st.Remaining), Color: remainingColor},
		{Label: "Verdict", Value: verdict, Color: verdictColor},
	}
	b.WriteString(components.MetricCardRow(metrics, cw))
	b.WriteString("\n")

	inner := components.CardInnerWidth(cw)
	var body strings.Builder
	body.WriteString(components.BudgetBar("Used", st.UsedPercent/100, 6, max(inner-16, 10)))
	if a.budgetErr != nil {
		body.WriteString("\n\n")
		body.WriteString(lipgloss.NewStyle().Foreground(t.Warn).Background(t.Surface).Render(a.budgetErr.Error()))
	}
	body.WriteString("\n\n")
	body.WriteString(dim.Render(fmt.Sprintf("+/- adjust by %s · floor %s · [ ] change month",
		a.money(a.tracker.Step), a.money(a.tracker.Floor))))
	b.WriteString(components.ContentCard("Utilization", body.String(), cw))
	b.WriteString("\n")

	// Cumulative spend across the month against the budget line
	cumulative := make([]float64, len(a.daily))
	running := 0.0
	for i, d := range a.daily {
		running += d.Total.InexactFloat64()
		cumulative[i] = running
	}
	chart := components.BarChart(cumulative, nil, a.cfg.General.Currency,
		t.ForUsage(st.UsedPercent/100), inner, 6)
	b.WriteString(components.ContentCard("Cumulative Spend", chart, cw))
	return b.String()
}
