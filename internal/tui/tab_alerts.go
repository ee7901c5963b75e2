package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/spendburn/internal/model"
	"github.com/theirongolddev/spendburn/internal/tui/components"
	"github.com/theirongolddev/spendburn/internal/tui/theme"
)

func (a App) renderAlertsTab(cw int) string {
	t := theme.Active
	if len(a.alerts) == 0 {
		return components.ContentCard("Alerts", "No alert rules configured", cw)
	}

	ruleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	msgStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface).
		Width(max(components.CardInnerWidth(cw)-4, 10))

	var b strings.Builder
	for i, v := range a.alerts {
		if i > 0 {
			b.WriteString("\n\n")
		}
		marker, color := "✓", t.Good
		switch v.Severity {
		case model.SeverityWarn:
			marker, color = "!", t.Warn
		case model.SeverityInfo:
			marker, color = "i", t.Info
		}
		b.WriteString(lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true).Render(" " + marker + "  "))
		b.WriteString(ruleStyle.Render(strings.ReplaceAll(v.Rule, "_", " ")))
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Background(t.Surface).Render("    "))
		b.WriteString(msgStyle.Render(v.Message))
	}
	return components.ContentCard("Alerts · whole ledger", b.String(), cw)
}
