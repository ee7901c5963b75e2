package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/spendburn/internal/tui/theme"
)

// RenderStatusBar renders the bottom status bar. left carries context such as
// the selected month; dataAge is shown on the right when non-empty.
func RenderStatusBar(width int, left, dataAge string) string {
	t := theme.Active

	hints := " [?]help  [r]efresh  [q]uit"
	if left != "" {
		hints += "  │ " + left
	}
	right := ""
	if dataAge != "" {
		right = fmt.Sprintf("Data: %s ", dataAge)
	}

	padding := max(width-lipgloss.Width(hints)-lipgloss.Width(right), 0)
	return lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface).
		Width(width).
		MaxWidth(width).
		Render(hints + strings.Repeat(" ", padding) + right)
}
