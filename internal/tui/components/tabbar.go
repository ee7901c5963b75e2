package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/spendburn/internal/tui/theme"
)

// Tab represents a single tab in the tab bar.
type Tab struct {
	Name   string
	Key    rune
	KeyPos int // position of the shortcut letter in the name
}

// Tabs defines all available tabs.
var Tabs = []Tab{
	{Name: "Overview", Key: 'o', KeyPos: 0},
	{Name: "Month", Key: 'm', KeyPos: 0},
	{Name: "Budget", Key: 'b', KeyPos: 0},
	{Name: "Forecast", Key: 'f', KeyPos: 0},
	{Name: "Alerts", Key: 'a', KeyPos: 0},
}

const tabGap = 2

// TabVisualWidth returns the rendered width of tab i. The active tab drops
// the bracketed shortcut, so it is two cells narrower.
func TabVisualWidth(i, activeIdx int) int {
	w := lipgloss.Width(Tabs[i].Name)
	if i != activeIdx {
		w += 2
	}
	return w
}

// RenderTabBar renders the tab bar with the given active index.
func RenderTabBar(activeIdx, width int) string {
	t := theme.Active

	bg := lipgloss.NewStyle().Background(t.Surface)
	activeStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceHover).Bold(true)
	inactiveStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	dimKeyStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	parts := make([]string, len(Tabs))
	for i, tab := range Tabs {
		if i == activeIdx {
			parts[i] = activeStyle.Render(tab.Name)
			continue
		}
		before, key, after := tab.Name[:tab.KeyPos], tab.Name[tab.KeyPos:tab.KeyPos+1], tab.Name[tab.KeyPos+1:]
		parts[i] = inactiveStyle.Render(before) +
			dimKeyStyle.Render("[") + keyStyle.Render(key) + dimKeyStyle.Render("]") +
			inactiveStyle.Render(after)
	}

	row := bg.Render(" ") + strings.Join(parts, bg.Render(strings.Repeat(" ", tabGap)))
	if pad := width - lipgloss.Width(row); pad > 0 {
		row += bg.Render(strings.Repeat(" ", pad))
	}
	return row
}

// TabAtX maps a column on the tab bar row to a tab index, or -1.
func TabAtX(x, activeIdx int) int {
	pos := 1 // leading space
	for i := range Tabs {
		w := TabVisualWidth(i, activeIdx)
		if x >= pos && x < pos+w {
			return i
		}
		pos += w + tabGap
	}
	return -1
}

// TabIdxByKey returns the tab index for a given key press, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
