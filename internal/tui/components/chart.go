package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/spendburn/internal/tui/theme"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders a unicode sparkline from values. Negative values
// (refund-heavy days) render as the lowest block.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active

	peak := 0.0
	for _, v := range values {
		peak = max(peak, v)
	}
	if peak <= 0 {
		peak = 1
	}

	var buf strings.Builder
	buf.Grow(len(values) * 3)
	for _, v := range values {
		idx := int(v / peak * float64(len(sparkBlocks)-1))
		idx = min(max(idx, 0), len(sparkBlocks)-1)
		buf.WriteRune(sparkBlocks[idx])
	}
	return lipgloss.NewStyle().Foreground(color).Background(t.Surface).Render(buf.String())
}

// BarChart renders a vertical bar chart of spend values with a money-scaled
// Y axis. Falls back to a sparkline when there is no room for axes.
func BarChart(values []float64, labels []string, symbol string, color lipgloss.Color, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	if width < 15 || height < 3 {
		return Sparkline(values, color)
	}
	t := theme.Active

	peak := 0.0
	for _, v := range values {
		peak = max(peak, v)
	}
	if peak <= 0 {
		peak = 1
	}

	step := chartTickStep(peak)
	for int(math.Ceil(peak/step)) > max(height/2, 2) {
		step *= 2
	}
	ceiling := math.Ceil(peak/step) * step
	ticks := max(int(math.Round(ceiling/step)), 1)
	rowsPerTick := max(height/ticks, 2)
	chartH := rowsPerTick * ticks

	labelW := max(len(formatChartLabel(symbol, ceiling))+1, 4)
	chartW := max(width-labelW-1, 5)

	values, labels = fitBars(values, labels, chartW)
	n := len(values)
	gap := 1
	if n == 1 {
		gap = 0
	}
	barW := min(max((chartW-(n-1)*gap)/n, 1), 6)
	axisLen := n*barW + (n-1)*gap

	axis := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	blank := lipgloss.NewStyle().Background(t.Surface)
	eighths := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	var b strings.Builder
	for row := chartH; row >= 1; row-- {
		top := ceiling * float64(row) / float64(chartH)
		bottom := ceiling * float64(row-1) / float64(chartH)

		barColor := color
		if float64(row)/float64(chartH) > 0.8 {
			barColor = t.AccentBright
		}
		bar := lipgloss.NewStyle().Foreground(barColor).Background(t.Surface)

		label := ""
		if row%rowsPerTick == 0 {
			label = formatChartLabel(symbol, step*float64(row/rowsPerTick))
		}
		b.WriteString(axis.Render(fmt.Sprintf("%*s│", labelW, label)))

		for i, v := range values {
			if i > 0 && gap > 0 {
				b.WriteString(blank.Render(" "))
			}
			switch {
			case v >= top:
				b.WriteString(bar.Render(strings.Repeat("█", barW)))
			case v > bottom:
				idx := min(max(int((v-bottom)/(top-bottom)*8), 1), 8)
				b.WriteString(bar.Render(strings.Repeat(string(eighths[idx]), barW)))
			default:
				b.WriteString(blank.Render(strings.Repeat(" ", barW)))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(axis.Render(fmt.Sprintf("%*s└", labelW, "0")))
	b.WriteString(axis.Render(strings.Repeat("─", axisLen)))

	if len(labels) == n {
		b.WriteString("\n")
		b.WriteString(blank.Render(strings.Repeat(" ", labelW+1)))
		b.WriteString(axis.Render(xAxisLabels(labels, barW+gap, axisLen)))
	}
	return b.String()
}

// fitBars downsamples values so every bar is at least two cells wide.
func fitBars(values []float64, labels []string, chartW int) ([]float64, []string) {
	n := len(values)
	fit := max((chartW+1)/3, 2)
	if n <= fit {
		return values, labels
	}
	sampled := make([]float64, fit)
	var sampledLabels []string
	if len(labels) == n {
		sampledLabels = make([]string, fit)
	}
	for i := range sampled {
		src := i * (n - 1) / (fit - 1)
		sampled[i] = values[src]
		if sampledLabels != nil {
			sampledLabels[i] = labels[src]
		}
	}
	return sampled, sampledLabels
}

// xAxisLabels lays labels under their bars, skipping any that would overlap.
func xAxisLabels(labels []string, stride, axisLen int) string {
	buf := []rune(strings.Repeat(" ", axisLen))
	lastEnd := -1
	for i, lbl := range labels {
		pos := i * stride
		r := []rune(lbl)
		if pos <= lastEnd || pos+len(r) > axisLen {
			continue
		}
		copy(buf[pos:], r)
		lastEnd = pos + len(r)
	}
	return strings.TrimRight(string(buf), " ")
}

// chartTickStep computes a nice tick interval targeting ~5 ticks.
func chartTickStep(maxVal float64) float64 {
	if maxVal <= 0 {
		return 1
	}
	rough := maxVal / 5
	base := math.Pow(10, math.Floor(math.Log10(rough)))
	switch frac := rough / base; {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}

func formatChartLabel(symbol string, v float64) string {
	units := []struct {
		div    float64
		suffix string
	}{{1e9, "B"}, {1e6, "M"}, {1e3, "K"}}
	for _, u := range units {
		if v >= u.div {
			if v == math.Trunc(v/u.div)*u.div {
				return fmt.Sprintf("%s%.0f%s", symbol, v/u.div, u.suffix)
			}
			return fmt.Sprintf("%s%.1f%s", symbol, v/u.div, u.suffix)
		}
	}
	return fmt.Sprintf("%s%.0f", symbol, v)
}
