package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/rentroll/internal/tui/theme"
)

// Bar is one labeled row of a horizontal bar chart.
type Bar struct {
	Label string
	Value float64
	Text  string // value as displayed; defaults to %.0f
}

// HBarChart renders one bar per row, scaled to the largest absolute value.
// Negative values are drawn in red so meter anomalies stand out.
func HBarChart(bars []Bar, width int) string {
	if len(bars) == 0 {
		return ""
	}
	t := theme.Active

	labelW := 0
	textW := 0
	peak := 0.0
	for i, b := range bars {
		if w := lipgloss.Width(b.Label); w > labelW {
			labelW = w
		}
		if bars[i].Text == "" {
			bars[i].Text = fmt.Sprintf("%.0f", b.Value)
		}
		if w := lipgloss.Width(bars[i].Text); w > textW {
			textW = w
		}
		if a := math.Abs(b.Value); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		peak = 1
	}

	barW := width - labelW - textW - 3
	if barW < 5 {
		barW = 5
	}

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	posStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	negStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	blocks := []rune{' ', '▏', '▎', '▍', '▌', '▋', '▊', '▉', '█'}

	var sb strings.Builder
	for i, b := range bars {
		cells := math.Abs(b.Value) / peak * float64(barW)
		full := int(cells)
		partial := int((cells - float64(full)) * 8)

		bar := strings.Repeat("█", full)
		if full < barW && partial > 0 {
			bar += string(blocks[partial])
		}
		style := posStyle
		if b.Value < 0 {
			style = negStyle
		}

		sb.WriteString(labelStyle.Render(b.Label + strings.Repeat(" ", labelW-lipgloss.Width(b.Label))))
		sb.WriteString(spaceStyle.Render(" "))
		sb.WriteString(style.Render(bar))
		sb.WriteString(spaceStyle.Render(strings.Repeat(" ", barW-lipgloss.Width(bar)+1)))
		sb.WriteString(valueStyle.Render(strings.Repeat(" ", textW-lipgloss.Width(b.Text)) + b.Text))
		if i < len(bars)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
