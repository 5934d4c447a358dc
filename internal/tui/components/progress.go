package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/rentroll/internal/tui/theme"
)

// ColorForPaid grades a paid fraction: green when most units have paid,
// red when most have not.
func ColorForPaid(paid float64) lipgloss.Color {
	t := theme.Active
	switch {
	case paid >= 0.9:
		return t.Green
	case paid >= 0.7:
		return t.Yellow
	case paid >= 0.5:
		return t.Orange
	default:
		return t.Red
	}
}

// RatioBar renders the paid/unpaid split as a two-color bar followed by
// "paid/total". total of zero renders an empty bar.
func RatioBar(paid, total, width int) string {
	t := theme.Active
	if width < 4 {
		width = 4
	}

	frac := 0.0
	if total > 0 {
		frac = float64(paid) / float64(total)
	}
	frac = clamp01(frac)

	bar := progress.New(
		progress.WithSolidFill(string(t.Green)),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.Red)
	if total == 0 {
		bar.EmptyColor = string(t.TextDim)
	}

	countStyle := lipgloss.NewStyle().Foreground(ColorForPaid(frac)).Background(t.Surface).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	return bar.ViewAs(frac) +
		mutedStyle.Render(" ") +
		countStyle.Render(fmt.Sprintf("%d/%d", paid, total)) +
		mutedStyle.Render(" paid")
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
