package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/rentroll/internal/tui/theme"
)

// StatusInfo is what the bottom bar reports about the current data.
type StatusInfo struct {
	Source      string
	DataAge     string
	FromCache   bool
	Refreshing  bool
	AutoRefresh bool
	Unavailable bool
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, info StatusInfo) string {
	t := theme.Active

	base := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	hint := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	warn := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Bold(true)

	left := hint.Render(" [?]help  [r]efresh  [q]uit")
	if info.AutoRefresh {
		left += accent.Render("  auto")
	}

	var right string
	switch {
	case info.Refreshing:
		right = accent.Render("refreshing… ")
	case info.Unavailable:
		right = warn.Render("source unavailable ")
	case info.DataAge != "":
		label := "fetched " + info.DataAge
		if info.FromCache {
			label += " (cached)"
		}
		right = base.Render(label + " ")
	}
	if info.Source != "" {
		src := info.Source
		maxSrc := width - lipgloss.Width(left) - lipgloss.Width(right) - 4
		if maxSrc < 8 {
			src = ""
		} else if lipgloss.Width(src) > maxSrc {
			src = "…" + string([]rune(src)[len([]rune(src))-maxSrc+1:])
		}
		if src != "" {
			right = hint.Render(src+"  ") + right
		}
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return left + lipgloss.NewStyle().Background(t.Surface).Width(gap).Render("") + right
}
