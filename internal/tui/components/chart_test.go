package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestHBarChartRowsShareWidth(t *testing.T) {
	out := HBarChart([]Bar{
		{Label: "101", Value: 120},
		{Label: "102", Value: 35.5, Text: "35.5"},
		{Label: "203", Value: -20},
		{Label: "頂樓", Value: 0},
	}, 40)

	lines := strings.Split(out, "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(lines))
	}
	want := lipgloss.Width(lines[0])
	for i, l := range lines {
		if w := lipgloss.Width(l); w != want {
			t.Errorf("line %d width %d, want %d", i, w, want)
		}
	}
	if !strings.Contains(lines[0], "120") || !strings.Contains(lines[1], "35.5") {
		t.Errorf("value labels missing:\n%s", out)
	}
}

func TestHBarChartEmpty(t *testing.T) {
	if got := HBarChart(nil, 40); got != "" {
		t.Fatalf("HBarChart(nil) = %q", got)
	}
}

func TestRatioBarCounts(t *testing.T) {
	out := RatioBar(3, 4, 20)
	if !strings.Contains(out, "3/4") {
		t.Fatalf("RatioBar missing count: %q", out)
	}
	if !strings.Contains(RatioBar(0, 0, 20), "0/0") {
		t.Fatal("RatioBar(0, 0) missing count")
	}
}

func TestTabVisualWidth(t *testing.T) {
	settings := Tabs[len(Tabs)-1]
	if TabVisualWidth(settings, false) != TabVisualWidth(settings, true)+3 {
		t.Fatal("inactive Settings tab should carry a [x] hint")
	}
	if TabIdxByKey('s') != 1 || TabIdxByKey('z') != -1 {
		t.Fatal("TabIdxByKey mismatch")
	}
}
