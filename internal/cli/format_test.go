package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "$0"},
		{"250", "$250"},
		{"10250", "$10,250"},
		{"1234567.5", "$1,234,567.5"},
		{"6.755", "$6.76"},
		{"-250", "-$250"},
	}
	for _, tt := range tests {
		if got := FormatMoney(decimal.RequireFromString(tt.in), "$"); got != tt.want {
			t.Errorf("FormatMoney(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := FormatSignedMoney(decimal.NewFromInt(50), "NT$"); got != "+NT$50" {
		t.Errorf("FormatSignedMoney = %q", got)
	}
}

func TestFormatUnits(t *testing.T) {
	if got := FormatUnits(decimal.RequireFromString("-1500.25")); got != "-1,500.25" {
		t.Errorf("FormatUnits = %q", got)
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[int64]string{0: "0", 999: "999", 1000: "1,000", -1234567: "-1,234,567"}
	for in, want := range tests {
		if got := FormatNumber(in); got != want {
			t.Errorf("FormatNumber(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		at   time.Time
		want string
	}{
		{time.Time{}, "never"},
		{now.Add(-3 * time.Second), "3s ago"},
		{now.Add(-125 * time.Second), "2m ago"},
		{now.Add(-5 * time.Hour), "5h ago"},
	}
	for _, tt := range tests {
		if got := FormatAge(tt.at, now); got != tt.want {
			t.Errorf("FormatAge(%v) = %q, want %q", tt.at, got, tt.want)
		}
	}
}

func TestRenderTableCJKWidth(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"Unit", "Tenant"},
		Rows:    [][]string{{"A1", "王小明"}, {"B22", "Lee"}},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	want := lipgloss.Width(lines[0])
	for i, l := range lines {
		if w := lipgloss.Width(l); w != want {
			t.Errorf("line %d width %d, want %d: %q", i, w, want, l)
		}
	}
}

func TestRenderRatioBar(t *testing.T) {
	if got := RenderRatioBar(0, 0, 10); !strings.Contains(got, "no units") {
		t.Errorf("empty ratio bar = %q", got)
	}
	if got := RenderRatioBar(2, 3, 9); !strings.Contains(got, "2/3 paid") {
		t.Errorf("ratio bar = %q", got)
	}
}

func TestRenderTableSeparatorAndAlignment(t *testing.T) {
	out := RenderTable(Table{
		Headers:   []string{"Item", "Note", "Amount"},
		Rows:      [][]string{{"Rent", "base", "8000"}, {"---"}, {"Total", "", "12"}, {"Short"}},
		LeftAlign: []int{1},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 8 {
		t.Fatalf("got %d lines, want 8:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[4], "├") {
		t.Errorf("separator row = %q", lines[4])
	}
	want := lipgloss.Width(lines[0])
	for i, l := range lines {
		if w := lipgloss.Width(l); w != want {
			t.Errorf("line %d width %d, want %d", i, w, want)
		}
	}
	if !strings.Contains(lines[5], "    12 │") {
		t.Errorf("amount column not right-aligned: %q", lines[5])
	}
	if !strings.Contains(lines[3], "│ base │") {
		t.Errorf("note column not left-aligned: %q", lines[3])
	}
}
