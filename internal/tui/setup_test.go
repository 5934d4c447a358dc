package tui

import (
	"testing"

	"github.com/theirongolddev/rentroll/internal/config"
)

func TestSetupValuesRoundTrip(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Source.Kind = config.SourceFile
	cfg.Source.Path = "/srv/ledger.xlsx"

	v := NewSetupValues(cfg)
	if v.Location != "/srv/ledger.xlsx" {
		t.Fatalf("Location = %q, want file path", v.Location)
	}

	v.SourceKind = config.SourceCSVURL
	v.Location = " https://example.com/ledger.csv "
	v.Rate = "6.5"
	v.DueDay = "10"
	v.Currency = "NT$"
	v.Theme = "neon"

	got, err := v.Apply(cfg)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.Source.Kind != config.SourceCSVURL || got.Source.URL != "https://example.com/ledger.csv" {
		t.Errorf("source = %+v", got.Source)
	}
	if got.Billing.Rate != 6.5 || got.Billing.DueDay != 10 || got.Billing.Currency != "NT$" {
		t.Errorf("billing = %+v", got.Billing)
	}
	if got.Appearance.Theme != "neon" {
		t.Errorf("theme = %q", got.Appearance.Theme)
	}
}

func TestSetupValuesApplyRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		edit func(*SetupValues)
	}{
		{"rate not a number", func(v *SetupValues) { v.Rate = "five" }},
		{"negative rate", func(v *SetupValues) { v.Rate = "-1" }},
		{"due day zero", func(v *SetupValues) { v.DueDay = "0" }},
		{"due day too late", func(v *SetupValues) { v.DueDay = "31" }},
		{"unknown source kind", func(v *SetupValues) { v.SourceKind = "ftp" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewSetupValues(config.DefaultConfig())
			v.Location = "https://example.com/x.csv"
			tt.edit(v)
			if _, err := v.Apply(config.DefaultConfig()); err == nil {
				t.Fatal("Apply: want error")
			}
		})
	}
}

func TestSetupKeepsRateHistoryWhenRateUnchanged(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Source.URL = "https://example.com/x.csv"
	cfg.Billing.RateHistory = []config.RateVersion{{EffectiveFrom: "2024-01", Rate: 6}}

	v := NewSetupValues(cfg)
	got, err := v.Apply(cfg)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(got.Billing.RateHistory) != 1 {
		t.Fatalf("rate history dropped: %+v", got.Billing.RateHistory)
	}
}

func TestNewSetupFormBuilds(t *testing.T) {
	if NewSetupForm(NewSetupValues(config.DefaultConfig())) == nil {
		t.Fatal("NewSetupForm returned nil")
	}
}
