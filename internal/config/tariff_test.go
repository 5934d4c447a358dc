package config

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestTariffRateFor_UsesEffectivePeriod(t *testing.T) {
	tariff := NewTariff(5.0, []RateVersion{
		{EffectiveFrom: "2025-07", Rate: 6.0},
		{EffectiveFrom: "2025-01", Rate: 5.5},
	})

	tests := []struct {
		period string
		want   string
	}{
		{"2024-12", "5"},
		{"2025-01", "5.5"},
		{"2025-04", "5.5"},
		{"114年7月", "6"},
		{"2026-02", "6"},
		{"", "5"},
		{"draft", "5"},
	}
	for _, tt := range tests {
		got := tariff.RateFor(tt.period)
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("RateFor(%q) = %s, want %s", tt.period, got, tt.want)
		}
	}
}

func TestTariffRateFor_FlatWithoutHistory(t *testing.T) {
	tariff := NewTariff(5.0, nil)
	if got := tariff.RateFor("2025-05"); !got.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("RateFor = %s, want 5", got)
	}
	if !tariff.Base().Equal(decimal.NewFromInt(5)) {
		t.Fatalf("Base = %s, want 5", tariff.Base())
	}
}

func TestValidateHistory(t *testing.T) {
	if err := validateHistory([]RateVersion{{EffectiveFrom: "2025-01", Rate: 5}, {EffectiveFrom: "2025/1", Rate: 6}}); err == nil {
		t.Fatal("expected duplicate month error")
	}
	if err := validateHistory([]RateVersion{{EffectiveFrom: "soon", Rate: 5}}); err == nil {
		t.Fatal("expected parse error")
	}
	if err := validateHistory([]RateVersion{{EffectiveFrom: "2025-01", Rate: -1}}); err == nil {
		t.Fatal("expected negative rate error")
	}
	if err := validateHistory([]RateVersion{{EffectiveFrom: "2025-01", Rate: 5}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
