package cmd

import (
	"testing"

	"github.com/theirongolddev/rentroll/internal/config"
)

func TestRootRunsSummary(t *testing.T) {
	if rootCmd.RunE == nil {
		t.Fatal("root command has no default action")
	}
}

func TestLoadConfigAppliesFlags(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg := config.DefaultConfig()
	cfg.Billing.RateHistory = []config.RateVersion{{EffectiveFrom: "2025-01", Rate: 6}}
	if err := config.Save(cfg); err != nil {
		t.Fatal(err)
	}

	rate := rootCmd.PersistentFlags().Lookup("rate")
	t.Cleanup(func() {
		flagSource = ""
		flagRate = 0
		rate.Changed = false
	})
	if err := rootCmd.PersistentFlags().Set("rate", "7"); err != nil {
		t.Fatal(err)
	}
	flagSource = "ledger.xlsx"

	got, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if got.Billing.Rate != 7 {
		t.Errorf("rate = %v, want 7", got.Billing.Rate)
	}
	if len(got.Billing.RateHistory) != 0 {
		t.Errorf("rate history kept under --rate: %+v", got.Billing.RateHistory)
	}
	if got.Source.Kind != config.SourceFile || got.Source.Path != "ledger.xlsx" {
		t.Errorf("source = %+v, want file ledger.xlsx", got.Source)
	}
}
