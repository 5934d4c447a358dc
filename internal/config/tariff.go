package config

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/rentroll/internal/model"
)

// RateVersion is a utility rate that applies from a billing period onward.
type RateVersion struct {
	EffectiveFrom string  `toml:"effective_from"`
	Rate          float64 `toml:"rate"`
}

type tariffVersion struct {
	from int
	rate decimal.Decimal
}

// Tariff resolves the utility rate for a billing period.
type Tariff struct {
	base    decimal.Decimal
	history []tariffVersion // sorted by from ascending
}

// NewTariff builds a tariff from a base rate and effective-dated overrides.
// History entries whose period cannot be parsed are ignored.
func NewTariff(base float64, history []RateVersion) Tariff {
	t := Tariff{base: decimal.NewFromFloat(base)}
	for _, v := range history {
		key, ok := model.PeriodKey(v.EffectiveFrom)
		if !ok {
			continue
		}
		t.history = append(t.history, tariffVersion{from: key, rate: decimal.NewFromFloat(v.Rate)})
	}
	sort.SliceStable(t.history, func(i, j int) bool {
		return t.history[i].from < t.history[j].from
	})
	return t
}

// FlatTariff is a tariff with a single rate.
func FlatTariff(rate decimal.Decimal) Tariff {
	return Tariff{base: rate}
}

// Tariff returns the configured billing tariff.
func (c Config) Tariff() Tariff {
	return NewTariff(c.Billing.Rate, c.Billing.RateHistory)
}

// Base returns the rate used when no history entry applies.
func (t Tariff) Base() decimal.Decimal {
	return t.base
}

// RateFor returns the rate in effect for a period label. Labels that do not
// parse, or that precede every history entry, get the base rate.
func (t Tariff) RateFor(period string) decimal.Decimal {
	key, ok := model.PeriodKey(period)
	if !ok || len(t.history) == 0 {
		return t.base
	}

	selected := t.base
	for _, v := range t.history {
		if key < v.from {
			break
		}
		selected = v.rate
	}
	return selected
}

func validateHistory(history []RateVersion) error {
	seen := make(map[int]string, len(history))
	for _, v := range history {
		key, ok := model.PeriodKey(v.EffectiveFrom)
		if !ok {
			return fmt.Errorf("billing.rate_history: cannot parse effective_from %q", v.EffectiveFrom)
		}
		if v.Rate < 0 {
			return fmt.Errorf("billing.rate_history: rate for %s must not be negative", v.EffectiveFrom)
		}
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("billing.rate_history: %s and %s name the same month", prev, v.EffectiveFrom)
		}
		seen[key] = v.EffectiveFrom
	}
	return nil
}
