package model

import "github.com/shopspring/decimal"

// PortfolioSummary holds fleet-wide figures over a set of unit-period records.
type PortfolioSummary struct {
	UnitCount   int `json:"unit_count"`
	PaidCount   int `json:"paid_count"`
	UnpaidCount int `json:"unpaid_count"`

	// TotalProjectedRevenue prefers the source's own combined column per
	// record and falls back to the derived rent due.
	TotalProjectedRevenue decimal.Decimal `json:"total_projected_revenue"`

	PendingRepairCount int             `json:"pending_repair_count"`
	TotalRepairCost    decimal.Decimal `json:"total_repair_cost"`

	// DerivedRevenue is the sum of freshly computed rent due for every record.
	DerivedRevenue decimal.Decimal `json:"derived_revenue"`
	// SourceCombinedCount is how many records contributed a source-recorded total.
	SourceCombinedCount int `json:"source_combined_count"`
	// RevenueDiscrepancy = TotalProjectedRevenue - DerivedRevenue.
	RevenueDiscrepancy decimal.Decimal `json:"revenue_discrepancy"`

	AnomalyCount int `json:"anomaly_count"`
}

// PaidFraction is the share of units marked paid, 0 for an empty portfolio.
func (s PortfolioSummary) PaidFraction() float64 {
	if s.UnitCount == 0 {
		return 0
	}
	return float64(s.PaidCount) / float64(s.UnitCount)
}

// UnpaidFraction is the share of units not marked paid, 0 for an empty portfolio.
func (s PortfolioSummary) UnpaidFraction() float64 {
	if s.UnitCount == 0 {
		return 0
	}
	return float64(s.UnpaidCount) / float64(s.UnitCount)
}

// HasDiscrepancy reports whether the source totals disagree with derived ones.
func (s PortfolioSummary) HasDiscrepancy() bool {
	return !s.RevenueDiscrepancy.IsZero()
}
