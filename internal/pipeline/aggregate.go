package pipeline

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/rentroll/internal/config"
	"github.com/theirongolddev/rentroll/internal/model"
)

// Aggregator computes portfolio figures. Every figure is a sum or count, so
// the result does not depend on record order.
type Aggregator struct {
	tariff  config.Tariff
	pending []string
}

// NewAggregator returns an Aggregator billing at tariff and treating any of
// pending as an open repair.
func NewAggregator(tariff config.Tariff, pending []string) *Aggregator {
	return &Aggregator{tariff: tariff, pending: pending}
}

// NewAggregatorFromConfig is NewAggregator over cfg's tariff and labels.
func NewAggregatorFromConfig(cfg config.Config) *Aggregator {
	return NewAggregator(cfg.Tariff(), cfg.Labels.RepairPending)
}

// Aggregate summarizes records. An empty input gives an all-zero summary.
func (a *Aggregator) Aggregate(records []model.UnitPeriodRecord) model.PortfolioSummary {
	s := model.PortfolioSummary{
		TotalProjectedRevenue: decimal.Zero,
		TotalRepairCost:       decimal.Zero,
		DerivedRevenue:        decimal.Zero,
		RevenueDiscrepancy:    decimal.Zero,
	}

	for _, rec := range records {
		s.UnitCount++
		if rec.PaymentStatus.IsPaid() {
			s.PaidCount++
		} else {
			s.UnpaidCount++
		}

		bill := BillRecord(rec, a.tariff)
		s.DerivedRevenue = s.DerivedRevenue.Add(bill.RentDue)
		if rec.CombinedDue.Valid {
			s.SourceCombinedCount++
			s.TotalProjectedRevenue = s.TotalProjectedRevenue.Add(rec.CombinedDue.Decimal)
		} else {
			s.TotalProjectedRevenue = s.TotalProjectedRevenue.Add(bill.RentDue)
		}
		if bill.MeterAnomaly {
			s.AnomalyCount++
		}

		s.TotalRepairCost = s.TotalRepairCost.Add(rec.RepairFee)
		if IsRepairPending(rec.RepairStatus, a.pending) {
			s.PendingRepairCount++
		}
	}

	s.RevenueDiscrepancy = s.TotalProjectedRevenue.Sub(s.DerivedRevenue)
	return s
}

// Anomalies returns the bills of records whose meter went backwards.
func Anomalies(records []model.UnitPeriodRecord, tariff config.Tariff) []model.BillingResult {
	var out []model.BillingResult
	for _, rec := range records {
		if b := BillRecord(rec, tariff); b.MeterAnomaly {
			out = append(out, b)
		}
	}
	return out
}

// FilterUnpaid returns the records not marked paid.
func FilterUnpaid(records []model.UnitPeriodRecord) []model.UnitPeriodRecord {
	var out []model.UnitPeriodRecord
	for _, rec := range records {
		if !rec.PaymentStatus.IsPaid() {
			out = append(out, rec)
		}
	}
	return out
}

// IsRepairPending reports whether status is one of the pending labels.
func IsRepairPending(status string, pending []string) bool {
	return matchLabel(strings.TrimSpace(status), pending)
}
