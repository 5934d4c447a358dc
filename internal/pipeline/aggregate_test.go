package pipeline

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/rentroll/internal/config"
	"github.com/theirongolddev/rentroll/internal/model"
)

func testAggregator() *Aggregator {
	return NewAggregatorFromConfig(config.DefaultConfig())
}

func sampleRecords() []model.UnitPeriodRecord {
	return []model.UnitPeriodRecord{
		{UnitID: "A1", BaseRent: dec("10000"), MeterPrevious: dec("100"), MeterCurrent: dec("150"),
			PaymentStatus: model.StatusPaid, CombinedDue: decimal.NewNullDecimal(dec("10300"))},
		{UnitID: "A2", BaseRent: dec("9000"), MeterPrevious: dec("0"), MeterCurrent: dec("20"),
			PaymentStatus: model.StatusPaid, RepairFee: dec("800"), RepairStatus: "待修"},
		{UnitID: "A3", BaseRent: dec("8000"), MeterPrevious: dec("50"), MeterCurrent: dec("40"),
			PaymentStatus: model.StatusUnpaid, RepairFee: dec("200"), RepairStatus: "已修"},
	}
}

func TestAggregate(t *testing.T) {
	s := testAggregator().Aggregate(sampleRecords())

	if s.UnitCount != 3 || s.PaidCount != 2 || s.UnpaidCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/2/1", s.UnitCount, s.PaidCount, s.UnpaidCount)
	}
	// Derived: 10250 + 9100 + 7950.
	if !s.DerivedRevenue.Equal(dec("27300")) {
		t.Errorf("DerivedRevenue = %s, want 27300", s.DerivedRevenue)
	}
	// Projected uses the source total for A1: 10300 + 9100 + 7950.
	if !s.TotalProjectedRevenue.Equal(dec("27350")) {
		t.Errorf("TotalProjectedRevenue = %s, want 27350", s.TotalProjectedRevenue)
	}
	if s.SourceCombinedCount != 1 || !s.RevenueDiscrepancy.Equal(dec("50")) || !s.HasDiscrepancy() {
		t.Errorf("two-track = %d / %s", s.SourceCombinedCount, s.RevenueDiscrepancy)
	}
	if !s.TotalRepairCost.Equal(dec("1000")) || s.PendingRepairCount != 1 {
		t.Errorf("repairs = %s / %d, want 1000 / 1", s.TotalRepairCost, s.PendingRepairCount)
	}
	if s.AnomalyCount != 1 {
		t.Errorf("AnomalyCount = %d, want 1", s.AnomalyCount)
	}
}

func TestAggregateStatusScenario(t *testing.T) {
	tbl := testTable([]string{"房號", "繳費狀態"},
		[]string{"A1", "已繳"},
		[]string{"A2", "已繳"},
		[]string{"A3", ""},
	)
	s := testAggregator().Aggregate(testNormalizer().Normalize(tbl).Records)
	if s.PaidCount != 2 || s.UnpaidCount != 1 {
		t.Errorf("paid/unpaid = %d/%d, want 2/1", s.PaidCount, s.UnpaidCount)
	}
}

func TestAggregateEmpty(t *testing.T) {
	s := testAggregator().Aggregate(nil)
	if s.UnitCount != 0 || s.PaidCount != 0 || s.UnpaidCount != 0 || s.PendingRepairCount != 0 {
		t.Errorf("empty summary counts = %+v", s)
	}
	if !s.TotalProjectedRevenue.IsZero() || !s.TotalRepairCost.IsZero() {
		t.Errorf("empty summary sums = %s / %s", s.TotalProjectedRevenue, s.TotalRepairCost)
	}
	if s.PaidFraction() != 0 || s.UnpaidFraction() != 0 {
		t.Errorf("fractions = %v / %v, want 0 / 0", s.PaidFraction(), s.UnpaidFraction())
	}
}

func TestAggregatePermutationInvariant(t *testing.T) {
	recs := sampleRecords()
	base := testAggregator().Aggregate(recs)

	perms := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}, {1, 0, 2}}
	for _, p := range perms {
		shuffled := []model.UnitPeriodRecord{recs[p[0]], recs[p[1]], recs[p[2]]}
		got := testAggregator().Aggregate(shuffled)
		if got.UnitCount != base.UnitCount || got.PaidCount != base.PaidCount ||
			got.UnpaidCount != base.UnpaidCount || got.PendingRepairCount != base.PendingRepairCount ||
			!got.TotalProjectedRevenue.Equal(base.TotalProjectedRevenue) ||
			!got.TotalRepairCost.Equal(base.TotalRepairCost) ||
			!got.DerivedRevenue.Equal(base.DerivedRevenue) {
			t.Errorf("permutation %v changed the summary: %+v vs %+v", p, got, base)
		}
		if got.PaidCount+got.UnpaidCount != got.UnitCount {
			t.Errorf("paid + unpaid != units for %v", p)
		}
	}
}

func TestAnomaliesAndUnpaid(t *testing.T) {
	recs := sampleRecords()
	if got := Anomalies(recs, config.FlatTariff(dec("5"))); len(got) != 1 || got[0].UnitID != "A3" {
		t.Errorf("Anomalies = %+v", got)
	}
	if got := FilterUnpaid(recs); len(got) != 1 || got[0].UnitID != "A3" {
		t.Errorf("FilterUnpaid = %+v", got)
	}
}
