package pipeline

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/rentroll/internal/config"
	"github.com/theirongolddev/rentroll/internal/model"
)

// ErrUnitNotFound is returned when a unit id is not in the current snapshot.
var ErrUnitNotFound = errors.New("no such unit in current snapshot")

// ComputeBilling derives the charges for one record at the given rate.
// Negative usage is billed as-is and flagged.
func ComputeBilling(rec model.UnitPeriodRecord, rate decimal.Decimal) model.BillingResult {
	usage := rec.MeterCurrent.Sub(rec.MeterPrevious)
	utility := usage.Mul(rate)
	rentDue := rec.BaseRent.Add(utility)

	return model.BillingResult{
		UnitID:        rec.UnitID,
		Period:        rec.Period,
		Rate:          rate,
		UsageUnits:    usage,
		UtilityCharge: utility,
		BaseRent:      rec.BaseRent,
		RentDue:       rentDue,
		RepairFee:     rec.RepairFee,
		TotalDue:      rentDue,
		MeterAnomaly:  usage.IsNegative(),
	}
}

// BillRecord bills a record at the rate the tariff gives its period.
func BillRecord(rec model.UnitPeriodRecord, tariff config.Tariff) model.BillingResult {
	return ComputeBilling(rec, tariff.RateFor(rec.Period))
}

// BillAll bills every record, preserving order.
func BillAll(records []model.UnitPeriodRecord, tariff config.Tariff) []model.BillingResult {
	out := make([]model.BillingResult, len(records))
	for i, rec := range records {
		out[i] = BillRecord(rec, tariff)
	}
	return out
}

// FindUnit returns the latest-period record for unitID. Ids match exactly
// after trimming surrounding space, the same identity LatestByUnit uses.
func FindUnit(records []model.UnitPeriodRecord, unitID string) (model.UnitPeriodRecord, error) {
	want := unitKey(unitID)
	var (
		found model.UnitPeriodRecord
		ok    bool
	)
	if want != "" {
		for _, rec := range records {
			if unitKey(rec.UnitID) != want {
				continue
			}
			if !ok || ComparePeriodsOf(rec, found) >= 0 {
				found, ok = rec, true
			}
		}
	}
	if !ok {
		return model.UnitPeriodRecord{}, fmt.Errorf("unit %q: %w", want, ErrUnitNotFound)
	}
	return found, nil
}

// BillUnit looks up a unit in the snapshot and bills its latest period.
func BillUnit(records []model.UnitPeriodRecord, unitID string, tariff config.Tariff) (model.BillingResult, model.UnitPeriodRecord, error) {
	rec, err := FindUnit(records, unitID)
	if err != nil {
		return model.BillingResult{}, model.UnitPeriodRecord{}, err
	}
	return BillRecord(rec, tariff), rec, nil
}
