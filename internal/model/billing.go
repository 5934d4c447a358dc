package model

import "github.com/shopspring/decimal"

// BillingResult holds the charges derived for one unit-period.
type BillingResult struct {
	UnitID string `json:"unit_id"`
	Period string `json:"period,omitempty"`

	Rate          decimal.Decimal `json:"rate"`
	UsageUnits    decimal.Decimal `json:"usage_units"`
	UtilityCharge decimal.Decimal `json:"utility_charge"`
	BaseRent      decimal.Decimal `json:"base_rent"`
	RentDue       decimal.Decimal `json:"rent_due"`
	RepairFee     decimal.Decimal `json:"repair_fee"`
	// TotalDue is the periodic amount owed. Repair fees are billed on their own.
	TotalDue decimal.Decimal `json:"total_due"`

	// MeterAnomaly is set when the current reading is below the previous one.
	MeterAnomaly bool `json:"meter_anomaly"`
}

// CombinedWithRepair returns rent due plus the repair fee, for callers that
// explicitly want one figure.
func (b BillingResult) CombinedWithRepair() decimal.Decimal {
	return b.RentDue.Add(b.RepairFee)
}

// HasRepairFee reports whether a non-zero repair fee is attached.
func (b BillingResult) HasRepairFee() bool {
	return !b.RepairFee.IsZero()
}
