// Package model defines the ledger records and the figures derived from them.
package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the settled/unsettled classification of a unit-period.
type PaymentStatus string

// Payment statuses. Anything the source does not mark as paid is unpaid.
const (
	StatusUnpaid PaymentStatus = "UNPAID"
	StatusPaid   PaymentStatus = "PAID"
)

// IsPaid reports whether the status is exactly PAID.
func (s PaymentStatus) IsPaid() bool {
	return s == StatusPaid
}

// UnitPeriodRecord is one rental unit's ledger row for one billing period.
type UnitPeriodRecord struct {
	UnitID      string `json:"unit_id"`
	Period      string `json:"period,omitempty"`
	TenantName  string `json:"tenant_name,omitempty"`
	CompanyName string `json:"company_name,omitempty"`

	BaseRent      decimal.Decimal `json:"base_rent"`
	MeterPrevious decimal.Decimal `json:"meter_previous"`
	MeterCurrent  decimal.Decimal `json:"meter_current"`
	RepairFee     decimal.Decimal `json:"repair_fee"`

	DamagedItem  string `json:"damaged_item,omitempty"`
	RepairStatus string `json:"repair_status,omitempty"`

	PaymentStatus PaymentStatus `json:"payment_status"`
	StatusRaw     string        `json:"status_raw,omitempty"`
	// StatusRecorded is false when the source has no payment status column.
	StatusRecorded bool `json:"status_recorded"`

	// CombinedDue is the rent+utility total as written in the source.
	// Only the portfolio summary reads it.
	CombinedDue decimal.NullDecimal `json:"combined_due"`

	// SourceRow is the 1-based row in the source sheet (header is row 1).
	SourceRow int `json:"source_row"`
}

// Label returns "unit (tenant)" for list displays.
func (r UnitPeriodRecord) Label() string {
	if strings.TrimSpace(r.TenantName) == "" {
		return r.UnitID
	}
	return r.UnitID + " (" + r.TenantName + ")"
}

// IssueKind classifies a recovered per-row problem.
type IssueKind string

// Row issue kinds.
const (
	IssueMissingUnitID   IssueKind = "missing_unit_id"
	IssueMalformedNumber IssueKind = "malformed_number"
	IssueNegativeAmount  IssueKind = "negative_amount"
	IssueUnknownStatus   IssueKind = "unknown_status"
)

// RowIssue records a data-quality problem that was recovered during normalization.
type RowIssue struct {
	Row   int       `json:"row"`
	Kind  IssueKind `json:"kind"`
	Field string    `json:"field,omitempty"`
	Raw   string    `json:"raw,omitempty"`
}
