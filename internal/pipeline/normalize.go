// Package pipeline turns raw ledger snapshots into records, bills and summaries.
package pipeline

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/rentroll/internal/config"
	"github.com/theirongolddev/rentroll/internal/model"
	"github.com/theirongolddev/rentroll/internal/source"
)

// Field is a canonical ledger column.
type Field int

// Canonical ledger fields.
const (
	FieldUnitID Field = iota
	FieldPeriod
	FieldTenantName
	FieldCompanyName
	FieldBaseRent
	FieldMeterPrevious
	FieldMeterCurrent
	FieldRepairFee
	FieldDamagedItem
	FieldRepairStatus
	FieldPaymentStatus
	FieldCombinedDue
	numFields
)

var fieldNames = [numFields]string{
	"unit_id", "period", "tenant_name", "company_name", "base_rent",
	"meter_previous", "meter_current", "repair_fee", "damaged_item",
	"repair_status", "payment_status", "combined_due",
}

func (f Field) String() string {
	if f < 0 || f >= numFields {
		return "unknown"
	}
	return fieldNames[f]
}

// NormalizeResult is the outcome of one Normalize call.
type NormalizeResult struct {
	Records []model.UnitPeriodRecord
	// Dropped counts non-blank rows discarded for lacking a unit id.
	Dropped int
	Issues  []model.RowIssue
	// Missing lists canonical fields with no matching header.
	Missing []Field
}

// Normalizer validates and coerces raw rows into UnitPeriodRecords.
// It holds no state between calls.
type Normalizer struct {
	aliases [numFields][]string
	paid    []string
	unpaid  []string
}

// NewNormalizer builds a Normalizer from header aliases and status vocabulary.
func NewNormalizer(cols config.ColumnsConfig, labels config.LabelsConfig) *Normalizer {
	n := &Normalizer{
		paid:   append([]string{string(model.StatusPaid)}, labels.Paid...),
		unpaid: append([]string{string(model.StatusUnpaid)}, labels.Unpaid...),
	}
	n.aliases[FieldUnitID] = cols.UnitID
	n.aliases[FieldPeriod] = cols.Period
	n.aliases[FieldTenantName] = cols.TenantName
	n.aliases[FieldCompanyName] = cols.CompanyName
	n.aliases[FieldBaseRent] = cols.BaseRent
	n.aliases[FieldMeterPrevious] = cols.MeterPrevious
	n.aliases[FieldMeterCurrent] = cols.MeterCurrent
	n.aliases[FieldRepairFee] = cols.RepairFee
	n.aliases[FieldDamagedItem] = cols.DamagedItem
	n.aliases[FieldRepairStatus] = cols.RepairStatus
	n.aliases[FieldPaymentStatus] = cols.PaymentStatus
	n.aliases[FieldCombinedDue] = cols.CombinedDue
	return n
}

// NewNormalizerFromConfig is NewNormalizer over cfg's columns and labels.
func NewNormalizerFromConfig(cfg config.Config) *Normalizer {
	return NewNormalizer(cfg.Columns, cfg.Labels)
}

// resolve maps each field to its column index, or -1. The first header
// matching any alias wins.
func (n *Normalizer) resolve(header []string) [numFields]int {
	var idx [numFields]int
	for f := range idx {
		idx[f] = -1
	}
	for f := Field(0); f < numFields; f++ {
	search:
		for col, h := range header {
			h = normalizeHeader(h)
			for _, alias := range n.aliases[f] {
				if h != "" && strings.EqualFold(h, normalizeHeader(alias)) {
					idx[f] = col
					break search
				}
			}
		}
	}
	return idx
}

func normalizeHeader(h string) string {
	return strings.TrimSpace(model.FoldWidth(h))
}

// row is one raw row viewed through the resolved header.
type row struct {
	cells []string
	idx   *[numFields]int
}

// get returns the trimmed cell and whether the column exists at all.
func (r row) get(f Field) (string, bool) {
	col := r.idx[f]
	if col < 0 {
		return "", false
	}
	if col >= len(r.cells) {
		return "", true
	}
	return strings.TrimSpace(r.cells[col]), true
}

func (r row) text(f Field) string {
	v, _ := r.get(f)
	return v
}

func (r row) blank() bool {
	for _, c := range r.cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Normalize converts a snapshot into records. It never fails: rows without a
// unit id are dropped and every other problem is recovered and reported as
// an issue. A nil or headerless table yields an empty result.
func (n *Normalizer) Normalize(t *source.Table) NormalizeResult {
	var res NormalizeResult
	if t == nil || len(t.Header) == 0 {
		return res
	}

	idx := n.resolve(t.Header)
	for f := Field(0); f < numFields; f++ {
		if idx[f] < 0 {
			res.Missing = append(res.Missing, f)
		}
	}

	for i, cells := range t.Rows {
		r := row{cells: cells, idx: &idx}
		if r.blank() {
			continue
		}
		line := i + 2

		unit := r.text(FieldUnitID)
		if unit == "" {
			res.Dropped++
			res.Issues = append(res.Issues, model.RowIssue{
				Row: line, Kind: model.IssueMissingUnitID, Field: FieldUnitID.String(),
			})
			continue
		}

		rec, issues := n.record(r, line)
		rec.UnitID = unit
		res.Records = append(res.Records, rec)
		res.Issues = append(res.Issues, issues...)
	}
	return res
}

func (n *Normalizer) record(r row, line int) (model.UnitPeriodRecord, []model.RowIssue) {
	var issues []model.RowIssue
	issue := func(kind model.IssueKind, f Field, raw string) {
		issues = append(issues, model.RowIssue{Row: line, Kind: kind, Field: f.String(), Raw: raw})
	}

	// amount parses a non-negative money field.
	amount := func(f Field) decimal.Decimal {
		raw := r.text(f)
		d, err := ParseNumber(raw)
		switch {
		case err != nil:
			issue(model.IssueMalformedNumber, f, raw)
			return decimal.Zero
		case d.IsNegative():
			issue(model.IssueNegativeAmount, f, raw)
			return decimal.Zero
		}
		return d
	}

	rec := model.UnitPeriodRecord{
		SourceRow:    line,
		Period:       r.text(FieldPeriod),
		TenantName:   r.text(FieldTenantName),
		CompanyName:  r.text(FieldCompanyName),
		DamagedItem:  r.text(FieldDamagedItem),
		RepairStatus: r.text(FieldRepairStatus),
		BaseRent:     amount(FieldBaseRent),
		RepairFee:    amount(FieldRepairFee),
	}

	prevRaw := r.text(FieldMeterPrevious)
	prev, err := ParseNumber(prevRaw)
	if err != nil {
		issue(model.IssueMalformedNumber, FieldMeterPrevious, prevRaw)
	}
	rec.MeterPrevious = prev

	curRaw := r.text(FieldMeterCurrent)
	if curRaw == "" {
		rec.MeterCurrent = prev
	} else if cur, err := ParseNumber(curRaw); err != nil {
		issue(model.IssueMalformedNumber, FieldMeterCurrent, curRaw)
	} else {
		rec.MeterCurrent = cur
	}

	if raw := r.text(FieldCombinedDue); raw != "" {
		d, err := ParseNumber(raw)
		if err != nil {
			issue(model.IssueMalformedNumber, FieldCombinedDue, raw)
		} else {
			rec.CombinedDue = decimal.NewNullDecimal(d)
		}
	}

	raw, present := r.get(FieldPaymentStatus)
	rec.StatusRecorded = present
	rec.StatusRaw = raw
	rec.PaymentStatus = model.StatusUnpaid
	switch {
	case matchLabel(raw, n.paid):
		rec.PaymentStatus = model.StatusPaid
	case raw != "" && !matchLabel(raw, n.unpaid):
		issue(model.IssueUnknownStatus, FieldPaymentStatus, raw)
	}

	return rec, issues
}

// matchLabel reports whether v equals any label, ignoring case and
// surrounding space.
func matchLabel(v string, labels []string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	for _, l := range labels {
		if strings.EqualFold(v, strings.TrimSpace(l)) {
			return true
		}
	}
	return false
}

var errMalformed = errors.New("malformed number")

var numberNoise = strings.NewReplacer(
	"NT$", "", "nt$", "", "US$", "",
	"$", "", "元", "", "¥", "", "￥", "",
	",", "", " ", "", "\t", "",
)

// ParseNumber parses a spreadsheet amount or reading. Currency markers,
// thousands separators and full-width digits are accepted. A blank value is
// zero. Exponent notation such as "1e6" is malformed.
func ParseNumber(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, nil
	}
	s = numberNoise.Replace(model.FoldWidth(s))
	if s == "" || strings.ContainsAny(s, "eE") {
		return decimal.Zero, errMalformed
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errMalformed
	}
	return d, nil
}
