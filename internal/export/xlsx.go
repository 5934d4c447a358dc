// Package export renders ledger reports and notices as XLSX and PDF.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/theirongolddev/rentroll/internal/model"
)

// Report is everything written into a ledger workbook.
type Report struct {
	Records     []model.UnitPeriodRecord
	Bills       []model.BillingResult // parallel to Records
	Summary     model.PortfolioSummary
	Issues      []model.RowIssue
	Currency    string
	GeneratedAt time.Time
}

var ledgerHeaders = []string{
	"Unit", "Period", "Tenant", "Company", "Status",
	"Meter Prev", "Meter Cur", "Usage", "Rate", "Utility",
	"Base Rent", "Rent Due", "Repair Fee", "Repair Status", "Anomaly", "Row",
}

// LedgerXLSX renders the report as a workbook with ledger, summary and
// issues sheets.
func LedgerXLSX(r Report) ([]byte, error) {
	if len(r.Bills) != len(r.Records) {
		return nil, fmt.Errorf("export: %d bills for %d records", len(r.Bills), len(r.Records))
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const ledgerSheet, summarySheet, issuesSheet = "ledger", "summary", "issues"
	if err := f.SetSheetName("Sheet1", ledgerSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(issuesSheet); err != nil {
		return nil, err
	}

	if err := setRow(f, ledgerSheet, 1, toAny(ledgerHeaders)); err != nil {
		return nil, err
	}
	for i, rec := range r.Records {
		b := r.Bills[i]
		anomaly := ""
		if b.MeterAnomaly {
			anomaly = "meter went backwards"
		}
		row := []any{
			rec.UnitID, rec.Period, rec.TenantName, rec.CompanyName, string(rec.PaymentStatus),
			num(rec.MeterPrevious), num(rec.MeterCurrent), num(b.UsageUnits), num(b.Rate), num(b.UtilityCharge),
			num(b.BaseRent), num(b.RentDue), num(b.RepairFee), rec.RepairStatus, anomaly, rec.SourceRow,
		}
		if err := setRow(f, ledgerSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	s := r.Summary
	summary := [][]any{
		{"Ledger Summary"},
		{"Generated", r.GeneratedAt.Format(time.RFC3339)},
		{"Currency", r.Currency},
		{},
		{"Units", s.UnitCount},
		{"Paid", s.PaidCount},
		{"Unpaid", s.UnpaidCount},
		{"Paid %", s.PaidFraction()},
		{"Projected Revenue", num(s.TotalProjectedRevenue)},
		{"Derived Revenue", num(s.DerivedRevenue)},
		{"Source Totals Used", s.SourceCombinedCount},
		{"Revenue Discrepancy", num(s.RevenueDiscrepancy)},
		{"Pending Repairs", s.PendingRepairCount},
		{"Repair Cost", num(s.TotalRepairCost)},
		{"Meter Anomalies", s.AnomalyCount},
	}
	for i, row := range summary {
		if err := setRow(f, summarySheet, i+1, row); err != nil {
			return nil, err
		}
	}

	if err := setRow(f, issuesSheet, 1, []any{"Row", "Kind", "Field", "Raw"}); err != nil {
		return nil, err
	}
	for i, is := range r.Issues {
		if err := setRow(f, issuesSheet, i+2, []any{is.Row, string(is.Kind), is.Field, is.Raw}); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	if len(values) == 0 {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func num(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
