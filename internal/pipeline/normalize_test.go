package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/theirongolddev/rentroll/internal/model"
)

var ledgerHeader = []string{"房號", "月份", "房客", "公司", "租金", "上期電表", "本期電表", "維修費", "損壞物品", "維修狀態", "繳費狀態", "租金加電費"}

func TestNormalizeBasicRow(t *testing.T) {
	tbl := testTable(ledgerHeader,
		[]string{" A1 ", "2025-05", "王小明", "", "NT$10,000", "100", "150", "800", "冷氣", "待修", "已繳", "10,250"},
	)
	res := testNormalizer().Normalize(tbl)

	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Records))
	}
	rec := res.Records[0]
	if rec.UnitID != "A1" {
		t.Errorf("UnitID = %q, want A1", rec.UnitID)
	}
	if !rec.BaseRent.Equal(dec("10000")) {
		t.Errorf("BaseRent = %s, want 10000", rec.BaseRent)
	}
	if !rec.RepairFee.Equal(dec("800")) {
		t.Errorf("RepairFee = %s, want 800", rec.RepairFee)
	}
	if rec.PaymentStatus != model.StatusPaid || !rec.StatusRecorded || rec.StatusRaw != "已繳" {
		t.Errorf("status = %s recorded=%v raw=%q", rec.PaymentStatus, rec.StatusRecorded, rec.StatusRaw)
	}
	if !rec.CombinedDue.Valid || !rec.CombinedDue.Decimal.Equal(dec("10250")) {
		t.Errorf("CombinedDue = %+v, want 10250", rec.CombinedDue)
	}
	if rec.SourceRow != 2 {
		t.Errorf("SourceRow = %d, want 2", rec.SourceRow)
	}
	if len(res.Issues) != 0 {
		t.Errorf("unexpected issues: %+v", res.Issues)
	}
}

func TestNormalizeDropsMissingUnitID(t *testing.T) {
	tbl := testTable([]string{"unit", "rent"},
		[]string{"A1", "100"},
		[]string{"", "200"},
		[]string{"", ""},
		[]string{"A3", "300"},
	)
	res := testNormalizer().Normalize(tbl)

	if len(res.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(res.Records))
	}
	for _, r := range res.Records {
		if r.UnitID == "" {
			t.Error("record without unit id in output")
		}
	}
	if res.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1 (blank rows are not counted)", res.Dropped)
	}
	if len(res.Issues) != 1 || res.Issues[0].Kind != model.IssueMissingUnitID || res.Issues[0].Row != 3 {
		t.Errorf("Issues = %+v", res.Issues)
	}
}

func TestNormalizeCoercion(t *testing.T) {
	tests := []struct {
		name      string
		rent      string
		wantRent  string
		wantIssue model.IssueKind
	}{
		{"plain", "9000", "9000", ""},
		{"thousands", "9,000", "9000", ""},
		{"dollar", "$9,000.50", "9000.5", ""},
		{"yuan", "9000元", "9000", ""},
		{"full width", "９０００", "9000", ""},
		{"blank", "", "0", ""},
		{"garbage", "n/a", "0", model.IssueMalformedNumber},
		{"symbol only", "$", "0", model.IssueMalformedNumber},
		{"huge exponent", "1e30000000", "0", model.IssueMalformedNumber},
		{"negative", "-500", "0", model.IssueNegativeAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := testNormalizer().Normalize(testTable([]string{"unit", "rent"}, []string{"A1", tt.rent}))
			if len(res.Records) != 1 {
				t.Fatalf("got %d records", len(res.Records))
			}
			if got := res.Records[0].BaseRent; !got.Equal(dec(tt.wantRent)) {
				t.Errorf("BaseRent = %s, want %s", got, tt.wantRent)
			}
			switch {
			case tt.wantIssue == "" && len(res.Issues) != 0:
				t.Errorf("unexpected issues %+v", res.Issues)
			case tt.wantIssue != "" && (len(res.Issues) != 1 || res.Issues[0].Kind != tt.wantIssue):
				t.Errorf("Issues = %+v, want one %s", res.Issues, tt.wantIssue)
			}
		})
	}
}

func TestNormalizeMeterDefaults(t *testing.T) {
	// No current-reading column at all.
	res := testNormalizer().Normalize(testTable([]string{"unit", "meter_previous"}, []string{"A1", "420"}))
	rec := res.Records[0]
	if !rec.MeterCurrent.Equal(dec("420")) {
		t.Errorf("absent current = %s, want previous 420", rec.MeterCurrent)
	}

	// Column present but blank.
	res = testNormalizer().Normalize(testTable(
		[]string{"unit", "meter_previous", "meter_current"},
		[]string{"A1", "420", " "},
	))
	if rec := res.Records[0]; !rec.MeterCurrent.Equal(dec("420")) {
		t.Errorf("blank current = %s, want 420", rec.MeterCurrent)
	}

	// Malformed current reading.
	res = testNormalizer().Normalize(testTable(
		[]string{"unit", "meter_previous", "meter_current"},
		[]string{"A1", "420", "??"},
	))
	if rec := res.Records[0]; !rec.MeterCurrent.IsZero() {
		t.Errorf("malformed current = %s, want 0", rec.MeterCurrent)
	}
	if len(res.Issues) != 1 || res.Issues[0].Field != "meter_current" {
		t.Errorf("Issues = %+v", res.Issues)
	}
}

func TestNormalizePaymentStatus(t *testing.T) {
	tests := []struct {
		raw       string
		want      model.PaymentStatus
		wantIssue bool
	}{
		{"已繳", model.StatusPaid, false},
		{"PAID", model.StatusPaid, false},
		{" paid ", model.StatusPaid, false},
		{"未繳", model.StatusUnpaid, false},
		{"", model.StatusUnpaid, false},
		{"maybe", model.StatusUnpaid, true},
	}
	for _, tt := range tests {
		res := testNormalizer().Normalize(testTable([]string{"unit", "status"}, []string{"A1", tt.raw}))
		rec := res.Records[0]
		if rec.PaymentStatus != tt.want {
			t.Errorf("status %q -> %s, want %s", tt.raw, rec.PaymentStatus, tt.want)
		}
		if !rec.StatusRecorded {
			t.Errorf("status %q: StatusRecorded = false", tt.raw)
		}
		if got := len(res.Issues) > 0; got != tt.wantIssue {
			t.Errorf("status %q: issue = %v, want %v", tt.raw, got, tt.wantIssue)
		}
	}
}

func TestNormalizeStatusColumnAbsent(t *testing.T) {
	res := testNormalizer().Normalize(testTable([]string{"unit"}, []string{"A1"}))
	rec := res.Records[0]
	if rec.PaymentStatus != model.StatusUnpaid || rec.StatusRecorded {
		t.Errorf("status = %s recorded = %v, want UNPAID unrecorded", rec.PaymentStatus, rec.StatusRecorded)
	}
	if rec.CombinedDue.Valid {
		t.Error("CombinedDue should be null when the column is absent")
	}
}

func TestNormalizeShortRows(t *testing.T) {
	res := testNormalizer().Normalize(testTable(ledgerHeader, []string{"B2", "2025-05"}))
	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Records))
	}
	if rec := res.Records[0]; !rec.BaseRent.IsZero() || !rec.StatusRecorded {
		t.Errorf("short row = %+v", rec)
	}
}

func TestNormalizeHeaderAliases(t *testing.T) {
	tbl := testTable([]string{" UNIT ", "Tenant", "Rent"}, []string{"C3", "Lee", "7000"})
	res := testNormalizer().Normalize(tbl)
	if len(res.Records) != 1 {
		t.Fatalf("got %d records", len(res.Records))
	}
	if rec := res.Records[0]; rec.TenantName != "Lee" || !rec.BaseRent.Equal(dec("7000")) {
		t.Errorf("record = %+v", rec)
	}
}

func TestNormalizeNilTable(t *testing.T) {
	res := testNormalizer().Normalize(nil)
	if len(res.Records) != 0 || res.Dropped != 0 {
		t.Errorf("nil table result = %+v", res)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	tbl := testTable(ledgerHeader,
		[]string{"A1", "2025-05", "王", "", "10000", "100", "150", "", "", "", "已繳", ""},
		[]string{"A2", "2025-05", "陳", "", "bad", "200", "190", "800", "門", "待修", "", "9000"},
	)
	n := testNormalizer()
	first, _ := json.Marshal(n.Normalize(tbl))
	second, _ := json.Marshal(n.Normalize(tbl))
	if string(first) != string(second) {
		t.Errorf("normalize is not idempotent:\n%s\n%s", first, second)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1,234.5", "1234.5", false},
		{"NT$ 500", "500", false},
		{"￥88", "88", false},
		{"-3", "-3", false},
		{"", "0", false},
		{"abc", "0", true},
		{"1e30000000", "0", true},
		{"2E3", "0", true},
		{"-1e-9", "0", true},
	}
	for _, tt := range tests {
		got, err := ParseNumber(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseNumber(%q) err = %v", tt.in, err)
		}
		if !got.Equal(dec(tt.want)) {
			t.Errorf("ParseNumber(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
