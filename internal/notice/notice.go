// Package notice composes tenant-facing billing messages.
package notice

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/theirongolddev/rentroll/internal/cli"
	"github.com/theirongolddev/rentroll/internal/config"
	"github.com/theirongolddev/rentroll/internal/model"
)

// DefaultTemplate is the built-in notice. Fields are documented on Data.
const DefaultTemplate = `【{{.Period}} 租金繳費通知】
房號：{{.UnitID}}
房客：{{.TenantName}}
電費：{{.Utility}}（用電 {{.Usage}} 度 × {{.Rate}}）
租金：{{.BaseRent}}
應繳總額：{{.TotalDue}}
{{- if .HasRepair}}
維修費：{{.RepairFee}}{{if .DamagedItem}}（{{.DamagedItem}}）{{end}}，另行收取
{{- end}}
請於每月 {{.DueDay}} 日前完成繳費，謝謝！`

var defaultTmpl = template.Must(template.New("notice").Parse(DefaultTemplate))

// Data is what a notice template sees. Amounts are preformatted.
type Data struct {
	Period      string
	UnitID      string
	TenantName  string
	CompanyName string

	Usage     string
	Rate      string
	Utility   string
	BaseRent  string
	TotalDue  string
	RepairFee string
	HasRepair bool

	DamagedItem  string
	RepairStatus string
	DueDay       int
	Paid         bool
	MeterAnomaly bool
}

// Composer renders notices.
type Composer struct {
	tmpl     *template.Template
	currency string
	dueDay   int
}

// NewComposer builds a Composer from cfg. A custom template that does not
// parse is an error; an empty one selects DefaultTemplate.
func NewComposer(cfg config.Config) (*Composer, error) {
	c := &Composer{
		tmpl:     defaultTmpl,
		currency: cfg.Billing.Currency,
		dueDay:   cfg.Billing.DueDay,
	}
	if src := strings.TrimSpace(cfg.Notice.Template); src != "" {
		t, err := template.New("custom").Parse(cfg.Notice.Template)
		if err != nil {
			return nil, fmt.Errorf("parsing notice template: %w", err)
		}
		c.tmpl = t
	}
	return c, nil
}

// DataFor builds the template data for one unit.
func (c *Composer) DataFor(rec model.UnitPeriodRecord, bill model.BillingResult) Data {
	period := bill.Period
	if period == "" {
		period = rec.Period
	}
	unit := bill.UnitID
	if unit == "" {
		unit = rec.UnitID
	}
	return Data{
		Period:       period,
		UnitID:       unit,
		TenantName:   rec.TenantName,
		CompanyName:  rec.CompanyName,
		Usage:        cli.FormatUnits(bill.UsageUnits),
		Rate:         cli.FormatMoney(bill.Rate, c.currency),
		Utility:      cli.FormatMoney(bill.UtilityCharge, c.currency),
		BaseRent:     cli.FormatMoney(bill.BaseRent, c.currency),
		TotalDue:     cli.FormatMoney(bill.TotalDue, c.currency),
		RepairFee:    cli.FormatMoney(bill.RepairFee, c.currency),
		HasRepair:    bill.RepairFee.IsPositive(),
		DamagedItem:  rec.DamagedItem,
		RepairStatus: rec.RepairStatus,
		DueDay:       c.dueDay,
		Paid:         rec.PaymentStatus.IsPaid(),
		MeterAnomaly: bill.MeterAnomaly,
	}
}

// Compose renders the notice for one unit. It always returns text: if a
// custom template fails to execute, the built-in one is used instead.
func (c *Composer) Compose(rec model.UnitPeriodRecord, bill model.BillingResult) string {
	data := c.DataFor(rec, bill)

	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, data); err == nil {
		return buf.String()
	}

	buf.Reset()
	_ = defaultTmpl.Execute(&buf, data)
	return buf.String()
}
