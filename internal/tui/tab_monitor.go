package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/rentroll/internal/cli"
	"github.com/theirongolddev/rentroll/internal/model"
	"github.com/theirongolddev/rentroll/internal/tui/components"
	"github.com/theirongolddev/rentroll/internal/tui/theme"
)

const maxUsageBars = 12

func (a App) renderMonitorTab(cw int) string {
	t := theme.Active
	s := a.summary
	cur := a.cfg.Billing.Currency

	var b strings.Builder
	b.WriteString(a.renderUnavailableBanner(cw))

	// Row 1: metric cards
	unpaidTone := components.ToneNormal
	if s.UnpaidCount > 0 {
		unpaidTone = components.ToneBad
	}
	anomalyTone := components.ToneNormal
	if s.AnomalyCount > 0 {
		anomalyTone = components.ToneWarn
	}
	repairTone := components.ToneNormal
	if s.PendingRepairCount > 0 {
		repairTone = components.ToneWarn
	}

	derivedNote := "derived " + cli.FormatMoney(s.DerivedRevenue, cur)
	metrics := []components.Metric{
		{Label: "Units", Value: cli.FormatNumber(int64(s.UnitCount)), Note: a.latestPeriodNote()},
		{Label: "Paid", Value: cli.FormatNumber(int64(s.PaidCount)), Note: cli.FormatPercent(s.PaidFraction()), Tone: components.ToneGood},
		{Label: "Unpaid", Value: cli.FormatNumber(int64(s.UnpaidCount)), Note: cli.FormatPercent(s.UnpaidFraction()), Tone: unpaidTone},
		{Label: "Projected", Value: cli.FormatMoney(s.TotalProjectedRevenue, cur), Note: derivedNote},
		{Label: "Repairs", Value: cli.FormatNumber(int64(s.PendingRepairCount)) + " pending", Note: cli.FormatMoney(s.TotalRepairCost, cur), Tone: repairTone},
		{Label: "Anomalies", Value: cli.FormatNumber(int64(s.AnomalyCount)), Note: "meter went back", Tone: anomalyTone},
	}
	if a.isCompactLayout() {
		b.WriteString(components.MetricCardRow(metrics[:3], cw))
		b.WriteString("\n")
		b.WriteString(components.MetricCardRow(metrics[3:], cw))
	} else {
		b.WriteString(components.MetricCardRow(metrics, cw))
	}
	b.WriteString("\n")

	// Row 2: collection ratio
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)

	barW := components.CardInnerWidth(cw) - 16
	var ratio strings.Builder
	ratio.WriteString(components.RatioBar(s.PaidCount, s.UnitCount, barW))
	if s.HasDiscrepancy() {
		ratio.WriteString("\n")
		ratio.WriteString(warnStyle.Render(fmt.Sprintf("Sheet totals differ from recomputed rent by %s (%d of %d units carry a sheet total)",
			cli.FormatSignedMoney(s.RevenueDiscrepancy, cur), s.SourceCombinedCount, s.UnitCount)))
	} else if s.UnitCount > 0 {
		ratio.WriteString("\n")
		ratio.WriteString(mutedStyle.Render("Sheet totals agree with recomputed rent."))
	}
	b.WriteString(components.ContentCard("Collection", ratio.String(), cw))
	b.WriteString("\n")

	// Row 3: usage chart + attention list
	usage := a.renderUsageCard
	attention := a.renderAttentionCard
	if a.isCompactLayout() {
		b.WriteString(usage(cw))
		b.WriteString("\n")
		b.WriteString(attention(cw))
	} else {
		widths := components.LayoutRow(cw, 2)
		b.WriteString(components.CardRow([]string{usage(widths[0]), attention(widths[1])}))
	}
	b.WriteString("\n")

	// Row 4: units table
	b.WriteString(a.renderUnitsCard(cw))
	return b.String()
}

func (a App) latestPeriodNote() string {
	latest := ""
	for _, r := range a.latest {
		if r.Period != "" && (latest == "" || model.ComparePeriods(r.Period, latest) > 0) {
			latest = r.Period
		}
	}
	if latest == "" {
		return ""
	}
	return "to " + latest
}

func (a App) renderUsageCard(w int) string {
	t := theme.Active
	if len(a.bills) == 0 {
		return components.ContentCard("Utility Usage", lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render("No units"), w)
	}

	n := len(a.bills)
	if n > maxUsageBars {
		n = maxUsageBars
	}
	bars := make([]components.Bar, n)
	for i := 0; i < n; i++ {
		u := a.bills[i].UsageUnits
		bars[i] = components.Bar{
			Label: truncWidth(a.bills[i].UnitID, 10),
			Value: u.InexactFloat64(),
			Text:  cli.FormatUnits(u),
		}
	}
	title := "Utility Usage"
	if len(a.bills) > n {
		title = fmt.Sprintf("Utility Usage (first %d of %d)", n, len(a.bills))
	}
	return components.ContentCard(title, components.HBarChart(bars, components.CardInnerWidth(w)), w)
}

func (a App) renderAttentionCard(w int) string {
	t := theme.Active
	cur := a.cfg.Billing.Currency
	inner := components.CardInnerWidth(w)

	redStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)
	orangeStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	greenStyle := lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface)

	var lines []string
	for _, bill := range a.anomalies {
		lines = append(lines, orangeStyle.Render(truncWidth(fmt.Sprintf("▲ %s meter went back %s units", bill.UnitID, cli.FormatUnits(bill.UsageUnits.Neg())), inner)))
	}
	for i, rec := range a.latest {
		if rec.PaymentStatus.IsPaid() {
			continue
		}
		lines = append(lines, redStyle.Render(truncWidth(fmt.Sprintf("● %s owes %s", rec.Label(), cli.FormatMoney(a.bills[i].TotalDue, cur)), inner)))
	}
	if a.result != nil && len(a.result.Issues) > 0 {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("%d row issues recovered during import", len(a.result.Issues))))
	}
	if len(lines) == 0 {
		if len(a.latest) == 0 {
			lines = append(lines, mutedStyle.Render("Nothing loaded"))
		} else {
			lines = append(lines, greenStyle.Render("✓ All units paid, no anomalies"))
		}
	}
	return components.ContentCard("Attention", strings.Join(lines, "\n"), w)
}

func (a App) renderUnitsCard(cw int) string {
	t := theme.Active
	cur := a.cfg.Billing.Currency
	if len(a.latest) == 0 {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	const (
		unitW   = 10
		periodW = 10
		moneyW  = 14
		usageW  = 10
		statusW = 8
	)
	tenantW := components.CardInnerWidth(cw) - unitW - periodW - usageW - 2*moneyW - statusW - 6
	if tenantW < 8 {
		tenantW = 8
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(
		padWidth("Unit", unitW) + " " + padWidth("Tenant", tenantW) + " " + padWidth("Period", periodW) + " " +
			fmt.Sprintf("%*s %*s %*s ", usageW, "Usage", moneyW, "Rent Due", moneyW, "Repair") + "Status"))
	for i, rec := range a.latest {
		bill := a.bills[i]
		repair := "-"
		if bill.HasRepairFee() {
			repair = cli.FormatMoney(bill.RepairFee, cur)
		}
		status := lipgloss.NewStyle().Foreground(theme.StatusColor(rec.PaymentStatus.IsPaid())).Background(t.Surface)
		label := "unpaid"
		if rec.PaymentStatus.IsPaid() {
			label = "paid"
		}
		b.WriteString("\n")
		b.WriteString(rowStyle.Render(
			padWidth(truncWidth(rec.UnitID, unitW), unitW) + " " +
				padWidth(truncWidth(cli.OrDash(rec.TenantName), tenantW), tenantW) + " " +
				padWidth(truncWidth(cli.OrDash(rec.Period), periodW), periodW) + " " +
				fmt.Sprintf("%*s %*s %*s ", usageW, cli.FormatUnits(bill.UsageUnits), moneyW, cli.FormatMoney(bill.RentDue, cur), moneyW, repair)))
		b.WriteString(status.Render(label))
	}
	return components.ContentCard("Units", b.String(), cw)
}
