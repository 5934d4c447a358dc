package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/rentroll/internal/cli"
	"github.com/theirongolddev/rentroll/internal/model"
	"github.com/theirongolddev/rentroll/internal/tui/components"
	"github.com/theirongolddev/rentroll/internal/tui/theme"
)

// settleState holds the Settle tab state. cursor indexes settleVisible().
type settleState struct {
	cursor       int
	offset       int
	detailScroll int

	searching   bool
	searchInput textinput.Model
	query       string
}

func newSearchInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "unit, tenant or company"
	ti.CharLimit = 64
	ti.Width = 30
	ti.Prompt = "/ "
	return ti
}

// settleVisible returns indices into a.latest matching the search query.
func (a App) settleVisible() []int {
	q := strings.ToLower(strings.TrimSpace(model.FoldWidth(a.settle.query)))
	out := make([]int, 0, len(a.latest))
	for i, rec := range a.latest {
		if q == "" || matchesQuery(rec, q) {
			out = append(out, i)
		}
	}
	return out
}

func matchesQuery(rec model.UnitPeriodRecord, q string) bool {
	for _, f := range []string{rec.UnitID, rec.TenantName, rec.CompanyName} {
		if strings.Contains(strings.ToLower(model.FoldWidth(f)), q) {
			return true
		}
	}
	return false
}

func (a *App) settleMove(delta int) {
	n := len(a.settleVisible())
	a.settle.cursor += delta
	if a.settle.cursor >= n {
		a.settle.cursor = n - 1
	}
	if a.settle.cursor < 0 {
		a.settle.cursor = 0
	}
	a.settle.detailScroll = 0
}

func (a App) halfPage() int {
	hp := (a.height - scrollOverhead) / 2
	if hp < minHalfPageScroll {
		hp = minHalfPageScroll
	}
	return hp
}

// updateSettleKeys handles Settle tab keys. ok is false for keys it leaves
// to the global handler.
func (a App) updateSettleKeys(key string) (m tea.Model, cmd tea.Cmd, ok bool) {
	switch key {
	case "/":
		a.settle.searching = true
		a.settle.searchInput = newSearchInput()
		a.settle.searchInput.SetValue(a.settle.query)
		return a, a.settle.searchInput.Focus(), true
	case "esc":
		if a.settle.query != "" {
			a.settle.query = ""
			a.settle.cursor = 0
			a.settle.offset = 0
			a.settle.detailScroll = 0
		}
		return a, nil, true
	case "j", "down":
		a.settleMove(1)
		return a, nil, true
	case "k", "up":
		a.settleMove(-1)
		return a, nil, true
	case "g":
		a.settle.cursor = 0
		a.settle.offset = 0
		a.settle.detailScroll = 0
		return a, nil, true
	case "G":
		a.settleMove(len(a.latest))
		return a, nil, true
	case "J":
		a.settle.detailScroll++
		return a, nil, true
	case "K":
		if a.settle.detailScroll > 0 {
			a.settle.detailScroll--
		}
		return a, nil, true
	case "ctrl+d":
		a.settle.detailScroll += a.halfPage()
		return a, nil, true
	case "ctrl+u":
		a.settle.detailScroll -= a.halfPage()
		if a.settle.detailScroll < 0 {
			a.settle.detailScroll = 0
		}
		return a, nil, true
	}
	return a, nil, false
}

// updateSettleSearch handles key events while the search box is open.
func (a App) updateSettleSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.settle.query = strings.TrimSpace(a.settle.searchInput.Value())
		a.settle.searching = false
		a.settle.cursor = 0
		a.settle.offset = 0
		a.settle.detailScroll = 0
		return a, nil
	case "esc":
		a.settle.searching = false
		return a, nil
	}

	var cmd tea.Cmd
	a.settle.searchInput, cmd = a.settle.searchInput.Update(msg)
	return a, cmd
}

func (a App) renderSettleTab(cw, h int) string {
	t := theme.Active
	banner := a.renderUnavailableBanner(cw)
	h -= lipgloss.Height(banner)
	if banner == "" {
		h++ // no trailing newline to account for
	}

	visible := a.settleVisible()
	if len(visible) == 0 {
		msg := "No units loaded"
		if a.settle.query != "" {
			msg = fmt.Sprintf("No units match %q (Esc clears the search)", a.settle.query)
		}
		body := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render(msg)
		if a.settle.searching {
			body = a.settle.searchInput.View() + "\n" + body
		}
		return banner + components.ContentCard("Units", body, cw)
	}

	if a.isCompactLayout() {
		listH := h / 3
		if listH < 6 {
			listH = 6
		}
		list := a.renderSettleList(visible, cw, listH)
		detail := a.renderSettleDetail(visible, cw, h-lipgloss.Height(list))
		return banner + list + "\n" + detail
	}

	leftW := cw / 3
	if leftW < 34 {
		leftW = 34
	}
	rightW := cw - leftW
	return banner + components.CardRow([]string{
		a.renderSettleList(visible, leftW, h),
		a.renderSettleDetail(visible, rightW, h),
	})
}

func (a App) renderSettleList(visible []int, w, h int) string {
	t := theme.Active
	cur := a.cfg.Billing.Currency
	inner := components.CardInnerWidth(w)

	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	rows := h - 5 // border, title, hint
	if a.settle.searching || a.settle.query != "" {
		rows--
	}
	if rows < 3 {
		rows = 3
	}

	offset := a.settle.offset
	if a.settle.cursor < offset {
		offset = a.settle.cursor
	}
	if a.settle.cursor >= offset+rows {
		offset = a.settle.cursor - rows + 1
	}

	var body strings.Builder
	switch {
	case a.settle.searching:
		body.WriteString(a.settle.searchInput.View())
		body.WriteString("\n")
	case a.settle.query != "":
		body.WriteString(mutedStyle.Render(truncWidth(fmt.Sprintf("filter: %s (%d)", a.settle.query, len(visible)), inner)))
		body.WriteString("\n")
	}

	moneyW := 12
	labelW := inner - moneyW - 3
	end := offset + rows
	if end > len(visible) {
		end = len(visible)
	}
	for pos := offset; pos < end; pos++ {
		i := visible[pos]
		rec := a.latest[i]
		dot := lipgloss.NewStyle().Foreground(theme.StatusColor(rec.PaymentStatus.IsPaid())).Background(t.Surface).Render("●")

		style := rowStyle
		if pos == a.settle.cursor {
			style = selectedStyle
		}
		line := padWidth(truncWidth(rec.Label(), labelW), labelW) + " " +
			fmt.Sprintf("%*s", moneyW, cli.FormatMoney(a.bills[i].TotalDue, cur))
		body.WriteString(dot)
		body.WriteString(style.Render(" " + line))
		if pos < end-1 {
			body.WriteString("\n")
		}
	}
	body.WriteString("\n")
	body.WriteString(mutedStyle.Render("[/] search  [j/k] move"))

	title := fmt.Sprintf("Units %d/%d", a.settle.cursor+1, len(visible))
	return components.ContentCard(title, body.String(), w)
}

func (a App) renderSettleDetail(visible []int, w, h int) string {
	t := theme.Active
	cur := a.cfg.Billing.Currency
	if a.settle.cursor >= len(visible) {
		return ""
	}
	i := visible[a.settle.cursor]
	rec := a.latest[i]
	bill := a.bills[i]

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	totalStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)

	inner := components.CardInnerWidth(w)
	field := func(label, value string) string {
		return labelStyle.Render(fmt.Sprintf("%-14s", label)) + valueStyle.Render(truncWidth(value, inner-14))
	}

	status := lipgloss.NewStyle().Foreground(theme.StatusColor(rec.PaymentStatus.IsPaid())).Background(t.Surface).Bold(true)
	statusText := "UNPAID"
	if rec.PaymentStatus.IsPaid() {
		statusText = "PAID"
	}
	if !rec.StatusRecorded {
		statusText += " (no status column)"
	}

	lines := []string{
		field("Tenant", cli.OrDash(rec.TenantName)),
		field("Company", cli.OrDash(rec.CompanyName)),
		field("Period", cli.OrDash(rec.Period)),
		labelStyle.Render(fmt.Sprintf("%-14s", "Status")) + status.Render(statusText),
		"",
		sectionStyle.Render("Billing"),
		field("Meter", cli.FormatUnits(rec.MeterPrevious)+" → "+cli.FormatUnits(rec.MeterCurrent)),
		field("Usage", cli.FormatUnits(bill.UsageUnits)+" × "+cli.FormatMoney(bill.Rate, cur)),
		field("Utility", cli.FormatMoney(bill.UtilityCharge, cur)),
		field("Base rent", cli.FormatMoney(bill.BaseRent, cur)),
		labelStyle.Render(fmt.Sprintf("%-14s", "Rent due")) + totalStyle.Render(cli.FormatMoney(bill.RentDue, cur)),
	}
	if bill.MeterAnomaly {
		lines = append(lines, warnStyle.Render("▲ Current reading is below the previous one"))
	}
	if bill.HasRepairFee() || rec.DamagedItem != "" {
		lines = append(lines,
			"",
			sectionStyle.Render("Repair"),
			field("Item", cli.OrDash(rec.DamagedItem)),
			field("Status", cli.OrDash(rec.RepairStatus)),
			field("Fee", cli.FormatMoney(bill.RepairFee, cur)),
			field("Rent + repair", cli.FormatMoney(bill.CombinedWithRepair(), cur)),
		)
	}

	lines = append(lines, "", sectionStyle.Render("Notice"))
	switch {
	case a.noticeErr != nil:
		lines = append(lines, warnStyle.Render("Notice template error: "+a.noticeErr.Error()))
	case a.composer != nil:
		for _, l := range strings.Split(a.composer.Compose(rec, bill), "\n") {
			lines = append(lines, valueStyle.Render(truncWidth(l, inner)))
		}
	}

	rows := h - 3
	if rows < 3 {
		rows = 3
	}
	scroll := a.settle.detailScroll
	if maxScroll := len(lines) - rows; scroll > maxScroll {
		scroll = maxScroll
	}
	if scroll < 0 {
		scroll = 0
	}
	lines = lines[scroll:]
	if len(lines) > rows {
		lines = lines[:rows]
	}

	return components.ContentCard("Unit "+rec.UnitID, strings.Join(lines, "\n"), w)
}
