package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/rentroll/internal/cli"
	"github.com/theirongolddev/rentroll/internal/config"
	"github.com/theirongolddev/rentroll/internal/tui/components"
	"github.com/theirongolddev/rentroll/internal/tui/theme"
)

const (
	settingsFieldSource = iota
	settingsFieldRate
	settingsFieldDueDay
	settingsFieldCurrency
	settingsFieldTheme
	settingsFieldAutoRefresh
	settingsFieldRefreshInterval
	settingsFieldCount // sentinel
)

// settingsState tracks the settings tab state.
type settingsState struct {
	cursor  int
	editing bool
	input   textinput.Model
	saved   bool
	saveErr error
}

func newSettingsInput() textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 512
	ti.Width = 60
	return ti
}

// updateSettingsKeys handles navigation on the Settings tab.
func (a App) updateSettingsKeys(key string) (m tea.Model, cmd tea.Cmd, ok bool) {
	switch key {
	case "j", "down":
		if a.settings.cursor < settingsFieldCount-1 {
			a.settings.cursor++
		}
		return a, nil, true
	case "k", "up":
		if a.settings.cursor > 0 {
			a.settings.cursor--
		}
		return a, nil, true
	case "enter":
		m, cmd := a.settingsStartEdit()
		return m, cmd, true
	}
	return a, nil, false
}

func (a App) settingsStartEdit() (tea.Model, tea.Cmd) {
	a.settings.editing = true
	a.settings.saved = false

	ti := newSettingsInput()
	switch a.settings.cursor {
	case settingsFieldSource:
		ti.Placeholder = "CSV link, .csv/.xlsx path, or spreadsheet ID"
		ti.SetValue(sourceLocation(a.cfg.Source))
	case settingsFieldRate:
		ti.Placeholder = "5"
		ti.SetValue(strconv.FormatFloat(a.cfg.Billing.Rate, 'f', -1, 64))
	case settingsFieldDueDay:
		ti.Placeholder = "1-28"
		ti.SetValue(strconv.Itoa(a.cfg.Billing.DueDay))
	case settingsFieldCurrency:
		ti.Placeholder = "$"
		ti.SetValue(a.cfg.Billing.Currency)
	case settingsFieldTheme:
		ti.Placeholder = strings.Join(theme.Names(), ", ")
		ti.SetValue(a.cfg.Appearance.Theme)
	case settingsFieldAutoRefresh:
		ti.Placeholder = "true or false"
		ti.SetValue(strconv.FormatBool(a.autoRefresh))
	case settingsFieldRefreshInterval:
		ti.Placeholder = "30 (seconds, minimum 10)"
		ti.SetValue(strconv.Itoa(int(a.refreshInterval.Seconds())))
	}

	a.settings.input = ti
	return a, a.settings.input.Focus()
}

func (a App) updateSettingsInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		reload := a.settingsSave()
		a.settings.editing = false
		a.settings.saved = a.settings.saveErr == nil
		if reload && !a.refreshing {
			a.refreshing = true
			return a, loadDataCmd(a.cfg, a.newLoader, true)
		}
		return a, nil
	case "esc":
		a.settings.editing = false
		return a, nil
	}

	var cmd tea.Cmd
	a.settings.input, cmd = a.settings.input.Update(msg)
	return a, cmd
}

// settingsSave applies the edited field to the running app and the config
// file. It reports whether the ledger must be reloaded.
func (a *App) settingsSave() (reload bool) {
	fileCfg := loadConfigOrDefault()
	val := strings.TrimSpace(a.settings.input.Value())
	a.settings.saveErr = nil

	switch a.settings.cursor {
	case settingsFieldSource:
		if val == "" {
			a.settings.saveErr = errors.New("source location is required")
			return false
		}
		fileCfg.Source.Kind = a.cfg.Source.Kind
		setSourceLocation(&fileCfg.Source, val)
		setSourceLocation(&a.cfg.Source, val)
		reload = true
	case settingsFieldRate:
		rate, err := parseRate(val)
		if err != nil {
			a.settings.saveErr = err
			return false
		}
		fileCfg.Billing.Rate, fileCfg.Billing.RateHistory = rate, nil
		a.cfg.Billing.Rate, a.cfg.Billing.RateHistory = rate, nil
	case settingsFieldDueDay:
		day, err := parseDueDay(val)
		if err != nil {
			a.settings.saveErr = err
			return false
		}
		fileCfg.Billing.DueDay = day
		a.cfg.Billing.DueDay = day
	case settingsFieldCurrency:
		if val == "" {
			a.settings.saveErr = errors.New("currency symbol is required")
			return false
		}
		fileCfg.Billing.Currency = val
		a.cfg.Billing.Currency = val
	case settingsFieldTheme:
		if !theme.Valid(val) {
			a.settings.saveErr = fmt.Errorf("unknown theme %q", val)
			return false
		}
		fileCfg.Appearance.Theme = val
		a.cfg.Appearance.Theme = val
		theme.SetActive(val)
	case settingsFieldAutoRefresh:
		on := val == "true" || val == "1" || val == "yes"
		fileCfg.TUI.AutoRefresh = on
		a.autoRefresh = on
	case settingsFieldRefreshInterval:
		sec, err := strconv.Atoi(val)
		if err != nil || sec < minRefreshSeconds {
			a.settings.saveErr = fmt.Errorf("refresh interval must be at least %d seconds", minRefreshSeconds)
			return false
		}
		fileCfg.TUI.RefreshIntervalSec = sec
		a.refreshInterval = time.Duration(sec) * time.Second
	}

	a.applyConfig()
	a.settings.saveErr = config.Save(fileCfg)
	return reload
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	selectedLabelStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceBright).Bold(true)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	greenStyle := lipgloss.NewStyle().Foreground(t.GreenBright).Background(t.Surface)
	warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceBright)

	inner := components.CardInnerWidth(cw)

	fields := []struct{ label, value string }{
		{"Source (" + a.cfg.Source.Kind + ")", sourceLocation(a.cfg.Source)},
		{"Utility Rate", a.cfg.Tariff().Base().String()},
		{"Due Day", strconv.Itoa(a.cfg.Billing.DueDay)},
		{"Currency", a.cfg.Billing.Currency},
		{"Theme", a.cfg.Appearance.Theme},
		{"Auto Refresh", strconv.FormatBool(a.autoRefresh)},
		{"Refresh Interval", fmt.Sprintf("%ds", int(a.refreshInterval.Seconds()))},
	}

	var form strings.Builder
	for i, f := range fields {
		label := fmt.Sprintf("%-22s ", f.label+":")
		if a.settings.editing && i == a.settings.cursor {
			form.WriteString(markerStyle.Render("▸ "))
			form.WriteString(accentStyle.Render(label))
			form.WriteString(a.settings.input.View())
			form.WriteString("\n")
			continue
		}

		value := truncWidth(cli.OrDash(f.value), inner-lipgloss.Width(label)-2)
		if i == a.settings.cursor {
			row := markerStyle.Render("▸ ") + selectedLabelStyle.Render(label) + selectedStyle.Render(value)
			form.WriteString(row)
			if pad := inner - lipgloss.Width(row); pad > 0 {
				form.WriteString(lipgloss.NewStyle().Background(t.SurfaceBright).Render(strings.Repeat(" ", pad)))
			}
		} else {
			form.WriteString(labelStyle.Render("  " + label))
			form.WriteString(valueStyle.Render(value))
		}
		form.WriteString("\n")
	}

	switch {
	case a.settings.saveErr != nil:
		form.WriteString("\n")
		form.WriteString(warnStyle.Render("Not saved: " + a.settings.saveErr.Error()))
	case a.settings.saved:
		form.WriteString("\n")
		form.WriteString(greenStyle.Render("Saved!"))
	}
	form.WriteString("\n")
	form.WriteString(labelStyle.Render("[j/k] navigate  [Enter] edit  [Esc] cancel"))

	var info strings.Builder
	rows := 0
	if a.result != nil {
		rows = len(a.result.Records)
	}
	info.WriteString(labelStyle.Render("Rows loaded:   ") + valueStyle.Render(cli.FormatNumber(int64(rows))) + "\n")
	info.WriteString(labelStyle.Render("Units:         ") + valueStyle.Render(cli.FormatNumber(int64(len(a.latest)))) + "\n")
	info.WriteString(labelStyle.Render("Load time:     ") + valueStyle.Render(fmt.Sprintf("%.1fs", a.loadTime.Seconds())) + "\n")
	if a.result != nil && len(a.result.Missing) > 0 {
		names := make([]string, len(a.result.Missing))
		for i, f := range a.result.Missing {
			names[i] = f.String()
		}
		info.WriteString(labelStyle.Render("Missing cols:  ") + warnStyle.Render(truncWidth(strings.Join(names, ", "), inner-15)) + "\n")
	}
	info.WriteString(labelStyle.Render("Config file:   ") + valueStyle.Render(truncWidth(config.Path(), inner-15)))

	var b strings.Builder
	b.WriteString(components.ContentCard("Settings", form.String(), cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("Ledger", info.String(), cw))
	return b.String()
}
