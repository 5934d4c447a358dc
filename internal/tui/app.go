// Package tui provides the interactive Bubble Tea dashboard for rentroll.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/rentroll/internal/cli"
	"github.com/theirongolddev/rentroll/internal/config"
	"github.com/theirongolddev/rentroll/internal/model"
	"github.com/theirongolddev/rentroll/internal/notice"
	"github.com/theirongolddev/rentroll/internal/pipeline"
	"github.com/theirongolddev/rentroll/internal/tui/components"
	"github.com/theirongolddev/rentroll/internal/tui/theme"
)

// Loader runs one refresh of the ledger.
type Loader interface {
	Load(ctx context.Context) *pipeline.LoadResult
}

// LoaderFactory builds a Loader for cfg. The returned function releases
// whatever the loader holds open.
type LoaderFactory func(cfg config.Config) (Loader, func(), error)

// DataLoadedMsg is sent when the first ledger load finishes.
type DataLoadedMsg struct {
	Result   *pipeline.LoadResult
	LoadTime time.Duration
}

// RefreshDataMsg is sent when a background refresh completes.
type RefreshDataMsg struct {
	Result   *pipeline.LoadResult
	LoadTime time.Duration
}

const (
	tabMonitor = iota
	tabSettle
	tabSettings
)

// App is the root Bubble Tea model.
type App struct {
	cfg       config.Config
	newLoader LoaderFactory

	// Data
	result   *pipeline.LoadResult
	loaded   bool
	loadTime time.Duration

	// Derived from result.Latest under the current config
	latest    []model.UnitPeriodRecord
	bills     []model.BillingResult
	summary   model.PortfolioSummary
	anomalies []model.BillingResult
	composer  *notice.Composer
	noticeErr error

	// Auto-refresh state
	autoRefresh     bool
	refreshInterval time.Duration
	lastRefresh     time.Time
	refreshing      bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool

	// Per-tab state
	settle   settleState
	settings settingsState

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals *SetupValues
	needSetup bool

	spinner spinner.Model
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180

	scrollOverhead    = 10
	minHalfPageScroll = 1
	minContentHeight  = 5
	minRefreshSeconds = 10
)

// loadConfigOrDefault loads the on-disk config, returning defaults on error
// so the dashboard can always start.
func loadConfigOrDefault() config.Config {
	cfg, err := config.Load()
	if err != nil {
		return config.DefaultConfig()
	}
	return cfg
}

// NewApp creates a new TUI app model. cfg is the effective configuration,
// command-line overrides included.
func NewApp(cfg config.Config, newLoader LoaderFactory) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	a := App{
		cfg:         cfg,
		newLoader:   newLoader,
		needSetup:   !config.Exists(),
		autoRefresh: cfg.TUI.AutoRefresh,
		spinner:     sp,
	}
	a.refreshInterval = refreshIntervalFor(cfg.TUI.RefreshIntervalSec)
	a.applyConfig()

	if a.needSetup {
		a.setupVals = NewSetupValues(cfg)
		a.setupForm = NewSetupForm(a.setupVals)
	}
	return a
}

func refreshIntervalFor(sec int) time.Duration {
	if sec < minRefreshSeconds {
		return 30 * time.Second
	}
	return time.Duration(sec) * time.Second
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	if a.needSetup && a.setupForm != nil {
		return tea.Batch(tea.EnableMouseCellMotion, a.setupForm.Init())
	}
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadDataCmd(a.cfg, a.newLoader, false),
		a.spinner.Tick,
		tickCmd(),
	)
}

// applyConfig rebuilds everything that depends on cfg and recomputes.
func (a *App) applyConfig() {
	a.composer, a.noticeErr = notice.NewComposer(a.cfg)
	a.recompute()
}

func (a *App) recompute() {
	a.latest = nil
	if a.result != nil && a.result.Err == nil {
		a.latest = a.result.Latest
	}

	tariff := a.cfg.Tariff()
	a.bills = pipeline.BillAll(a.latest, tariff)
	a.summary = pipeline.NewAggregatorFromConfig(a.cfg).Aggregate(a.latest)
	a.anomalies = nil
	for _, b := range a.bills {
		if b.MeterAnomaly {
			a.anomalies = append(a.anomalies, b)
		}
	}

	visible := a.settleVisible()
	if a.settle.cursor >= len(visible) {
		a.settle.cursor = len(visible) - 1
	}
	if a.settle.cursor < 0 {
		a.settle.cursor = 0
	}
	a.settle.detailScroll = 0
}

func (a App) sourceUnavailable() bool {
	return a.result != nil && a.result.Err != nil
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.setupForm != nil {
			return a, nil
		}
		return a.updateMouse(msg)

	case tea.KeyMsg:
		key := msg.String()

		if key == "ctrl+c" {
			return a, tea.Quit
		}

		if a.needSetup && a.setupForm != nil {
			return a.updateSetupForm(msg)
		}

		if !a.loaded {
			return a, nil
		}

		if a.activeTab == tabSettings && a.settings.editing {
			return a.updateSettingsInput(msg)
		}
		if a.activeTab == tabSettle && a.settle.searching {
			return a.updateSettleSearch(msg)
		}

		if key == "?" {
			a.showHelp = !a.showHelp
			return a, nil
		}
		if a.showHelp {
			a.showHelp = false
			return a, nil
		}

		switch a.activeTab {
		case tabSettle:
			if m, cmd, ok := a.updateSettleKeys(key); ok {
				return m, cmd
			}
		case tabSettings:
			if m, cmd, ok := a.updateSettingsKeys(key); ok {
				return m, cmd
			}
		}

		switch key {
		case "q":
			return a, tea.Quit
		case "r":
			if !a.refreshing {
				a.refreshing = true
				return a, loadDataCmd(a.cfg, a.newLoader, true)
			}
			return a, nil
		case "R":
			a.autoRefresh = !a.autoRefresh
			cfg := loadConfigOrDefault()
			cfg.TUI.AutoRefresh = a.autoRefresh
			_ = config.Save(cfg)
			return a, nil
		case "left":
			a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		case "right", "tab":
			a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		default:
			if r := []rune(key); len(r) == 1 {
				if idx := components.TabIdxByKey(r[0]); idx >= 0 {
					a.activeTab = idx
				}
			}
		}
		return a, nil

	case DataLoadedMsg:
		a.result = msg.Result
		a.loaded = true
		a.loadTime = msg.LoadTime
		a.lastRefresh = time.Now()
		a.recompute()
		return a, nil

	case RefreshDataMsg:
		a.refreshing = false
		a.lastRefresh = time.Now()
		a.result = msg.Result
		a.loadTime = msg.LoadTime
		a.recompute()
		return a, nil

	case spinner.TickMsg:
		if !a.loaded {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.loaded && a.autoRefresh && !a.refreshing && time.Since(a.lastRefresh) >= a.refreshInterval {
			a.refreshing = true
			cmds = append(cmds, loadDataCmd(a.cfg, a.newLoader, true))
		}
		return a, tea.Batch(cmds...)
	}

	// Forward unhandled messages to the setup form (cursor blinks, etc.)
	if a.needSetup && a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	return a, nil
}

func (a App) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if a.activeTab == tabSettle && !a.settle.searching {
			a.settleMove(-1)
		}
	case tea.MouseButtonWheelDown:
		if a.activeTab == tabSettle && !a.settle.searching {
			a.settleMove(1)
		}
	case tea.MouseButtonLeft:
		if msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
	}
	return a, nil
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		if cfg, err := a.setupVals.Apply(loadConfigOrDefault()); err == nil {
			_ = config.Save(cfg)
			theme.SetActive(cfg.Appearance.Theme)
			a.cfg = mergeSetup(a.cfg, cfg)
			a.applyConfig()
		}
		a.needSetup = false
		a.setupForm = nil
		return a, tea.Batch(loadDataCmd(a.cfg, a.newLoader, false), a.spinner.Tick, tickCmd())
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, tea.Batch(loadDataCmd(a.cfg, a.newLoader, false), a.spinner.Tick, tickCmd())
	}
	return a, cmd
}

// mergeSetup copies the fields the setup form edits from saved into cur.
func mergeSetup(cur, saved config.Config) config.Config {
	cur.Source.Kind = saved.Source.Kind
	cur.Source.URL = saved.Source.URL
	cur.Source.Path = saved.Source.Path
	cur.Source.SpreadsheetID = saved.Source.SpreadsheetID
	cur.Billing.Rate = saved.Billing.Rate
	cur.Billing.RateHistory = saved.Billing.RateHistory
	cur.Billing.DueDay = saved.Billing.DueDay
	cur.Billing.Currency = saved.Billing.Currency
	cur.Appearance.Theme = saved.Appearance.Theme
	return cur
}

func (a App) contentWidth() int {
	cw := a.width
	if cw > maxContentWidth {
		cw = maxContentWidth
	}
	return cw
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.needSetup && a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := a.height
	if h < 5 {
		h = 5
	}
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  rentroll needs at least %d columns.\n",
		a.width, minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ rentroll"))
	b.WriteString(subtitleStyle.Render(" · Rental Ledger"))
	b.WriteString("\n\n")
	b.WriteString(a.spinner.View())
	b.WriteString(subtitleStyle.Render(" Fetching ledger..."))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")

	sections := []struct {
		name     string
		bindings []struct{ key, desc string }
	}{
		{"Navigation", []struct{ key, desc string }{
			{"m s x", "Jump to tab"},
			{"← →", "Previous / Next tab"},
			{"j k", "Move through units / settings"},
			{"J K", "Scroll detail pane"},
			{"^d ^u", "Half-page scroll"},
		}},
		{"Actions", []struct{ key, desc string }{
			{"/", "Search units"},
			{"Enter", "Edit setting / Confirm"},
			{"Esc", "Clear search / Cancel"},
			{"r", "Refresh ledger"},
			{"R", "Toggle auto-refresh"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}
	for i, sec := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(sectionStyle.Render(sec.name))
		b.WriteString("\n")
		for _, bind := range sec.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
				descStyle.Render(bind.desc))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	header := components.RenderTabBar(a.activeTab, w)

	info := components.StatusInfo{
		Refreshing:  a.refreshing,
		AutoRefresh: a.autoRefresh,
		Unavailable: a.sourceUnavailable(),
	}
	if a.result != nil {
		if a.result.Table != nil {
			info.Source = a.result.Table.Origin
		}
		info.FromCache = a.result.FromCache
		if !a.result.FetchedAt.IsZero() {
			info.DataAge = cli.FormatAge(a.result.FetchedAt, time.Now())
		}
	}
	statusBar := components.RenderStatusBar(w, info)

	contentH := h - lipgloss.Height(header) - lipgloss.Height(statusBar)
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	var content string
	switch a.activeTab {
	case tabMonitor:
		content = a.renderMonitorTab(cw)
	case tabSettle:
		content = a.renderSettleTab(cw, contentH)
	case tabSettings:
		content = a.renderSettingsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// renderUnavailableBanner is shown on data tabs while the last fetch failed.
func (a App) renderUnavailableBanner(cw int) string {
	if !a.sourceUnavailable() {
		return ""
	}
	t := theme.Active
	msgStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	hintStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	body := msgStyle.Render(truncWidth(a.result.Err.Error(), components.CardInnerWidth(cw))) + "\n" +
		hintStyle.Render("No figures are shown until the source answers. Press r to retry.")
	return components.AlertCard("⚠ Source unavailable", body, cw) + "\n"
}

// ─── Helpers ────────────────────────────────────────────────────

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// loadDataCmd runs one ledger load in the background. Loader construction
// errors are reported like any other source failure.
func loadDataCmd(cfg config.Config, newLoader LoaderFactory, refresh bool) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		res := runLoad(cfg, newLoader)
		if refresh {
			return RefreshDataMsg{Result: res, LoadTime: time.Since(start)}
		}
		return DataLoadedMsg{Result: res, LoadTime: time.Since(start)}
	}
}

func runLoad(cfg config.Config, newLoader LoaderFactory) *pipeline.LoadResult {
	l, closeFn, err := newLoader(cfg)
	if err != nil {
		return &pipeline.LoadResult{Err: fmt.Errorf("%w: %w", pipeline.ErrSourceUnavailable, err)}
	}
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Source.Timeout.Duration+10*time.Second)
	defer cancel()
	return l.Load(ctx)
}

// truncWidth shortens s to at most w display columns.
func truncWidth(s string, w int) string {
	if w <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= w {
		return s
	}
	var b strings.Builder
	used := 0
	for _, r := range s {
		rw := lipgloss.Width(string(r))
		if used+rw > w-1 {
			break
		}
		b.WriteRune(r)
		used += rw
	}
	return b.String() + "…"
}

// padWidth right-pads s with spaces to w display columns.
func padWidth(s string, w int) string {
	if n := w - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		result.WriteString(lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg)))
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes follow the same width rules RenderTabBar uses.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW
		if i < len(components.Tabs)-1 {
			pos++ // separator
		}
	}
	return -1
}
