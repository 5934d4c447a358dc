package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/rentroll/internal/config"
	"github.com/theirongolddev/rentroll/internal/tui/theme"
)

// SetupValues holds the first-run wizard answers as the form edits them.
type SetupValues struct {
	SourceKind string
	Location   string
	Rate       string
	DueDay     string
	Currency   string
	Theme      string
}

// NewSetupValues seeds the wizard from cfg.
func NewSetupValues(cfg config.Config) *SetupValues {
	v := &SetupValues{
		SourceKind: cfg.Source.Kind,
		Rate:       strconv.FormatFloat(cfg.Billing.Rate, 'f', -1, 64),
		DueDay:     strconv.Itoa(cfg.Billing.DueDay),
		Currency:   cfg.Billing.Currency,
		Theme:      cfg.Appearance.Theme,
	}
	if v.SourceKind == "" {
		v.SourceKind = config.SourceCSVURL
	}
	v.Location = sourceLocation(cfg.Source)
	return v
}

// sourceLocation returns the field that identifies the source for its kind.
func sourceLocation(s config.SourceConfig) string {
	switch s.Kind {
	case config.SourceFile:
		return s.Path
	case config.SourceSheets:
		return s.SpreadsheetID
	default:
		return s.URL
	}
}

// setSourceLocation stores loc in the field that matches s.Kind.
func setSourceLocation(s *config.SourceConfig, loc string) {
	switch s.Kind {
	case config.SourceFile:
		s.Path = loc
	case config.SourceSheets:
		s.SpreadsheetID = loc
	default:
		s.URL = loc
	}
}

// Apply writes the answers into cfg and validates the result.
func (v *SetupValues) Apply(cfg config.Config) (config.Config, error) {
	rate, err := parseRate(v.Rate)
	if err != nil {
		return cfg, err
	}
	day, err := parseDueDay(v.DueDay)
	if err != nil {
		return cfg, err
	}

	cfg.Source.Kind = v.SourceKind
	setSourceLocation(&cfg.Source, strings.TrimSpace(v.Location))
	if rate != cfg.Billing.Rate {
		cfg.Billing.Rate = rate
		cfg.Billing.RateHistory = nil
	}
	cfg.Billing.DueDay = day
	if c := strings.TrimSpace(v.Currency); c != "" {
		cfg.Billing.Currency = c
	}
	if theme.Valid(v.Theme) {
		cfg.Appearance.Theme = v.Theme
	}
	return cfg, cfg.Validate()
}

func parseRate(s string) (float64, error) {
	rate, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, errors.New("rate must be a number")
	}
	if rate < 0 {
		return 0, errors.New("rate must not be negative")
	}
	return rate, nil
}

func parseDueDay(s string) (int, error) {
	day, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || day < 1 || day > 28 {
		return 0, fmt.Errorf("due day must be between 1 and 28")
	}
	return day, nil
}

func validateLocation(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

// NewSetupForm builds the wizard form bound to v.
func NewSetupForm(v *SetupValues) *huh.Form {
	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, name := range theme.Names() {
		themeOpts = append(themeOpts, huh.NewOption(name, name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to rentroll").
				Description("Point rentroll at your ledger sheet and set the billing basics.\nYou can change everything later with `rentroll setup` or the Settings tab."),
			huh.NewSelect[string]().
				Title("Ledger source").
				Options(
					huh.NewOption("Published CSV link", config.SourceCSVURL),
					huh.NewOption("Local CSV / XLSX file", config.SourceFile),
					huh.NewOption("Google Sheets API", config.SourceSheets),
				).
				Value(&v.SourceKind),
			huh.NewInput().
				Title("Source location").
				Description("CSV link, file path, or spreadsheet ID").
				Value(&v.Location).
				Validate(validateLocation),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Utility rate").
				Description("Price per metered unit").
				Value(&v.Rate).
				Validate(func(s string) error { _, err := parseRate(s); return err }),
			huh.NewInput().
				Title("Payment due day").
				Description("Day of the month printed on notices (1-28)").
				Value(&v.DueDay).
				Validate(func(s string) error { _, err := parseDueDay(s); return err }),
			huh.NewInput().
				Title("Currency symbol").
				Value(&v.Currency),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&v.Theme),
		),
	).WithShowHelp(true)
}
