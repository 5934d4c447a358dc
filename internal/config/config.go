// Package config loads and saves rentroll settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Source kinds.
const (
	SourceCSVURL = "csv_url"
	SourceFile   = "file"
	SourceSheets = "sheets"
)

// Config holds all rentroll configuration.
type Config struct {
	Source     SourceConfig     `toml:"source"`
	Billing    BillingConfig    `toml:"billing"`
	Labels     LabelsConfig     `toml:"labels"`
	Columns    ColumnsConfig    `toml:"columns"`
	Notice     NoticeConfig     `toml:"notice"`
	Dispatch   DispatchConfig   `toml:"dispatch"`
	Daemon     DaemonConfig     `toml:"daemon"`
	TUI        TUIConfig        `toml:"tui"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// SourceConfig says where the ledger snapshot comes from.
type SourceConfig struct {
	Kind            string   `toml:"kind"`
	URL             string   `toml:"url,omitempty"`
	Path            string   `toml:"path,omitempty"`
	Sheet           string   `toml:"sheet,omitempty"`
	SpreadsheetID   string   `toml:"spreadsheet_id,omitempty"`
	Range           string   `toml:"range,omitempty"`
	CredentialsFile string   `toml:"credentials_file,omitempty"`
	CacheTTL        Duration `toml:"cache_ttl"`
	Timeout         Duration `toml:"timeout"`
}

// BillingConfig holds the business parameters of a billing cycle.
type BillingConfig struct {
	Rate        float64       `toml:"rate"`
	DueDay      int           `toml:"due_day"`
	Currency    string        `toml:"currency"`
	RateHistory []RateVersion `toml:"rate_history,omitempty"`
}

// LabelsConfig lists the source vocabulary for statuses.
// Matching is case-insensitive after trimming.
type LabelsConfig struct {
	Paid          []string `toml:"paid"`
	Unpaid        []string `toml:"unpaid"`
	RepairPending []string `toml:"repair_pending"`
}

// ColumnsConfig lists accepted header names per ledger field.
type ColumnsConfig struct {
	UnitID        []string `toml:"unit_id"`
	Period        []string `toml:"period"`
	TenantName    []string `toml:"tenant_name"`
	CompanyName   []string `toml:"company_name"`
	BaseRent      []string `toml:"base_rent"`
	MeterPrevious []string `toml:"meter_previous"`
	MeterCurrent  []string `toml:"meter_current"`
	RepairFee     []string `toml:"repair_fee"`
	DamagedItem   []string `toml:"damaged_item"`
	RepairStatus  []string `toml:"repair_status"`
	PaymentStatus []string `toml:"payment_status"`
	CombinedDue   []string `toml:"combined_due"`
}

// NoticeConfig customizes tenant notices.
type NoticeConfig struct {
	Template string `toml:"template,omitempty"`
	PDFFont  string `toml:"pdf_font,omitempty"`
}

// DispatchConfig holds AMQP settings for publishing notices.
type DispatchConfig struct {
	AMQPURL    string `toml:"amqp_url,omitempty"`
	Exchange   string `toml:"exchange"`
	RoutingKey string `toml:"routing_key"`
}

// DaemonConfig holds defaults for `rentroll daemon`.
type DaemonConfig struct {
	Addr     string   `toml:"addr"`
	Interval Duration `toml:"interval"`
}

// TUIConfig holds dashboard refresh preferences.
type TUIConfig struct {
	AutoRefresh        bool `toml:"auto_refresh"`
	RefreshIntervalSec int  `toml:"refresh_interval_sec"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// Duration is a time.Duration written as "5s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Source: SourceConfig{
			Kind:     SourceCSVURL,
			CacheTTL: Duration{5 * time.Second},
			Timeout:  Duration{15 * time.Second},
		},
		Billing: BillingConfig{
			Rate:     5.0,
			DueDay:   5,
			Currency: "$",
		},
		Labels: LabelsConfig{
			Paid:          []string{"已繳", "已繳費", "已付", "已收", "paid"},
			Unpaid:        []string{"未繳", "未繳費", "未付", "欠繳", "unpaid"},
			RepairPending: []string{"待修", "待處理", "維修中", "pending"},
		},
		Columns: DefaultColumns(),
		Dispatch: DispatchConfig{
			Exchange:   "rentroll.notices",
			RoutingKey: "notice",
		},
		Daemon: DaemonConfig{
			Addr:     "127.0.0.1:8788",
			Interval: Duration{30 * time.Second},
		},
		TUI: TUIConfig{
			RefreshIntervalSec: 30,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// DefaultColumns returns the header aliases of the stock ledger sheet.
func DefaultColumns() ColumnsConfig {
	return ColumnsConfig{
		UnitID:        []string{"房號", "房間", "房间号", "unit", "unit_id", "room"},
		Period:        []string{"月份", "期別", "帳期", "period", "month"},
		TenantName:    []string{"房客", "房客姓名", "租客", "姓名", "tenant", "tenant_name"},
		CompanyName:   []string{"公司", "公司名稱", "company", "company_name"},
		BaseRent:      []string{"租金", "月租", "rent", "base_rent"},
		MeterPrevious: []string{"上期電表", "上月電表", "上期度數", "meter_previous", "previous_meter"},
		MeterCurrent:  []string{"本期電表", "本月電表", "本期度數", "meter_current", "current_meter"},
		RepairFee:     []string{"維修費", "修繕費", "repair_fee"},
		DamagedItem:   []string{"損壞物品", "損壞項目", "damaged_item"},
		RepairStatus:  []string{"維修狀態", "修繕狀態", "repair_status"},
		PaymentStatus: []string{"繳費狀態", "繳款狀態", "付款狀態", "payment_status", "status"},
		CombinedDue:   []string{"租金加電費", "應繳總額", "combined_due"},
	}
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "rentroll")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "rentroll")
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// LoadEnv loads a .env file from the working directory if one exists.
func LoadEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// Load reads the config file, returning defaults if it doesn't exist.
// Environment overrides are applied on top.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(Path())
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	case !os.IsNotExist(err):
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(Path(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return toml.NewEncoder(f).Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

// ApplyEnv overlays RENTROLL_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv("RENTROLL_SOURCE_URL")); v != "" {
		cfg.Source.Kind = SourceCSVURL
		cfg.Source.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("RENTROLL_SOURCE_PATH")); v != "" {
		cfg.Source.Kind = SourceFile
		cfg.Source.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("RENTROLL_SPREADSHEET_ID")); v != "" {
		cfg.Source.Kind = SourceSheets
		cfg.Source.SpreadsheetID = v
	}
	if v := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")); v != "" && cfg.Source.CredentialsFile == "" {
		cfg.Source.CredentialsFile = v
	}
	if v := strings.TrimSpace(os.Getenv("RENTROLL_RATE")); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RENTROLL_RATE: %w", err)
		}
		cfg.Billing.Rate = rate
	}
	if v := strings.TrimSpace(os.Getenv("RENTROLL_DUE_DAY")); v != "" {
		day, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RENTROLL_DUE_DAY: %w", err)
		}
		cfg.Billing.DueDay = day
	}
	if v := strings.TrimSpace(os.Getenv("RENTROLL_AMQP_URL")); v != "" {
		cfg.Dispatch.AMQPURL = v
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	switch c.Source.Kind {
	case SourceCSVURL, SourceFile, SourceSheets:
	default:
		errs = append(errs, fmt.Errorf("source.kind %q: want %s, %s or %s",
			c.Source.Kind, SourceCSVURL, SourceFile, SourceSheets))
	}
	if c.Source.CacheTTL.Duration < 0 {
		errs = append(errs, errors.New("source.cache_ttl must not be negative"))
	}
	if c.Billing.Rate < 0 {
		errs = append(errs, fmt.Errorf("billing.rate %.2f must not be negative", c.Billing.Rate))
	}
	if c.Billing.DueDay < 1 || c.Billing.DueDay > 28 {
		errs = append(errs, fmt.Errorf("billing.due_day %d must be between 1 and 28", c.Billing.DueDay))
	}
	if len(c.Columns.UnitID) == 0 {
		errs = append(errs, errors.New("columns.unit_id needs at least one header name"))
	}
	if err := validateHistory(c.Billing.RateHistory); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
