package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/mcclellann/rabbitfunding/pkg/auth"
	"github.com/mcclellann/rabbitfunding/pkg/ledger"
	"github.com/mcclellann/rabbitfunding/pkg/metrics"
	"github.com/mcclellann/rabbitfunding/pkg/sheets"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// MinJWTSecretLength is the shortest accepted JWT_SECRET.
const MinJWTSecretLength = 32

type Config struct {
	Port         string
	DatabasePath string
	LogLevel     string

	JWTSecret     string
	JWTTTL        time.Duration
	BcryptCost    int
	AdminName     string
	AdminEmail    string
	AdminPassword string
	LoginRate     float64 // Attempts per second per client IP
	LoginBurst    int

	RefreshInterval time.Duration
	SnapshotTTL     time.Duration
	Sheets          SheetsConfig
	WorkbookPath    string

	DefaultFactorRate decimal.Decimal
	InstallmentSource metrics.InstallmentSource
	LedgerPageSize    int
	DealsPageSize     int
}

type SheetsConfig struct {
	APIKey        string
	SpreadsheetID string
	DealsTab      string
	PayoutTab     string
	BaseURL       string
	Timeout       time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "5000")
	v.SetDefault("DATABASE_PATH", "rabbitfunding.db")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", auth.DefaultTokenTTL)
	v.SetDefault("BCRYPT_COST", auth.DefaultBcryptCost)
	v.SetDefault("ADMIN_NAME", "Admin")
	v.SetDefault("ADMIN_EMAIL", "admin@rabbitfunding.com")
	v.SetDefault("ADMIN_PASSWORD", "admin123")
	v.SetDefault("LOGIN_RATE", 0.2)
	v.SetDefault("LOGIN_BURST", 5)
	v.SetDefault("REFRESH_INTERVAL", 60*time.Second)
	v.SetDefault("SNAPSHOT_TTL", 5*time.Minute)
	v.SetDefault("SHEETS_API_KEY", "")
	v.SetDefault("SHEETS_SPREADSHEET_ID", "")
	v.SetDefault("SHEETS_DEALS_TAB", sheets.DefaultDealsTab)
	v.SetDefault("SHEETS_PAYOUT_TAB", sheets.DefaultPayoutTab)
	v.SetDefault("SHEETS_BASE_URL", sheets.DefaultBaseURL)
	v.SetDefault("SHEETS_TIMEOUT", 15*time.Second)
	v.SetDefault("WORKBOOK_PATH", "")
	v.SetDefault("DEFAULT_FACTOR_RATE", metrics.DefaultFactorRate.String())
	v.SetDefault("INSTALLMENT_SOURCE", string(metrics.InstallmentLastPayment))
	v.SetDefault("LEDGER_PAGE_SIZE", ledger.DefaultPageSize)
	v.SetDefault("DEALS_PAGE_SIZE", 20)
}

// LoadConfig reads configuration from the environment and an optional .env
// file. Environment variables take precedence over the file.
func LoadConfig(envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	factor, err := decimal.NewFromString(v.GetString("DEFAULT_FACTOR_RATE"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_FACTOR_RATE: %w", err)
	}

	cfg := &Config{
		Port:          v.GetString("PORT"),
		DatabasePath:  v.GetString("DATABASE_PATH"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		JWTTTL:        v.GetDuration("JWT_TTL"),
		BcryptCost:    v.GetInt("BCRYPT_COST"),
		AdminName:     v.GetString("ADMIN_NAME"),
		AdminEmail:    v.GetString("ADMIN_EMAIL"),
		AdminPassword: v.GetString("ADMIN_PASSWORD"),
		LoginRate:     v.GetFloat64("LOGIN_RATE"),
		LoginBurst:    v.GetInt("LOGIN_BURST"),

		RefreshInterval: v.GetDuration("REFRESH_INTERVAL"),
		SnapshotTTL:     v.GetDuration("SNAPSHOT_TTL"),
		Sheets: SheetsConfig{
			APIKey:        v.GetString("SHEETS_API_KEY"),
			SpreadsheetID: v.GetString("SHEETS_SPREADSHEET_ID"),
			DealsTab:      v.GetString("SHEETS_DEALS_TAB"),
			PayoutTab:     v.GetString("SHEETS_PAYOUT_TAB"),
			BaseURL:       v.GetString("SHEETS_BASE_URL"),
			Timeout:       v.GetDuration("SHEETS_TIMEOUT"),
		},
		WorkbookPath: v.GetString("WORKBOOK_PATH"),

		DefaultFactorRate: factor,
		InstallmentSource: metrics.InstallmentSource(v.GetString("INSTALLMENT_SOURCE")),
		LedgerPageSize:    v.GetInt("LEDGER_PAGE_SIZE"),
		DealsPageSize:     v.GetInt("DEALS_PAGE_SIZE"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if len(c.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", MinJWTSecretLength)
	}
	if !c.DefaultFactorRate.IsPositive() {
		return fmt.Errorf("DEFAULT_FACTOR_RATE must be positive, got %s", c.DefaultFactorRate)
	}
	switch c.InstallmentSource {
	case metrics.InstallmentLastPayment, metrics.InstallmentExpectedPayment:
	default:
		return fmt.Errorf("INSTALLMENT_SOURCE must be %q or %q, got %q",
			metrics.InstallmentLastPayment, metrics.InstallmentExpectedPayment, c.InstallmentSource)
	}
	if c.LedgerPageSize <= 0 || c.DealsPageSize <= 0 {
		return errors.New("LEDGER_PAGE_SIZE and DEALS_PAGE_SIZE must be positive")
	}
	if c.LoginRate <= 0 || c.LoginBurst <= 0 {
		return errors.New("LOGIN_RATE and LOGIN_BURST must be positive")
	}
	return nil
}

func (c *Config) MetricsConfig() metrics.Config {
	return metrics.Config{
		DefaultFactorRate: c.DefaultFactorRate,
		InstallmentSource: c.InstallmentSource,
	}
}

func (c *Config) LedgerConfig() ledger.Config {
	return ledger.Config{PageSize: c.LedgerPageSize}
}

func (c *Config) AuthConfig() auth.Config {
	return auth.Config{
		Secret:     c.JWTSecret,
		TokenTTL:   c.JWTTTL,
		BcryptCost: c.BcryptCost,
	}
}

// SourceKind names the feed the server reads from.
type SourceKind string

const (
	SourceSheets   SourceKind = "sheets"
	SourceWorkbook SourceKind = "workbook"
	SourceStatic   SourceKind = "static"
)

// SourceKind picks the Sheets API when it is configured, then a local
// workbook, and otherwise an empty static feed.
func (c *Config) SourceKind() SourceKind {
	switch {
	case c.Sheets.APIKey != "" && c.Sheets.SpreadsheetID != "":
		return SourceSheets
	case c.WorkbookPath != "":
		return SourceWorkbook
	default:
		return SourceStatic
	}
}

// Source builds the feed chosen by SourceKind.
func (c *Config) Source() sheets.Source {
	switch c.SourceKind() {
	case SourceSheets:
		return sheets.NewClient(sheets.ClientConfig{
			BaseURL:       c.Sheets.BaseURL,
			SpreadsheetID: c.Sheets.SpreadsheetID,
			APIKey:        c.Sheets.APIKey,
			DealsTab:      c.Sheets.DealsTab,
			PayoutTab:     c.Sheets.PayoutTab,
			Timeout:       c.Sheets.Timeout,
		})
	case SourceWorkbook:
		w := sheets.NewWorkbook(c.WorkbookPath)
		if c.Sheets.DealsTab != "" {
			w.DealsTab = c.Sheets.DealsTab
		}
		if c.Sheets.PayoutTab != "" {
			w.PayoutTab = c.Sheets.PayoutTab
		}
		return w
	default:
		return &sheets.Static{}
	}
}
