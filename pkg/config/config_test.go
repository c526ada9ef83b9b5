package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mcclellann/rabbitfunding/pkg/metrics"
	"github.com/mcclellann/rabbitfunding/pkg/sheets"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", secret)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, "admin@rabbitfunding.com", cfg.AdminEmail)
	assert.Equal(t, 60*time.Second, cfg.RefreshInterval)
	assert.Equal(t, 50, cfg.LedgerPageSize)
	assert.Equal(t, 20, cfg.DealsPageSize)
	assert.True(t, cfg.DefaultFactorRate.Equal(decimal.RequireFromString("1.536")))
	assert.Equal(t, metrics.InstallmentLastPayment, cfg.InstallmentSource)
	assert.Equal(t, SourceStatic, cfg.SourceKind())
	assert.IsType(t, &sheets.Static{}, cfg.Source())
}

func TestLoadConfig_EnvFileAndOverrides(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	content := "JWT_SECRET=" + secret + "\nPORT=8081\nLEDGER_PAGE_SIZE=25\nWORKBOOK_PATH=/data/feed.xlsx\nSNAPSHOT_TTL=90s\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))
	t.Setenv("PORT", "9090")
	t.Setenv("INSTALLMENT_SOURCE", "expected_payment_amount")

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 25, cfg.LedgerPageSize)
	assert.Equal(t, 25, cfg.LedgerConfig().PageSize)
	assert.Equal(t, 90*time.Second, cfg.SnapshotTTL)
	assert.Equal(t, metrics.InstallmentExpectedPayment, cfg.MetricsConfig().InstallmentSource)

	assert.Equal(t, SourceWorkbook, cfg.SourceKind())
	wb, ok := cfg.Source().(*sheets.Workbook)
	require.True(t, ok)
	assert.Equal(t, "/data/feed.xlsx", wb.Path)
	assert.Equal(t, sheets.DefaultPayoutTab, wb.PayoutTab)
}

func TestLoadConfig_SheetsSourceWins(t *testing.T) {
	t.Setenv("JWT_SECRET", secret)
	t.Setenv("SHEETS_API_KEY", "key")
	t.Setenv("SHEETS_SPREADSHEET_ID", "sheet-1")
	t.Setenv("WORKBOOK_PATH", "/data/feed.xlsx")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, SourceSheets, cfg.SourceKind())
	assert.IsType(t, &sheets.Client{}, cfg.Source())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"short secret", map[string]string{"JWT_SECRET": "short"}},
		{"bad factor rate", map[string]string{"JWT_SECRET": secret, "DEFAULT_FACTOR_RATE": "abc"}},
		{"zero factor rate", map[string]string{"JWT_SECRET": secret, "DEFAULT_FACTOR_RATE": "0"}},
		{"unknown installment source", map[string]string{"JWT_SECRET": secret, "INSTALLMENT_SOURCE": "average"}},
		{"zero page size", map[string]string{"JWT_SECRET": secret, "DEALS_PAGE_SIZE": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig("")
			assert.Error(t, err)
		})
	}
}

func TestAuthConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", secret)
	t.Setenv("BCRYPT_COST", "4")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	ac := cfg.AuthConfig()
	assert.Equal(t, secret, ac.Secret)
	assert.Equal(t, 4, ac.BcryptCost)
	assert.Equal(t, 24*time.Hour, ac.TokenTTL)
}
