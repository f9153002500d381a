package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Zero(t, cfg.Store.RateLimit)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500, cfg.Retry.InitialBackoffMs)
	assert.Equal(t, 2000, cfg.Retry.MaxBackoffMs)
	assert.InDelta(t, 2.0, cfg.Retry.Multiplier, 0.001)
	assert.Equal(t, "EGP", cfg.Import.DefaultCurrency)
	assert.Equal(t, "sale", cfg.Import.DefaultPurpose)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.AppEnv)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: hrtaj.db
import:
  default_currency: USD
server:
  port: 9090
  allowed_origins:
    - https://app.hrtaj.com
auth:
  import_key: file-key
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "hrtaj.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "USD", cfg.Import.DefaultCurrency)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://app.hrtaj.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "file-key", cfg.Auth.ImportKey)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, "sale", cfg.Import.DefaultPurpose)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("HRTAJ_STORE_DRIVER", "postgres")
	t.Setenv("HRTAJ_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("HRTAJ_SERVER_PORT", "3000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadDeploymentEnvNames(t *testing.T) {
	chdirTemp(t)

	t.Setenv("DATABASE_URL", "postgres://localhost/hrtaj")
	t.Setenv("HRTAJ_DEFAULT_CURRENCY", "SAR")
	t.Setenv("HRTAJ_STAFF_OWNER_USER_ID", "staff-1")
	t.Setenv("HRTAJ_ADMIN_API_KEY", "admin")
	t.Setenv("HRTAJ_IMPORT_API_KEY", "import")
	t.Setenv("HRTAJ_LEADS_API_KEY", "leads")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/hrtaj", cfg.Store.DatabaseURL)
	assert.Equal(t, "SAR", cfg.Import.DefaultCurrency)
	assert.Equal(t, "staff-1", cfg.Import.StaffOwnerUserID)
	assert.Equal(t, "admin", cfg.Auth.AdminKey)
	assert.Equal(t, "import", cfg.Auth.ImportKey)
	assert.Equal(t, "leads", cfg.Auth.LeadsKey)
	assert.Equal(t, "production", cfg.Server.AppEnv)
	assert.False(t, cfg.Server.IsDev())
}

func TestImportDefaults(t *testing.T) {
	cfg := &Config{Import: ImportConfig{DefaultCurrency: "EGP", DefaultPurpose: "rent", StaffOwnerUserID: "u1"}}
	d := cfg.ImportDefaults()
	assert.Equal(t, "EGP", d.Currency)
	assert.Equal(t, "rent", d.Purpose)
	assert.Equal(t, "u1", d.StaffOwnerUserID)
}

func TestRetryPolicy(t *testing.T) {
	cfg := &Config{Retry: RetryConfig{MaxAttempts: 5, InitialBackoffMs: 100, MaxBackoffMs: 1000, Multiplier: 3, JitterFraction: 0.1}}
	p := cfg.RetryPolicy()
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, p.InitialBackoff)
	assert.Equal(t, time.Second, p.MaxBackoff)
	assert.InDelta(t, 3.0, p.Multiplier, 0.001)
	assert.InDelta(t, 0.1, p.JitterFraction, 0.001)
}

func TestIsDev(t *testing.T) {
	for env, want := range map[string]bool{
		"dev":         true,
		"Development": true,
		"local":       true,
		"staging":     false,
		"production":  false,
		"":            false,
	} {
		assert.Equal(t, want, ServerConfig{AppEnv: env}.IsDev(), env)
	}
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	return &Config{
		Store:  StoreConfig{Driver: "postgres", DatabaseURL: "postgres://localhost/hrtaj", MaxConns: 10, MinConns: 1},
		Server: ServerConfig{Port: 8000, AppEnv: "development"},
		Log:    LogConfig{Level: "info", Format: "json"},
	}
}

func TestValidateStore_Postgres(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("store"))
}

func TestValidateStore_MissingURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""
	err := cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url")
}

func TestValidateStore_MemoryNeedsNoURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "memory"
	cfg.Store.DatabaseURL = ""
	assert.NoError(t, cfg.Validate("store"))
}

func TestValidateStore_UnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	err := cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql")
}

func TestValidateStore_NegativeRateLimit(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.RateLimit = -1
	assert.Error(t, cfg.Validate("store"))
}

func TestValidateStore_ConnBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.MinConns = 20
	assert.Error(t, cfg.Validate("store"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 70000
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestLoadExplicitPath(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log:\n  level: warn\n"), 0644))
	path := filepath.Join(t.TempDir(), "staging.yml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: memory\nimport:\n  default_currency: SAR\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "SAR", cfg.Import.DefaultCurrency)
	// The working-directory file is not merged in.
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadExplicitPathMissing(t *testing.T) {
	chdirTemp(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}
