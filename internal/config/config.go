package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hrtaj/hrtaj-cli/internal/importer"
	"github.com/hrtaj/hrtaj-cli/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Retry  RetryConfig  `yaml:"retry" mapstructure:"retry"`
	Import ImportConfig `yaml:"import" mapstructure:"import"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Auth   AuthConfig   `yaml:"auth" mapstructure:"auth"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the remote record store.
type StoreConfig struct {
	Driver      string  `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string  `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32   `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32   `yaml:"min_conns" mapstructure:"min_conns"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// RetryConfig configures retries of store calls.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// ImportConfig holds the listing defaults applied during imports.
type ImportConfig struct {
	DefaultCurrency  string `yaml:"default_currency" mapstructure:"default_currency"`
	DefaultPurpose   string `yaml:"default_purpose" mapstructure:"default_purpose"`
	StaffOwnerUserID string `yaml:"staff_owner_user_id" mapstructure:"staff_owner_user_id"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AppEnv         string   `yaml:"app_env" mapstructure:"app_env"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// AuthConfig holds the per-group API keys.
type AuthConfig struct {
	AdminKey  string `yaml:"admin_key" mapstructure:"admin_key"`
	ImportKey string `yaml:"import_key" mapstructure:"import_key"`
	LeadsKey  string `yaml:"leads_key" mapstructure:"leads_key"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. An empty path looks
// for an optional config.yaml in the working directory; an explicit path
// must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("HRTAJ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Deployment-style variable names
	binds := map[string][]string{
		"store.database_url":         {"HRTAJ_STORE_DATABASE_URL", "DATABASE_URL"},
		"import.default_currency":    {"HRTAJ_IMPORT_DEFAULT_CURRENCY", "HRTAJ_DEFAULT_CURRENCY"},
		"import.default_purpose":     {"HRTAJ_IMPORT_DEFAULT_PURPOSE", "HRTAJ_DEFAULT_PURPOSE"},
		"import.staff_owner_user_id": {"HRTAJ_IMPORT_STAFF_OWNER_USER_ID", "HRTAJ_STAFF_OWNER_USER_ID"},
		"auth.admin_key":             {"HRTAJ_AUTH_ADMIN_KEY", "HRTAJ_ADMIN_API_KEY"},
		"auth.import_key":            {"HRTAJ_AUTH_IMPORT_KEY", "HRTAJ_IMPORT_API_KEY"},
		"auth.leads_key":             {"HRTAJ_AUTH_LEADS_KEY", "HRTAJ_LEADS_API_KEY"},
		"server.app_env":             {"HRTAJ_SERVER_APP_ENV", "APP_ENV"},
		"server.allowed_origins":     {"HRTAJ_SERVER_ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		"log.level":                  {"HRTAJ_LOG_LEVEL", "LOG_LEVEL"},
	}
	for key, envs := range binds {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("store.rate_limit", 0)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 2000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.0)
	v.SetDefault("import.default_currency", "EGP")
	v.SetDefault("import.default_purpose", "sale")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.app_env", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on.
// Modes: "store" (anything touching the record store) and "serve".
func (c *Config) Validate(mode string) error {
	switch mode {
	case "store":
		return c.validateStore()
	case "serve":
		if err := c.validateStore(); err != nil {
			return err
		}
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			return eris.Errorf("config: server.port %d out of range", c.Server.Port)
		}
		return nil
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required for the postgres driver")
		}
	case "sqlite", "memory":
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Store.RateLimit < 0 {
		return eris.New("config: store.rate_limit must not be negative")
	}
	if c.Store.MaxConns > 0 && c.Store.MinConns > c.Store.MaxConns {
		return eris.Errorf("config: store.min_conns (%d) exceeds store.max_conns (%d)", c.Store.MinConns, c.Store.MaxConns)
	}
	return nil
}

// IsDev reports whether the app runs in a local development environment.
func (s ServerConfig) IsDev() bool {
	switch strings.ToLower(strings.TrimSpace(s.AppEnv)) {
	case "dev", "development", "local":
		return true
	}
	return false
}

// ImportDefaults returns the listing defaults handed to the importer.
func (c *Config) ImportDefaults() importer.Defaults {
	return importer.Defaults{
		Currency:         c.Import.DefaultCurrency,
		Purpose:          c.Import.DefaultPurpose,
		StaffOwnerUserID: c.Import.StaffOwnerUserID,
	}
}

// RetryPolicy builds the store retry policy.
func (c *Config) RetryPolicy() resilience.Policy {
	r := c.Retry
	return resilience.NewPolicy(r.MaxAttempts, r.InitialBackoffMs, r.MaxBackoffMs, r.Multiplier, r.JitterFraction)
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
