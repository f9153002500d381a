//go:build !integration

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrtaj/hrtaj-cli/internal/config"
)

// useConfig installs c as the command config for the duration of the test.
func useConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func memoryConfig() *config.Config {
	return &config.Config{
		Store:  config.StoreConfig{Driver: "memory"},
		Retry:  config.RetryConfig{MaxAttempts: 1},
		Import: config.ImportConfig{DefaultCurrency: "EGP", DefaultPurpose: "sale", StaffOwnerUserID: "staff-1"},
		Server: config.ServerConfig{Port: 8000, AppEnv: "development", AllowedOrigins: []string{"*"}},
		Log:    config.LogConfig{Level: "info", Format: "json"},
	}
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "import", "mapping", "template", "runs", "migrate"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "hrtaj", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestImportCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range importCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["resale"])
	assert.True(t, names["projects"])
}

func TestImportCommand_Flags(t *testing.T) {
	for _, name := range []string{"file", "dry-run", "owner-user-id"} {
		assert.NotNil(t, importCmd.PersistentFlags().Lookup(name), "import should have --%s", name)
	}
	for _, name := range []string{"hr-owner-user-id", "default-city", "default-purpose"} {
		assert.NotNil(t, importResaleCmd.Flags().Lookup(name), "import resale should have --%s", name)
	}
	require.NotNil(t, importProjectsCmd.Flags().Lookup("developer-id"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestRunsCommand_Flags(t *testing.T) {
	flag := runsCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "20", flag.DefValue)
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))

	path := filepath.Join(t.TempDir(), "hrtaj.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: memory\nserver:\n  port: 9100\n"), 0o644))

	useConfig(t, nil)
	prev := configFile
	configFile = path
	t.Cleanup(func() { configFile = prev })

	require.NoError(t, rootCmd.PersistentPreRunE(rootCmd, nil))
	require.NotNil(t, cfg)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestRootCommand_ConfigFlagMissingFile(t *testing.T) {
	useConfig(t, nil)
	prev := configFile
	configFile = filepath.Join(t.TempDir(), "missing.yaml")
	t.Cleanup(func() { configFile = prev })

	err := rootCmd.PersistentPreRunE(rootCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}
