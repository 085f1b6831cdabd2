package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Configuration Tests ---

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultServiceName, cfg.App.Name)
	assert.Equal(t, 3000, cfg.App.Port)
	assert.Equal(t, "sharded", cfg.Cache.Backend)
	assert.Equal(t, "mac", cfg.Cache.KeyMode)
	assert.Equal(t, 300, cfg.Cache.CleanupIntervalSeconds)
	assert.Equal(t, 1800, cfg.Cache.MaxAgeSeconds)
	assert.Equal(t, "ticker", cfg.Cache.JanitorStrategy)
	assert.True(t, cfg.Database.Enabled)
	assert.False(t, cfg.Database.PersistHeartbeats)
	assert.Equal(t, "0.0.0.0:3000", cfg.BindAddress())
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HBD_APP_PORT", "8081")
	t.Setenv("HBD_CACHE_BACKEND", "mutex")

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.App.Port)
	assert.Equal(t, "mutex", cfg.Cache.Backend)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.toml")
	content := `
[app]
port = 9090
log_level = "debug"

[database]
enabled = false

[cache]
key_mode = "id"
janitor_strategy = "sleep"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "id", cfg.Cache.KeyMode)
	assert.Equal(t, "sleep", cfg.Cache.JanitorStrategy)
	assert.Equal(t, "health_db", cfg.Database.Database)

	t.Run("Missing explicit file is an error", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml"))
		assert.Error(t, err)
	})

	t.Run("Invalid values are rejected", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.toml")
		require.NoError(t, os.WriteFile(bad, []byte("[cache]\nbackend = \"btree\"\n"), 0o600))
		_, err := loadConfig(bad)
		assert.Error(t, err)
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"Port out of range", func(c *Config) { c.App.Port = 70000 }},
		{"Unknown backend", func(c *Config) { c.Cache.Backend = "btree" }},
		{"Unknown key mode", func(c *Config) { c.Cache.KeyMode = "serial" }},
		{"Unknown strategy", func(c *Config) { c.Cache.JanitorStrategy = "cron" }},
		{"Zero cleanup interval", func(c *Config) { c.Cache.CleanupIntervalSeconds = 0 }},
		{"Negative max age", func(c *Config) { c.Cache.MaxAgeSeconds = -1 }},
		{"Auth without key", func(c *Config) { c.Server.MiddlewareAuth = true; c.Server.AuthKey = "" }},
		{"Zero rate limit", func(c *Config) { c.Server.RateLimitRequests = 0 }},
	}

	assert.NoError(t, testConfig(t).Validate())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(t)
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Host = "db.internal"
	cfg.Database.Username = "hbd"
	cfg.Database.Password = "s3cret"

	dsn := cfg.DatabaseDSN()
	assert.True(t, strings.HasPrefix(dsn, "hbd:s3cret@tcp(db.internal:3306)/health_db?"), dsn)
	assert.Contains(t, dsn, "innodb_lock_wait_timeout=3")
	assert.Contains(t, dsn, "wait_timeout=60")
	assert.Contains(t, dsn, "parseTime=true")
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, writeDefaultConfig(path))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultServiceName, cfg.App.Name)

	assert.Error(t, writeDefaultConfig(path), "existing file must not be overwritten")
}

// --- Logger Tests ---

func TestInitLoggerWrapper(t *testing.T) {
	original := logger
	t.Cleanup(func() { logger = original })

	require.NoError(t, initLoggerWrapper("debug"))
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	assert.Error(t, initLoggerWrapper("verbose"))
}
