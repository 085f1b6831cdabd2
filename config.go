package main

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Cepat-Kilat-Teknologi/device-heartbeat/internal/devicecache"
)

// Config is the full service configuration
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Server   ServerConfig   `mapstructure:"server"`
}

// AppConfig identifies the service and where it listens
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Version  string `mapstructure:"version"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// DatabaseConfig holds MySQL connection settings
type DatabaseConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	Username          string `mapstructure:"username"`
	Password          string `mapstructure:"password"`
	Database          string `mapstructure:"database"`
	PoolSize          int    `mapstructure:"pool_size"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
	PersistHeartbeats bool   `mapstructure:"persist_heartbeats"`
}

// CacheConfig controls the device cache and its janitor
type CacheConfig struct {
	Backend                string `mapstructure:"backend"`                  // sharded or mutex
	KeyMode                string `mapstructure:"key_mode"`                 // mac or id
	CleanupIntervalSeconds int    `mapstructure:"cleanup_interval_seconds"` // janitor cadence
	MaxAgeSeconds          int    `mapstructure:"max_age_seconds"`          // eviction threshold
	ActiveWindowSeconds    int    `mapstructure:"active_window_seconds"`    // stats active threshold
	JanitorStrategy        string `mapstructure:"janitor_strategy"`         // ticker or sleep
}

// ServerConfig holds HTTP-layer settings
type ServerConfig struct {
	RateLimitRequests      int    `mapstructure:"rate_limit_requests"`
	RateLimitWindowSeconds int    `mapstructure:"rate_limit_window_seconds"`
	MiddlewareAuth         bool   `mapstructure:"middleware_auth"`
	AuthKey                string `mapstructure:"auth_key"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
	WorkerCount            int    `mapstructure:"worker_count"`
	QueueSize              int    `mapstructure:"queue_size"`
}

var configDefaults = map[string]any{
	"app.name":      DefaultServiceName,
	"app.version":   DefaultServiceVersion,
	"app.host":      "0.0.0.0",
	"app.port":      3000,
	"app.log_level": "info",

	"database.enabled":            true,
	"database.host":               "localhost",
	"database.port":               3306,
	"database.username":           "root",
	"database.password":           "password",
	"database.database":           "health_db",
	"database.pool_size":          10,
	"database.timeout_seconds":    30,
	"database.persist_heartbeats": false,

	"cache.backend":                  string(devicecache.BackendSharded),
	"cache.key_mode":                 string(devicecache.KeyModeMAC),
	"cache.cleanup_interval_seconds": 300,
	"cache.max_age_seconds":          1800,
	"cache.active_window_seconds":    300,
	"cache.janitor_strategy":         string(devicecache.StrategyTicker),

	"server.rate_limit_requests":       DefaultRateLimitRequests,
	"server.rate_limit_window_seconds": DefaultRateLimitWindow,
	"server.middleware_auth":           false,
	"server.auth_key":                  "",
	"server.shutdown_timeout_seconds":  30,
	"server.worker_count":              4,
	"server.queue_size":                256,
}

// newViper returns a viper instance carrying defaults and environment binding.
// Environment variables use the HBD_ prefix, e.g. HBD_APP_PORT.
func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range configDefaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfig reads configuration from path, or from config.toml in the
// working directory or ./configs when path is empty. A missing default file
// is not an error.
func loadConfig(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// writeDefaultConfig writes the default configuration as TOML to path.
// It refuses to overwrite an existing file.
func writeDefaultConfig(path string) error {
	v := newViper()
	if err := v.SafeWriteConfigAs(path); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	if c.App.Port < 0 || c.App.Port > 65535 {
		return fmt.Errorf("app.port out of range: %d", c.App.Port)
	}
	if _, err := devicecache.NewStore(devicecache.Backend(c.Cache.Backend)); err != nil {
		return err
	}
	if _, err := devicecache.KeyMode(c.Cache.KeyMode).Parser(); err != nil {
		return err
	}
	if _, err := devicecache.ParseStrategy(c.Cache.JanitorStrategy); err != nil {
		return err
	}
	if c.Cache.CleanupIntervalSeconds <= 0 || c.Cache.MaxAgeSeconds <= 0 || c.Cache.ActiveWindowSeconds <= 0 {
		return errors.New("cache intervals must be positive")
	}
	if c.Server.MiddlewareAuth && c.Server.AuthKey == "" {
		// The server must not start in an insecure state
		return errors.New("server.middleware_auth is enabled but server.auth_key is not set")
	}
	if c.Server.RateLimitRequests <= 0 || c.Server.RateLimitWindowSeconds <= 0 {
		return errors.New("rate limit settings must be positive")
	}
	return nil
}

// BindAddress returns host:port for the HTTP listener
func (c *Config) BindAddress() string {
	return net.JoinHostPort(c.App.Host, strconv.Itoa(c.App.Port))
}

// DatabaseDSN builds the MySQL DSN, including the session variables every
// pooled connection must carry.
func (c *Config) DatabaseDSN() string {
	mc := mysql.NewConfig()
	mc.User = c.Database.Username
	mc.Passwd = c.Database.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Database.Host, strconv.Itoa(c.Database.Port))
	mc.DBName = c.Database.Database
	mc.ParseTime = true
	mc.Timeout = c.databaseTimeout()
	mc.Params = map[string]string{
		"innodb_lock_wait_timeout": "3",
		"wait_timeout":             "60",
	}
	return mc.FormatDSN()
}

func (c *Config) databaseTimeout() time.Duration {
	return time.Duration(c.Database.TimeoutSeconds) * time.Second
}

// initLoggerWrapper handles logger initialization and returns error
func initLoggerWrapper(level string) error {
	l, err := initLogger(level)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = l
	return nil
}

// Function to initialize logger (package-level variable for testing)
var initLogger = func(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
