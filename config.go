package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

// keyringService is the OS keyring service the secret key is stored under,
// keyed by access key.
const keyringService = "mcp-sql-gateway"

// Configuration defaults
const (
	DefaultQueryTimeout = 30 * time.Second
	DefaultMaxRows      = 10000
)

// Config holds everything the server needs at startup.
type Config struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	AccessKey       string        `mapstructure:"access_key"`
	SecretKey       string        `mapstructure:"secret_key"`
	SecretKeyring   bool          `mapstructure:"secret_from_keyring"`
	AllowedSQLTypes string        `mapstructure:"allowed_sql_types"`
	RateLimit       string        `mapstructure:"rate_limit"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	MaxRows         int           `mapstructure:"max_rows"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFile         string        `mapstructure:"log_file"`
	LogFileLevel    string        `mapstructure:"log_file_level"`

	// Derived by Load.
	Dialect      Dialect  `mapstructure:"-"`
	AllowedTypes []string `mapstructure:"-"`
}

// ConfigError reports an invalid or missing setting.
type ConfigError struct {
	Key   string
	Cause error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Key, e.Cause)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

var configKeys = []string{
	"driver", "dsn", "access_key", "secret_key", "secret_from_keyring",
	"allowed_sql_types", "rate_limit", "query_timeout", "max_rows",
	"log_level", "log_file", "log_file_level",
}

// NewViper returns a viper instance reading MCP_* environment variables and,
// if configFile is set, a config file.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("MCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	for _, key := range configKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	v.SetDefault("allowed_sql_types", strings.Join(DefaultAllowedTypes, ","))
	v.SetDefault("rate_limit", DefaultRateLimit)
	v.SetDefault("query_timeout", DefaultQueryTimeout)
	v.SetDefault("max_rows", DefaultMaxRows)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file_level", "debug")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// LoadDotEnv loads a .env file into the environment. A missing file is not
// an error.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// LoadConfig reads and validates the configuration. getenv supplies the
// per-dialect variables used when no DSN is set.
func LoadConfig(v *viper.Viper, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Driver == "" {
		return nil, &ConfigError{Key: "driver", Cause: errors.New("must be set (mysql, postgres, pgx or sqlite)")}
	}
	d, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, &ConfigError{Key: "driver", Cause: err}
	}
	cfg.Dialect = d

	if cfg.DSN == "" {
		dsn, err := d.BuildDSN(getenv)
		if err != nil {
			return nil, &ConfigError{Key: "dsn", Cause: err}
		}
		cfg.DSN = dsn
	}

	if cfg.SecretKeyring {
		if cfg.AccessKey == "" {
			return nil, &ConfigError{Key: "secret_from_keyring", Cause: errors.New("requires access_key")}
		}
		secret, err := keyring.Get(keyringService, cfg.AccessKey)
		if err != nil {
			return nil, &ConfigError{Key: "secret_key", Cause: fmt.Errorf("keyring lookup: %w", err)}
		}
		cfg.SecretKey = secret
	}

	if (cfg.AccessKey == "") != (cfg.SecretKey == "") {
		return nil, &ConfigError{Key: "access_key", Cause: errors.New("access_key and secret_key must be set together")}
	}

	cfg.AllowedTypes = ParseAllowedTypes(cfg.AllowedSQLTypes)
	if len(cfg.AllowedTypes) == 0 {
		cfg.AllowedTypes = DefaultAllowedTypes
	}

	if _, err := ParseRateLimit(cfg.RateLimit); err != nil {
		return nil, &ConfigError{Key: "rate_limit", Cause: err}
	}
	if cfg.QueryTimeout <= 0 {
		return nil, &ConfigError{Key: "query_timeout", Cause: fmt.Errorf("must be positive, got %s", cfg.QueryTimeout)}
	}
	if cfg.MaxRows <= 0 {
		return nil, &ConfigError{Key: "max_rows", Cause: fmt.Errorf("must be positive, got %d", cfg.MaxRows)}
	}

	return cfg, nil
}

// LogWarnings reports settings that load fine but weaken the server. It is
// called once logging is set up.
func (c *Config) LogWarnings() {
	if !c.Credentials().Enabled() {
		slog.Warn("no access_key/secret_key configured, authentication is disabled")
	}
}

// ReadOnly reports whether the session should be opened read-only.
func (c *Config) ReadOnly() bool {
	return IsReadOnlyPolicy(c.AllowedTypes)
}

// Credentials returns the configured keys.
func (c *Config) Credentials() Credentials {
	return Credentials{AccessKey: c.AccessKey, SecretKey: c.SecretKey}
}
