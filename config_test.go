package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/zalando/go-keyring"
)

func loadTestConfig(t *testing.T, configFile string) (*Config, error) {
	t.Helper()
	v, err := NewViper(configFile)
	if err != nil {
		t.Fatalf("NewViper failed: %v", err)
	}
	return LoadConfig(v, os.Getenv)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("MCP_DRIVER", "sqlite")
	t.Setenv("MCP_SQLITE_PATH", "/data/app.db")

	cfg, err := loadTestConfig(t, "")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.DSN != "/data/app.db" {
		t.Errorf("Expected DSN from MCP_SQLITE_PATH, got %q", cfg.DSN)
	}
	if _, ok := cfg.Dialect.(*SQLiteAdapter); !ok {
		t.Errorf("Expected SQLite dialect, got %T", cfg.Dialect)
	}
	if !reflect.DeepEqual(cfg.AllowedTypes, []string{"SELECT"}) || !cfg.ReadOnly() {
		t.Errorf("Expected read-only SELECT policy, got %v", cfg.AllowedTypes)
	}
	if cfg.RateLimit != DefaultRateLimit || cfg.QueryTimeout != DefaultQueryTimeout || cfg.MaxRows != DefaultMaxRows {
		t.Errorf("Unexpected defaults %+v", cfg)
	}
	if cfg.Credentials().Enabled() {
		t.Error("Expected authentication to be disabled without keys")
	}
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("MCP_DRIVER", "postgres")
	t.Setenv("MCP_DSN", "postgres://ro@db/shop")
	t.Setenv("MCP_ACCESS_KEY", "ak")
	t.Setenv("MCP_SECRET_KEY", "sk")
	t.Setenv("MCP_ALLOWED_SQL_TYPES", "select, show, DML")
	t.Setenv("MCP_QUERY_TIMEOUT", "5s")
	t.Setenv("MCP_MAX_ROWS", "50")
	t.Setenv("MCP_RATE_LIMIT", "2/second")

	cfg, err := loadTestConfig(t, "")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.DSN != "postgres://ro@db/shop" {
		t.Errorf("Unexpected DSN %q", cfg.DSN)
	}
	if cfg.QueryTimeout != 5*time.Second || cfg.MaxRows != 50 {
		t.Errorf("Unexpected limits %s/%d", cfg.QueryTimeout, cfg.MaxRows)
	}
	if cfg.ReadOnly() {
		t.Error("Expected DML policy to disable read-only sessions")
	}
	if cfg.Credentials() != (Credentials{AccessKey: "ak", SecretKey: "sk"}) {
		t.Errorf("Unexpected credentials %+v", cfg.Credentials())
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	content := "driver: mysql\ndsn: ro:pw@tcp(db:3306)/shop\nallowed_sql_types: SELECT,SHOW\nmax_rows: 25\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv("MCP_MAX_ROWS", "75")

	cfg, err := loadTestConfig(t, path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Dialect.DriverName() != "mysql" || cfg.DSN != "ro:pw@tcp(db:3306)/shop" {
		t.Errorf("Unexpected config %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.AllowedTypes, []string{"SELECT", "SHOW"}) {
		t.Errorf("Unexpected allowed types %v", cfg.AllowedTypes)
	}
	// Environment wins over the file.
	if cfg.MaxRows != 75 {
		t.Errorf("Expected MCP_MAX_ROWS to override the file, got %d", cfg.MaxRows)
	}
}

func TestLoadConfig_Keyring(t *testing.T) {
	keyring.MockInit()
	if err := keyring.Set(keyringService, "ak", "s3cret"); err != nil {
		t.Fatalf("keyring.Set failed: %v", err)
	}

	t.Setenv("MCP_DRIVER", "sqlite")
	t.Setenv("MCP_DSN", ":memory:")
	t.Setenv("MCP_ACCESS_KEY", "ak")
	t.Setenv("MCP_SECRET_FROM_KEYRING", "true")

	cfg, err := loadTestConfig(t, "")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.SecretKey != "s3cret" {
		t.Errorf("Expected secret from keyring, got %q", cfg.SecretKey)
	}

	t.Setenv("MCP_ACCESS_KEY", "unknown")
	_, err = loadTestConfig(t, "")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Key != "secret_key" || !errors.Is(err, keyring.ErrNotFound) {
		t.Errorf("Expected keyring lookup failure, got %v", err)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		key  string
	}{
		{"missing driver", map[string]string{}, "driver"},
		{"unsupported driver", map[string]string{"MCP_DRIVER": "oracle"}, "driver"},
		{"missing dsn parts", map[string]string{"MCP_DRIVER": "sqlite"}, "dsn"},
		{"half credentials", map[string]string{"MCP_DRIVER": "sqlite", "MCP_DSN": "x.db", "MCP_ACCESS_KEY": "ak"}, "access_key"},
		{"bad rate limit", map[string]string{"MCP_DRIVER": "sqlite", "MCP_DSN": "x.db", "MCP_RATE_LIMIT": "lots"}, "rate_limit"},
		{"bad max rows", map[string]string{"MCP_DRIVER": "sqlite", "MCP_DSN": "x.db", "MCP_MAX_ROWS": "0"}, "max_rows"},
		{"bad timeout", map[string]string{"MCP_DRIVER": "sqlite", "MCP_DSN": "x.db", "MCP_QUERY_TIMEOUT": "-1s"}, "query_timeout"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for _, k := range []string{"MCP_DRIVER", "MCP_DSN", "MCP_SQLITE_PATH", "MCP_ACCESS_KEY", "MCP_SECRET_KEY"} {
				t.Setenv(k, "")
			}
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := loadTestConfig(t, "")
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected ConfigError, got %v", err)
			}
			if cfgErr.Key != tc.key {
				t.Errorf("Expected error for %s, got %s (%v)", tc.key, cfgErr.Key, err)
			}
		})
	}
}

func TestLoadDotEnv_Missing(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Errorf("Expected missing .env to be ignored, got %v", err)
	}
}

func TestMultiHandler(t *testing.T) {
	var info, debug bytes.Buffer
	logger := slog.New(NewMultiHandler(
		slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)).With("request_id", "r1")

	logger.DebugContext(context.Background(), "detail")
	logger.Info("summary")

	if strings.Contains(info.String(), "detail") || !strings.Contains(info.String(), "summary") {
		t.Errorf("Unexpected info output %q", info.String())
	}
	if !strings.Contains(debug.String(), "detail") || !strings.Contains(debug.String(), "request_id=r1") {
		t.Errorf("Unexpected debug output %q", debug.String())
	}
}

func TestLoadConfig_WarnsAfterLoading(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Setenv("MCP_DRIVER", "sqlite")
	t.Setenv("MCP_DSN", ":memory:")
	t.Setenv("MCP_ACCESS_KEY", "")
	t.Setenv("MCP_SECRET_KEY", "")

	cfg, err := loadTestConfig(t, "")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Expected LoadConfig to log nothing, got %q", buf.String())
	}

	cfg.LogWarnings()
	if !strings.Contains(buf.String(), "authentication is disabled") {
		t.Errorf("Expected auth warning, got %q", buf.String())
	}

	buf.Reset()
	(&Config{AccessKey: "ak", SecretKey: "sk"}).LogWarnings()
	if buf.Len() != 0 {
		t.Errorf("Expected no warning with credentials, got %q", buf.String())
	}
}
