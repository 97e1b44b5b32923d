package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "mcp-sql-gateway",
	Short: "Serve a SQL database's schema, samples and queries over MCP",
	Long: `mcp-sql-gateway speaks the Model Context Protocol on stdin/stdout and exposes a
MySQL, PostgreSQL or SQLite database as tools and resources. Statements are
checked against an allow-list of statement types before they reach the database.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "Config file (yaml, toml or json)")
	rootCmd.Flags().String("driver", "", "Database driver: mysql, postgres, pgx or sqlite")
	rootCmd.Flags().String("dsn", "", "Database connection string (default: built from MCP_MYSQL_*, MCP_PG_* or MCP_SQLITE_PATH)")
	rootCmd.Flags().String("allowed-sql-types", "", "Comma-separated statement types to allow (default: SELECT)")
	rootCmd.Flags().String("log-level", "", "Log level: debug, info, warn or error")
}

func run(cmd *cobra.Command, args []string) error {
	if err := LoadDotEnv(); err != nil {
		return err
	}

	v, err := NewViper(configFile)
	if err != nil {
		return err
	}
	for key, flag := range map[string]string{
		"driver":            "driver",
		"dsn":               "dsn",
		"allowed_sql_types": "allowed-sql-types",
		"log_level":         "log-level",
	} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}

	cfg, err := LoadConfig(v, os.Getenv)
	if err != nil {
		return err
	}

	logCloser, err := SetupLogging(cfg.LogLevel, cfg.LogFile, cfg.LogFileLevel)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logCloser.Close()
	cfg.LogWarnings()

	// Create context that cancels on interrupt signals
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := OpenSession(ctx, cfg.Dialect, cfg.DSN, cfg.ReadOnly())
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			slog.Warn("failed to close database", "error", err)
		}
	}()

	server, err := NewMCPServer(sess, cfg)
	if err != nil {
		return err
	}

	slog.Info("MCP server started",
		"server", cfg.Dialect.ServerName(),
		"database", server.databaseName,
		"allowed_types", cfg.AllowedTypes,
		"read_only", cfg.ReadOnly())

	if err := server.Run(ctx, os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("Server shutdown gracefully")
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
