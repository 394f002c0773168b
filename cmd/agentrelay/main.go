// Package main provides the CLI entry point for the agentrelay server.
//
// agentrelay bridges chat clients to an OpenAI Responses API backend with
// server-side tool execution and a persistent conversation ledger.
//
// # Basic Usage
//
// Start the server:
//
//	agentrelay serve --config agentrelay.yaml
//
// Run database migrations:
//
//	agentrelay migrate --config agentrelay.yaml
//
// # Environment Variables
//
//   - OPENAI_API_KEY: API key for the completion provider
//   - AGENTRELAY_CONFIG: Path to configuration file (default: agentrelay.yaml)
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/oakenlabs/agentrelay/internal/api"
	"github.com/oakenlabs/agentrelay/internal/config"
	"github.com/oakenlabs/agentrelay/internal/metrics"
	"github.com/oakenlabs/agentrelay/internal/orchestrator"
	"github.com/oakenlabs/agentrelay/internal/provider"
	"github.com/oakenlabs/agentrelay/internal/registry"
	"github.com/oakenlabs/agentrelay/internal/store"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// This is separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "agentrelay",
		Short:        "agentrelay - streaming chat orchestration server",
		Long:         "agentrelay relays chat requests to an OpenAI Responses API backend,\nexecuting server-side tools mid-stream and persisting conversations.",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildMigrateCmd(),
	)
	return rootCmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("AGENTRELAY_CONFIG")
	}
	if path == "" {
		path = "agentrelay.yaml"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(path)
}

func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (store.Store, error) {
	switch cfg.Driver {
	case "postgres":
		pool := store.DefaultPostgresConfig()
		if cfg.MaxConnections > 0 {
			pool.MaxOpenConns = cfg.MaxConnections
		}
		if cfg.ConnMaxLifetime > 0 {
			pool.ConnMaxLifetime = cfg.ConnMaxLifetime
		}
		return store.NewPostgresStore(cfg.DSN, pool)
	case "sqlite":
		return store.NewSQLiteStore(ctx, cfg.DSN)
	case "memory", "":
		logger.Warn("using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func buildServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agentrelay HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			logger := buildLogger(cfg.Logging)
			slog.SetDefault(logger)

			st, err := openStore(cmd.Context(), cfg.Database, logger)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer func() {
				if closeErr := st.Close(); closeErr != nil {
					logger.Error("failed to close store", "error", closeErr)
				}
			}()

			clientOpts := []provider.Option{
				provider.WithLogger(logger),
				provider.WithRetry(cfg.OpenAI.MaxRetries, cfg.OpenAI.RetryDelay),
			}
			if cfg.OpenAI.BaseURL != "" {
				clientOpts = append(clientOpts, provider.WithBaseURL(cfg.OpenAI.BaseURL))
			}
			client := provider.New(cfg.OpenAI.APIKey, clientOpts...)

			promRegistry := prometheus.NewRegistry()
			promRegistry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			m := metrics.New(promRegistry)

			orch := orchestrator.New(st, client, registry.New(), orchestrator.Config{
				MaxRounds:    cfg.Orchestrator.MaxRounds,
				UnknownTools: orchestrator.UnknownToolPolicy(cfg.Orchestrator.UnknownTools),
				Exec: registry.ExecConfig{
					Concurrency:    cfg.Orchestrator.ToolConcurrency,
					PerToolTimeout: cfg.Orchestrator.ToolTimeout,
				},
				DefaultModel: cfg.OpenAI.DefaultModel,
			}, logger, m)

			server := api.NewServer(st, orch, logger)

			// SSE responses need an unbounded write window.
			srv := &http.Server{
				Addr:        cfg.Server.Addr(),
				Handler:     server.Router(promRegistry),
				ReadTimeout: cfg.Server.ReadTimeout,
				IdleTimeout: 2 * time.Minute,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() {
				logger.Info("server listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", "error", err)
					stop()
				}
			}()

			<-ctx.Done()
			logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			logger.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to configuration file")
	return cmd
}

func buildMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			var driver, dialect string
			switch cfg.Database.Driver {
			case "postgres":
				driver, dialect = "postgres", "postgres"
			case "sqlite":
				driver, dialect = "sqlite3", "sqlite"
			case "memory", "":
				return errors.New("the memory driver has no migrations")
			default:
				return fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
			}

			db, err := sql.Open(driver, cfg.Database.DSN)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("ping database: %w", err)
			}
			if err := store.Migrate(ctx, db, dialect); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to configuration file")
	return cmd
}
