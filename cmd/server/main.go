// Package main implements the entry point for the screening API server,
// which runs pediatric growth and symptom screenings for health workers and
// optionally generates caregiver reading material for finished screenings.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mydudu/screening-api/internal/config"
	"github.com/mydudu/screening-api/internal/platform/logger"
	"github.com/mydudu/screening-api/internal/platform/postgres"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

// run parses flags, loads configuration, connects to the database and serves
// until SIGINT or SIGTERM.
func run(args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	migrate := fs.Bool("migrate", false, "apply pending database migrations before serving")
	migrateOnly := fs.Bool("migrate-only", false, "apply pending migrations and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"llm_enabled", cfg.LLM.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Database.URL, log)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if *migrate || *migrateOnly {
		if err := postgres.Migrate(ctx, db, log); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		if *migrateOnly {
			return db.Close()
		}
	}

	app, err := newApplication(ctx, cfg, log, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}
