// Package main applies the indexer's SQL migrations.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/archon-research/alchemist-indexer/db/migrator"
	"github.com/archon-research/alchemist-indexer/internal/adapters/outbound/postgres"
	"github.com/archon-research/alchemist-indexer/internal/pkg/env"
)

func main() {
	_ = godotenv.Load(".env")

	dir := flag.String("dir", "./db/migrations", "Migrations directory")
	list := flag.Bool("list", false, "List applied migrations and exit")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: env.ParseLogLevel(slog.LevelInfo),
	}))

	connStr := env.Get("DATABASE_URL", "")
	if connStr == "" {
		logger.Error("required environment variable not set", "key", "DATABASE_URL")
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := postgres.OpenPool(ctx, postgres.DBConfig{URL: connStr, MaxConns: 2})
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	m := migrator.New(pool, *dir, logger)

	if *list {
		applied, err := m.ListApplied(ctx)
		if err != nil {
			logger.Error("failed to list migrations", "error", err)
			os.Exit(1)
		}
		for _, name := range applied {
			logger.Info("applied", "migration", name)
		}
		return
	}

	if err := m.ApplyAll(ctx); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
	logger.Info("all migrations up to date")
}
