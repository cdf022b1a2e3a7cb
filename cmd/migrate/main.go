package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ariefcatur/go-order-processing/internal/config"
	"github.com/ariefcatur/go-order-processing/internal/logger"
	"github.com/ariefcatur/go-order-processing/internal/postgres"
	"github.com/joho/godotenv"
)

const usage = `usage: migrate <command> [args]

commands:
  up          apply all pending migrations
  down        roll back the last migration
  status      show applied and pending migrations
  version     print the current schema version
  redo        roll back and re-apply the last migration
  up-to N     migrate up to version N
  down-to N   roll back to version N`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx := context.Background()
	db, err := postgres.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cmd, args := os.Args[1], os.Args[2:]
	if err := postgres.Migrate(ctx, db, cmd, args...); err != nil {
		log.Error("migrate", "command", cmd, "error", err)
		os.Exit(1)
	}
	log.Info("migrate done", "command", cmd)
}
