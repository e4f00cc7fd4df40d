// Command migrate applies the pricing schema to the configured database.
package main

import (
	"context"
	_ "embed"
	"log/slog"
	"os"
	"time"

	"github.com/meridian-erp/meridian-pricing/internal/app"
	"github.com/meridian-erp/meridian-pricing/internal/platform/db"
)

//go:embed schema.sql
var schema string

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		slog.Default().Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, schema); err != nil {
		slog.Default().Error("apply schema", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Default().Info("schema applied")
}
