package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/lib/pq" // Postgres driver
	_ "modernc.org/sqlite"

	"github.com/leobarcove/true-claim-insight/pkg/config"
	"github.com/leobarcove/true-claim-insight/pkg/store"
)

// openStore connects to PostgreSQL, or to an embedded SQLite file under
// DataDir when no DATABASE_URL is configured.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*store.SQLStore, error) {
	if cfg.DatabaseURL == "" {
		return setupLiteMode(cfg.DataDir, log)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("DB ping failed: %w", err)
	}
	st := store.NewPostgresStore(db)
	if err := st.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.InfoContext(ctx, "postgres connected")
	return st, nil
}

func setupLiteMode(dataDir string, log *slog.Logger) (*store.SQLStore, error) {
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "claimrisk.db")
	log.Info("lite mode: using sqlite", "path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// single writer; concurrent writers would hit SQLITE_BUSY
	db.SetMaxOpenConns(1)

	st, err := store.NewSQLiteStore(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init sqlite store: %w", err)
	}
	return st, nil
}
