package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"entry-portal/internal/config"
	"entry-portal/internal/sheets"
	"entry-portal/internal/store"
	"entry-portal/internal/store/postgres"
)

type stores struct {
	records store.RecordStore
	files   store.FileStore
	close   func()
}

// openStores connects the configured backend. The postgres backend is
// migrated on open.
func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*stores, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		if err := migratePostgres(cfg, logger); err != nil {
			return nil, err
		}
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		s := postgres.New(pool)
		return &stores{records: s, files: s, close: pool.Close}, nil

	case config.BackendSheets:
		c, err := sheets.New(ctx, cfg.GoogleServiceAccountJSON, cfg.SpreadsheetID, logger)
		if err != nil {
			return nil, fmt.Errorf("sheets: %w", err)
		}
		if err := c.EnsureHeaders(ctx); err != nil {
			return nil, fmt.Errorf("sheets: %w", err)
		}
		return &stores{records: c, files: c, close: func() {}}, nil

	case config.BackendMemory:
		logger.Warn("using the in-memory store; data is lost on exit")
		m := store.NewMemory()
		return &stores{records: m, files: m, close: func() {}}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func migratePostgres(cfg config.Config, logger *zap.Logger) error {
	if err := postgres.Migrate(cfg.DatabaseURL, logger); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	return nil
}
