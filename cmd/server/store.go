package main

import (
	"context"
	"fmt"

	"github.com/simaogato/loanscore-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/loanscore-backend/internal/adapter/repository/sqlite"
	"github.com/simaogato/loanscore-backend/internal/classifier"
	"github.com/simaogato/loanscore-backend/internal/config"
	"github.com/simaogato/loanscore-backend/internal/domain"
)

// store is the configured history backend
type store struct {
	Repo    domain.HistoryRepository
	Migrate func(ctx context.Context) error
	Close   func() error
}

// openStore connects to the history backend selected by STORE_DRIVER
func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := postgres.NewDB(ctx, cfg.DBConnStr, postgres.PoolConfig{
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return &store{Repo: postgres.NewHistoryRepository(db), Migrate: db.Migrate, Close: db.Close}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open history file: %w", err)
		}
		return &store{Repo: sqlite.NewHistoryRepository(db), Migrate: db.Migrate, Close: db.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// modelVersion reads the artifact version without starting the service
func modelVersion(path string) string {
	model, err := classifier.LoadArtifact(path)
	if err != nil {
		return "unavailable (" + err.Error() + ")"
	}
	return model.Version()
}
