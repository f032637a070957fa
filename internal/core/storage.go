package core

import (
	"context"
	"fmt"

	"tradecore/internal/config"
	memory "tradecore/internal/infra/persistence/memory"
	"tradecore/internal/infra/persistence/postgres"
	"tradecore/internal/infra/persistence/sqlite"
	"tradecore/pkg/domain"
)

// OpenSnapshotStore builds the snapshot store selected by cfg.Driver.
func OpenSnapshotStore(ctx context.Context, cfg config.Storage) (domain.SnapshotStore, error) {
	switch cfg.Driver {
	case config.StorageMemory:
		return memory.NewStore(), nil
	case config.StorageSQLite, "":
		return sqlite.NewStore(cfg.SQLitePath)
	case config.StoragePostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}
