package core

import (
	"context"
	"database/sql"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"tradecore/internal/config"
	memory "tradecore/internal/infra/persistence/memory"
	"tradecore/internal/infra/persistence/postgres"
	"tradecore/internal/infra/persistence/postgres/testutil"
	"tradecore/internal/infra/persistence/sqlite"
	"tradecore/pkg/domain"
)

func TestOpenSnapshotStoreDrivers(t *testing.T) {
	ctx := context.Background()

	mem, err := OpenSnapshotStore(ctx, config.Storage{Driver: config.StorageMemory})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := mem.(*memory.Store); !ok {
		t.Fatalf("memory driver returned %T", mem)
	}

	path := filepath.Join(t.TempDir(), "games.db")
	lite, err := OpenSnapshotStore(ctx, config.Storage{Driver: config.StorageSQLite, SQLitePath: path})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	if _, ok := lite.(*sqlite.Store); !ok {
		t.Fatalf("sqlite driver returned %T", lite)
	}
	t.Cleanup(func() { _ = lite.(io.Closer).Close() })

	db, _ := testutil.NewStubDB()
	restore := postgres.OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	pg, err := OpenSnapshotStore(ctx, config.Storage{Driver: config.StoragePostgres, PostgresDSN: "postgres://stub"})
	if err != nil {
		t.Fatalf("postgres: %v", err)
	}
	if _, ok := pg.(*postgres.Store); !ok {
		t.Fatalf("postgres driver returned %T", pg)
	}

	if _, err := OpenSnapshotStore(ctx, config.Storage{Driver: "etcd"}); err == nil || !strings.Contains(err.Error(), "unknown storage driver") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
}

func TestServiceOverSQLiteSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "games.db")
	open := func() domain.SnapshotStore {
		store, err := OpenSnapshotStore(ctx, config.Storage{Driver: config.StorageSQLite, SQLitePath: path})
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		return store
	}

	store := open()
	svc := newTestService(t, WithSnapshotStore(store))
	id := startGame(t, svc)
	if _, err := svc.DebugAddItem(ctx, id, "p3", domain.ItemBiotech, 2); err != nil {
		t.Fatalf("debug add: %v", err)
	}
	want := storageOf(t, mustSnapshot(t, svc, id), "p3")[domain.ItemBiotech]
	if err := store.(io.Closer).Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := open()
	t.Cleanup(func() { _ = reopened.(io.Closer).Close() })
	restarted := newTestService(t, WithSnapshotStore(reopened))
	ids, err := restarted.Games(ctx)
	if err != nil || len(ids) != 1 || ids[0] != id {
		t.Fatalf("games after restart = %v, %v", ids, err)
	}
	snap := mustSnapshot(t, restarted, id)
	if snap.Stage != domain.StageTrading || storageOf(t, snap, "p3")[domain.ItemBiotech] != want {
		t.Fatalf("restored %q with biotech %d, want %d", snap.Stage, storageOf(t, snap, "p3")[domain.ItemBiotech], want)
	}
	if _, err := restarted.PlayerAgree(ctx, id, "p3"); err != nil {
		t.Fatalf("command after restart: %v", err)
	}
}
