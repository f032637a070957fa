// Package postgres persists game snapshots to PostgreSQL through the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"tradecore/pkg/domain"
)

var _ domain.SnapshotStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/tradecore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS games (
		game_id TEXT PRIMARY KEY,
		room_name TEXT NOT NULL,
		stage TEXT NOT NULL,
		round INTEGER NOT NULL,
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_games_stage ON games(stage)`,
}

// Store is a Postgres-backed domain.SnapshotStore.
type Store struct {
	db    *sql.DB
	nowFn func() time.Time
}

// NewStore connects to dsn (or the local default), verifies the connection
// and ensures the games table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("execute ddl: %w", err)
		}
	}
	return &Store{db: db, nowFn: func() time.Time { return time.Now().UTC() }}, nil
}

// Save implements domain.SnapshotStore.
func (s *Store) Save(ctx context.Context, gameID string, snapshot domain.GameSnapshot) (retErr error) {
	if gameID == "" {
		return fmt.Errorf("save snapshot: empty game id")
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", gameID, err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `INSERT INTO games (game_id, room_name, stage, round, payload, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id) DO UPDATE SET
			room_name = EXCLUDED.room_name, stage = EXCLUDED.stage, round = EXCLUDED.round,
			payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		gameID, snapshot.RoomName, string(snapshot.Stage), snapshot.CurrentRound, payload, s.nowFn()); err != nil {
		return fmt.Errorf("upsert game %s: %w", gameID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load implements domain.SnapshotStore.
func (s *Store) Load(ctx context.Context, gameID string) (domain.GameSnapshot, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM games WHERE game_id = $1`, gameID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GameSnapshot{}, false, nil
	}
	if err != nil {
		return domain.GameSnapshot{}, false, fmt.Errorf("select game %s: %w", gameID, err)
	}
	var snap domain.GameSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return domain.GameSnapshot{}, false, fmt.Errorf("decode game %s: %w", gameID, err)
	}
	return snap, true, nil
}

// List implements domain.SnapshotStore.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT game_id FROM games ORDER BY game_id`)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan game id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete implements domain.SnapshotStore.
func (s *Store) Delete(ctx context.Context, gameID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE game_id = $1`, gameID); err != nil {
		return fmt.Errorf("delete game %s: %w", gameID, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for integration tests.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sql.Open function for tests and returns a
// restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
