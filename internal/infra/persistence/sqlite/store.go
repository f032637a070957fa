// Package sqlite persists game snapshots to an embedded SQLite database, one
// row per game.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"tradecore/pkg/domain"
)

var _ domain.SnapshotStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS games (
	game_id TEXT PRIMARY KEY,
	room_name TEXT NOT NULL,
	stage TEXT NOT NULL,
	round INTEGER NOT NULL,
	payload BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_games_stage ON games(stage);
`

// Summary is the indexed header of a stored game.
type Summary struct {
	GameID    string    `db:"game_id"`
	RoomName  string    `db:"room_name"`
	Stage     string    `db:"stage"`
	Round     int       `db:"round"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Store is a SQLite-backed domain.SnapshotStore.
type Store struct {
	db    *sqlx.DB
	path  string
	nowFn func() time.Time
}

// NewStore opens (creating when needed) the database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "tradecore.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create games table: %w", err)
	}
	return &Store{db: db, path: path, nowFn: func() time.Time { return time.Now().UTC() }}, nil
}

// Save implements domain.SnapshotStore.
func (s *Store) Save(ctx context.Context, gameID string, snapshot domain.GameSnapshot) error {
	if gameID == "" {
		return fmt.Errorf("save snapshot: empty game id")
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", gameID, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO games(game_id, room_name, stage, round, payload, updated_at)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(game_id) DO UPDATE SET
			room_name=excluded.room_name, stage=excluded.stage, round=excluded.round,
			payload=excluded.payload, updated_at=excluded.updated_at`,
		gameID, snapshot.RoomName, string(snapshot.Stage), snapshot.CurrentRound, payload, s.nowFn())
	if err != nil {
		return fmt.Errorf("upsert game %s: %w", gameID, err)
	}
	return nil
}

// Load implements domain.SnapshotStore.
func (s *Store) Load(ctx context.Context, gameID string) (domain.GameSnapshot, bool, error) {
	var payload []byte
	err := s.db.GetContext(ctx, &payload, `SELECT payload FROM games WHERE game_id = ?`, gameID)
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
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `SELECT game_id FROM games ORDER BY game_id`); err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return ids, nil
}

// Delete implements domain.SnapshotStore.
func (s *Store) Delete(ctx context.Context, gameID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE game_id = ?`, gameID); err != nil {
		return fmt.Errorf("delete game %s: %w", gameID, err)
	}
	return nil
}

// Summaries lists the headers of stored games, optionally filtered by stage.
func (s *Store) Summaries(ctx context.Context, stage domain.Stage) ([]Summary, error) {
	query := `SELECT game_id, room_name, stage, round, updated_at FROM games`
	var args []any
	if stage != "" {
		query += ` WHERE stage = ?`
		args = append(args, string(stage))
	}
	query += ` ORDER BY updated_at DESC, game_id`
	var out []Summary
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	return out, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for integration tests.
func (s *Store) DB() *sqlx.DB { return s.db }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }
