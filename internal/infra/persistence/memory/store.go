// Package memory provides an in-process snapshot store for tests and
// ephemeral deployments.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"tradecore/pkg/domain"
)

var _ domain.SnapshotStore = (*Store)(nil)

type record struct {
	payload   []byte
	updatedAt time.Time
}

// Store keeps encoded snapshots keyed by game id. Snapshots are stored in
// their JSON form so callers never share memory with the store.
type Store struct {
	mu    sync.RWMutex
	games map[string]record
	nowFn func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		games: make(map[string]record),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// Save implements domain.SnapshotStore.
func (s *Store) Save(ctx context.Context, gameID string, snapshot domain.GameSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if gameID == "" {
		return fmt.Errorf("save snapshot: empty game id")
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", gameID, err)
	}
	s.mu.Lock()
	s.games[gameID] = record{payload: payload, updatedAt: s.nowFn()}
	s.mu.Unlock()
	return nil
}

// Load implements domain.SnapshotStore.
func (s *Store) Load(ctx context.Context, gameID string) (domain.GameSnapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.GameSnapshot{}, false, err
	}
	s.mu.RLock()
	rec, ok := s.games[gameID]
	s.mu.RUnlock()
	if !ok {
		return domain.GameSnapshot{}, false, nil
	}
	var snap domain.GameSnapshot
	if err := json.Unmarshal(rec.payload, &snap); err != nil {
		return domain.GameSnapshot{}, false, fmt.Errorf("decode snapshot %s: %w", gameID, err)
	}
	return snap, true, nil
}

// List implements domain.SnapshotStore.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	ids := make([]string, 0, len(s.games))
	for id := range s.games {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids, nil
}

// Delete implements domain.SnapshotStore. Deleting an unknown game is not an
// error.
func (s *Store) Delete(ctx context.Context, gameID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.games, gameID)
	s.mu.Unlock()
	return nil
}

// UpdatedAt reports when a game was last saved.
func (s *Store) UpdatedAt(gameID string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.games[gameID]
	return rec.updatedAt, ok
}
