package domain

import (
	"context"
	"fmt"
)

// SnapshotStore persists committed game snapshots keyed by game id. Backends
// live under internal/infra/persistence.
type SnapshotStore interface {
	Save(ctx context.Context, gameID string, snapshot GameSnapshot) error
	Load(ctx context.Context, gameID string) (GameSnapshot, bool, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, gameID string) error
}

// ErrNotFound reports a lookup of an unknown game or record.
type ErrNotFound struct {
	Entity string
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
