// Package blob is the entry point to object storage. Callers depend on the
// Store interface; only this package touches the backends.
package blob

import (
	"context"
	"fmt"

	"tradecore/internal/blob/core"
	"tradecore/internal/config"
	"tradecore/internal/infra/blob/fs"
	"tradecore/internal/infra/blob/memory"
	"tradecore/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend.
	Driver = core.Driver
	// PutOptions configures a write.
	PutOptions = core.PutOptions
	// Info describes a stored object.
	Info = core.Info
	// Store is implemented by every backend.
	Store = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	// ErrExists is returned when writing over an existing key.
	ErrExists = core.ErrExists
	// ErrNotFound is returned for missing keys.
	ErrNotFound = core.ErrNotFound
)

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.Blob) (Store, error) {
	switch Driver(cfg.Driver) {
	case DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverMemory:
		return memory.New(), nil
	case DriverS3:
		return s3.New(ctx, s3.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
	case "":
		return nil, fmt.Errorf("no blob driver configured")
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

// NewMemory returns an empty in-memory store.
func NewMemory() Store { return memory.New() }

// NewMockS3 returns an S3 store backed by an in-process bucket, for tests
// and offline simulations.
func NewMockS3(ctx context.Context) (Store, error) {
	store, _, err := s3.NewMock(ctx, 0)
	if err != nil {
		return nil, err
	}
	return store, nil
}
