package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"tradecore/internal/config"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name   string
		cfg    config.Blob
		driver Driver
		err    string
	}{
		{name: "filesystem", cfg: config.Blob{Driver: config.BlobFilesystem, FSRoot: filepath.Join(t.TempDir(), "arch")}, driver: DriverFilesystem},
		{name: "memory", cfg: config.Blob{Driver: config.BlobMemory}, driver: DriverMemory},
		{name: "s3 without bucket", cfg: config.Blob{Driver: config.BlobS3}, err: "bucket"},
		{name: "disabled", cfg: config.Blob{}, err: "no blob driver"},
		{name: "unknown", cfg: config.Blob{Driver: "ftp"}, err: "unknown blob driver"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, err := Open(ctx, tc.cfg)
			if tc.err != "" {
				if err == nil || !strings.Contains(err.Error(), tc.err) {
					t.Fatalf("expected error containing %q, got %v", tc.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			if store.Driver() != tc.driver {
				t.Fatalf("driver = %s", store.Driver())
			}
		})
	}
}

// Every backend honors the same write-once contract.
func TestBackendsShareContract(t *testing.T) {
	ctx := context.Background()
	fsStore, err := Open(ctx, config.Blob{Driver: config.BlobFilesystem, FSRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	s3Store, err := NewMockS3(ctx)
	if err != nil {
		t.Fatalf("mock s3: %v", err)
	}
	for _, store := range []Store{fsStore, NewMemory(), s3Store} {
		t.Run(string(store.Driver()), func(t *testing.T) {
			opts := PutOptions{ContentType: "text/plain", Metadata: map[string]string{"game": "g1"}}
			if _, err := store.Put(ctx, "games/g1", bytes.NewReader([]byte("data")), opts); err != nil {
				t.Fatalf("put: %v", err)
			}
			if _, err := store.Put(ctx, "games/g1", bytes.NewReader([]byte("again")), opts); !errors.Is(err, ErrExists) {
				t.Fatalf("expected ErrExists, got %v", err)
			}
			info, rc, err := store.Get(ctx, "games/g1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			body, _ := io.ReadAll(rc)
			_ = rc.Close()
			if string(body) != "data" || info.Metadata["game"] != "g1" || info.Size != 4 {
				t.Fatalf("get = %q %+v", body, info)
			}
			list, err := store.List(ctx, "games/")
			if err != nil || len(list) != 1 || list[0].Key != "games/g1" {
				t.Fatalf("list = %+v, %v", list, err)
			}
			if _, err := store.Head(ctx, "games/none"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}
