// Package archive keeps the final snapshot of finished games in a blob store.
// Snapshots are stored as lz4-framed JSON with a blake3 checksum of the
// uncompressed document in the object metadata.
package archive

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"

	"tradecore/internal/blob"
	"tradecore/pkg/domain"
)

const (
	defaultPrefix = "games/"
	keySuffix     = ".json.lz4"
	contentType   = "application/x-lz4"

	metaGame     = "game"
	metaChecksum = "checksum"
	metaRound    = "round"
	metaRawSize  = "raw-size"
	metaWinner   = "winner"
)

// ErrChecksumMismatch is returned when a stored archive does not hash to
// the checksum recorded alongside it.
var ErrChecksumMismatch = errors.New("archive checksum mismatch")

// Record describes one archived game.
type Record struct {
	GameID     string    `json:"game_id"`
	Key        string    `json:"key"`
	Size       int64     `json:"size_bytes"`
	RawSize    int64     `json:"raw_size_bytes"`
	Checksum   string    `json:"checksum"`
	Round      int       `json:"round"`
	Winner     string    `json:"winner,omitempty"`
	ArchivedAt time.Time `json:"archived_at"`
}

// Archive writes and reads game archives.
type Archive struct {
	store  blob.Store
	prefix string
}

// Option configures an Archive.
type Option func(*Archive)

// WithPrefix stores archives under prefix instead of "games/".
func WithPrefix(prefix string) Option {
	return func(a *Archive) {
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		a.prefix = prefix
	}
}

// New returns an archive over store.
func New(store blob.Store, opts ...Option) *Archive {
	a := &Archive{store: store, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Key returns the object key of a game's archive.
func (a *Archive) Key(gameID string) string { return a.prefix + gameID + keySuffix }

// Archive stores snap under the game's key and returns the key. Each game is
// archived once; a second call fails with blob.ErrExists.
func (a *Archive) Archive(ctx context.Context, gameID string, snap domain.GameSnapshot) (string, error) {
	if gameID == "" {
		return "", errors.New("archive: empty game id")
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	packed, err := compress(raw)
	if err != nil {
		return "", fmt.Errorf("compress snapshot: %w", err)
	}
	meta := map[string]string{
		metaGame:     gameID,
		metaChecksum: checksum(raw),
		metaRound:    strconv.Itoa(snap.CurrentRound),
		metaRawSize:  strconv.Itoa(len(raw)),
	}
	if len(snap.Standings) > 0 {
		meta[metaWinner] = snap.Standings[0].Player
	}
	key := a.Key(gameID)
	if _, err := a.store.Put(ctx, key, bytes.NewReader(packed), blob.PutOptions{ContentType: contentType, Metadata: meta}); err != nil {
		return "", fmt.Errorf("store archive %s: %w", key, err)
	}
	return key, nil
}

// Load reads a game's archive back and verifies its checksum.
func (a *Archive) Load(ctx context.Context, gameID string) (domain.GameSnapshot, Record, error) {
	key := a.Key(gameID)
	info, rc, err := a.store.Get(ctx, key)
	if err != nil {
		return domain.GameSnapshot{}, Record{}, fmt.Errorf("read archive %s: %w", key, err)
	}
	defer rc.Close()
	packed, err := io.ReadAll(rc)
	if err != nil {
		return domain.GameSnapshot{}, Record{}, fmt.Errorf("read archive %s: %w", key, err)
	}
	raw, err := decompress(packed)
	if err != nil {
		return domain.GameSnapshot{}, Record{}, fmt.Errorf("decompress archive %s: %w", key, err)
	}
	rec := a.record(info)
	if got := checksum(raw); got != rec.Checksum {
		return domain.GameSnapshot{}, rec, fmt.Errorf("%w: %s has %s, recorded %s", ErrChecksumMismatch, key, got, rec.Checksum)
	}
	var snap domain.GameSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.GameSnapshot{}, rec, fmt.Errorf("decode archive %s: %w", key, err)
	}
	return snap, rec, nil
}

// List returns a record per archived game, ordered by game id. Listing does
// not return metadata on every backend, so each entry is re-read with Head.
func (a *Archive) List(ctx context.Context) ([]Record, error) {
	infos, err := a.store.List(ctx, a.prefix)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	out := make([]Record, 0, len(infos))
	for _, info := range infos {
		if !strings.HasSuffix(info.Key, keySuffix) {
			continue
		}
		full, err := a.store.Head(ctx, info.Key)
		if err != nil {
			return nil, fmt.Errorf("inspect archive %s: %w", info.Key, err)
		}
		out = append(out, a.record(full))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameID < out[j].GameID })
	return out, nil
}

// Delete removes a game's archive and reports whether one existed.
func (a *Archive) Delete(ctx context.Context, gameID string) (bool, error) {
	return a.store.Delete(ctx, a.Key(gameID))
}

func (a *Archive) record(info blob.Info) Record {
	rec := Record{
		GameID:     info.Metadata[metaGame],
		Key:        info.Key,
		Size:       info.Size,
		Checksum:   info.Metadata[metaChecksum],
		Winner:     info.Metadata[metaWinner],
		ArchivedAt: info.LastModified,
	}
	if rec.GameID == "" {
		rec.GameID = strings.TrimSuffix(strings.TrimPrefix(info.Key, a.prefix), keySuffix)
	}
	rec.Round, _ = strconv.Atoi(info.Metadata[metaRound])
	rec.RawSize, _ = strconv.ParseInt(info.Metadata[metaRawSize], 10, 64)
	return rec
}

func compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(src); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, lz4.NewReader(bytes.NewReader(src))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
