package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"tradecore/internal/catalog"
	"tradecore/pkg/domain"
)

var (
	libOnce sync.Once
	lib     *catalog.Library
	libErr  error
)

func testLibrary(t *testing.T) *catalog.Library {
	t.Helper()
	libOnce.Do(func() { lib, libErr = catalog.Default() })
	if libErr != nil {
		t.Fatalf("load catalog: %v", libErr)
	}
	return lib
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	seq := 0
	opts = append([]Option{WithIDGenerator(func() string {
		seq++
		return fmt.Sprintf("game-%d", seq)
	})}, opts...)
	return NewService(testLibrary(t), opts...)
}

// startGame creates a game seating Caylion, Eni and Yengii as p1..p3 and
// starts it.
func startGame(t *testing.T, svc *Service) string {
	t.Helper()
	ctx := context.Background()
	id, err := svc.CreateGame(ctx, "table")
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	for i, sp := range []string{domain.SpeciesCaylion, domain.SpeciesEni, domain.SpeciesYengii} {
		if _, err := svc.AddPlayer(ctx, id, sp, fmt.Sprintf("p%d", i+1)); err != nil {
			t.Fatalf("add %s: %v", sp, err)
		}
	}
	if _, err := svc.Start(ctx, id); err != nil {
		t.Fatalf("start: %v", err)
	}
	return id
}

func agreeAll(t *testing.T, svc *Service, gameID string) {
	t.Helper()
	for _, id := range []string{"p1", "p2", "p3"} {
		if _, err := svc.PlayerAgree(context.Background(), gameID, id); err != nil {
			t.Fatalf("agree %s: %v", id, err)
		}
	}
}

func mustSnapshot(t *testing.T, svc *Service, gameID string) domain.GameSnapshot {
	t.Helper()
	snap, err := svc.Snapshot(context.Background(), gameID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return snap
}

func storageOf(t *testing.T, snap domain.GameSnapshot, player string) domain.Items {
	t.Helper()
	p, ok := snap.FindPlayer(player)
	if !ok {
		t.Fatalf("no player %s", player)
	}
	return p.Storage
}

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stubClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type captureLogger struct {
	mu    sync.Mutex
	calls []string
}

func (l *captureLogger) record(prefix, msg string) {
	l.mu.Lock()
	l.calls = append(l.calls, prefix+msg)
	l.mu.Unlock()
}

func (l *captureLogger) Debug(msg string, _ ...any) { l.record("d:", msg) }
func (l *captureLogger) Info(msg string, _ ...any)  { l.record("i:", msg) }
func (l *captureLogger) Warn(msg string, _ ...any)  { l.record("w:", msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.record("e:", msg) }

func (l *captureLogger) has(call string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.calls {
		if c == call {
			return true
		}
	}
	return false
}

// commandRule reports a violation of the given severity for one command name.
type commandRule struct {
	command  string
	severity domain.Severity
}

func (r commandRule) Name() string { return "command_" + r.command }

func (r commandRule) Evaluate(_ context.Context, _ domain.GameSnapshot, cmd domain.Command) (domain.Result, error) {
	if cmd.Name != r.command {
		return domain.Result{}, nil
	}
	return domain.Result{Violations: []domain.Violation{{
		Rule:     r.Name(),
		Severity: r.severity,
		Message:  "flagged " + cmd.Name,
		Player:   cmd.Actor,
	}}}, nil
}

// gateRule parks one command inside rule evaluation until release closes.
type gateRule struct {
	command string
	entered chan struct{}
	release chan struct{}
}

func (r gateRule) Name() string { return "gate_" + r.command }

func (r gateRule) Evaluate(ctx context.Context, _ domain.GameSnapshot, cmd domain.Command) (domain.Result, error) {
	if cmd.Name == r.command {
		close(r.entered)
		select {
		case <-r.release:
		case <-ctx.Done():
			return domain.Result{}, ctx.Err()
		}
	}
	return domain.Result{}, nil
}
