// Package core hosts the command service that owns running games. Each
// command runs against a clone of its game; the clone replaces the stored game
// only when the command succeeded and no blocking rule fired, after which the
// committed snapshot is persisted.
package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"tradecore/internal/catalog"
	"tradecore/internal/engine"
	memory "tradecore/internal/infra/persistence/memory"
	"tradecore/pkg/domain"
)

// EntityGame names games in ErrNotFound values.
const EntityGame = "game"

// ErrRateLimited is returned when a player issues commands faster than the
// configured command rate.
var ErrRateLimited = errors.New("command rate limit exceeded")

// Archiver stores the final snapshot of a finished game and returns the key
// it was stored under.
type Archiver interface {
	Archive(ctx context.Context, gameID string, snapshot domain.GameSnapshot) (string, error)
}

// Service serializes commands per game and commits them transactionally.
type Service struct {
	lib             *catalog.Library
	rules           *domain.RulesEngine
	store           domain.SnapshotStore
	archiver        Archiver
	logger          Logger
	audit           AuditRecorder
	metrics         MetricsRecorder
	tracer          Tracer
	clock           Clock
	limiter         *commandLimiter
	endRound        int
	techSpreadDelay int
	newID           func() string

	mu    sync.Mutex
	games map[string]*gameSlot
}

type gameSlot struct {
	mu   sync.Mutex
	game *engine.Game
	// deleted is set under mu by DeleteGame; holders of a stale slot must
	// not commit to it.
	deleted bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAuditRecorder sets the audit sink.
func WithAuditRecorder(r AuditRecorder) Option {
	return func(s *Service) {
		if r != nil {
			s.audit = r
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(r MetricsRecorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithSnapshotStore sets where committed games are persisted. The default is
// an in-memory store.
func WithSnapshotStore(store domain.SnapshotStore) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRulesEngine replaces the default invariant rules.
func WithRulesEngine(engine *domain.RulesEngine) Option {
	return func(s *Service) {
		if engine != nil {
			s.rules = engine
		}
	}
}

// WithArchiver archives every game that reaches the gameend stage.
func WithArchiver(a Archiver) Option {
	return func(s *Service) { s.archiver = a }
}

// WithCommandRate limits every player of every game to limit commands per
// second with the given burst. A non-positive limit disables limiting.
func WithCommandRate(limit float64, burst int) Option {
	return func(s *Service) {
		if limit <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = newCommandLimiter(rate.Limit(limit), burst)
	}
}

// WithEndRound sets the number of rounds of newly created games.
func WithEndRound(rounds int) Option {
	return func(s *Service) { s.endRound = rounds }
}

// WithTechSpreadDelay sets the tech spread delay of newly created games.
func WithTechSpreadDelay(rounds int) Option {
	return func(s *Service) { s.techSpreadDelay = rounds }
}

// WithIDGenerator overrides how game ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewService constructs a service over the given catalog.
func NewService(lib *catalog.Library, opts ...Option) *Service {
	s := &Service{
		lib:      lib,
		rules:    NewDefaultRulesEngine(),
		store:    memory.NewStore(),
		logger:   noopLogger{},
		audit:    noopAuditRecorder{},
		metrics:  noopMetricsRecorder{},
		tracer:   noopTracer{},
		clock:    ClockFunc(func() time.Time { return time.Now().UTC() }),
		endRound: engine.DefaultEndRound,
		newID:    uuid.NewString,
		games:    make(map[string]*gameSlot),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the snapshot store committed games are written to.
func (s *Service) Store() domain.SnapshotStore { return s.store }

// Library returns the catalog games are built from.
func (s *Service) Library() *catalog.Library { return s.lib }

// RulesEngine returns the invariant rules evaluated before each commit.
func (s *Service) RulesEngine() *domain.RulesEngine { return s.rules }

type commandKey struct{}

func withCommand(ctx context.Context, cmd domain.Command) context.Context {
	return context.WithValue(ctx, commandKey{}, cmd)
}

func commandFromContext(ctx context.Context) (domain.Command, bool) {
	cmd, ok := ctx.Value(commandKey{}).(domain.Command)
	return cmd, ok
}

// instrument wraps fn with tracing, metrics, audit and logging.
func (s *Service) instrument(ctx context.Context, cmd domain.Command, fn func(context.Context) (domain.Result, error)) (domain.Result, error) {
	ctx = withCommand(ctx, cmd)
	ctx, span := s.tracer.Start(ctx, cmd.Name)
	start := s.clock.Now()
	res, err := fn(ctx)
	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, cmd.Name, err == nil, duration)
	s.recordAudit(ctx, cmd, duration, err)
	s.logOutcome(cmd, res, duration, err)
	return res, err
}

func (s *Service) recordAudit(ctx context.Context, cmd domain.Command, duration time.Duration, err error) {
	entry := AuditEntry{
		Operation: cmd.Name,
		Status:    AuditStatusSuccess,
		GameID:    cmd.GameID,
		Actor:     cmd.Actor,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}

func (s *Service) logOutcome(cmd domain.Command, res domain.Result, duration time.Duration, err error) {
	args := []any{"op", cmd.Name, "game", cmd.GameID, "actor", cmd.Actor, "duration", duration}
	var cmdErr *domain.CommandError
	var ruleErr domain.RuleViolationError
	switch {
	case err == nil:
		for _, v := range res.Violations {
			s.logger.Warn("rule violation", append(args, "rule", v.Rule, "severity", string(v.Severity), "message", v.Message)...)
		}
		s.logger.Debug("command applied", args...)
	case errors.As(err, &cmdErr):
		s.logger.Info("command rejected", append(args, "kind", string(cmdErr.Kind), "error", err)...)
	case errors.As(err, &ruleErr):
		s.logger.Warn("command blocked", append(args, "error", err)...)
	case errors.Is(err, ErrRateLimited):
		s.logger.Info("command throttled", args...)
	default:
		s.logger.Error("command failed", append(args, "error", err)...)
	}
}

// run applies fn to a clone of the game and commits it.
func (s *Service) run(ctx context.Context, op, gameID, actor string, fn func(*engine.Game) error) (domain.Result, error) {
	cmd := domain.Command{Name: op, GameID: gameID, Actor: actor}
	return s.instrument(ctx, cmd, func(ctx context.Context) (domain.Result, error) {
		return s.execute(ctx, cmd, fn)
	})
}

func (s *Service) execute(ctx context.Context, cmd domain.Command, fn func(*engine.Game) error) (domain.Result, error) {
	if err := ctx.Err(); err != nil {
		return domain.Result{}, err
	}
	if cmd.Actor != "" && s.limiter != nil && !s.limiter.allow(cmd.GameID, cmd.Actor, s.clock.Now()) {
		return domain.Result{}, ErrRateLimited
	}
	slot, err := s.lockSlot(ctx, cmd.GameID)
	if err != nil {
		return domain.Result{}, err
	}
	defer slot.mu.Unlock()

	next := slot.game.Clone()
	if err := fn(next); err != nil {
		return domain.Result{}, err
	}
	snap := next.Snapshot()
	res, err := s.rules.Evaluate(ctx, snap, cmd)
	if err != nil {
		return domain.Result{}, fmt.Errorf("evaluate rules: %w", err)
	}
	if res.HasBlocking() {
		return res, domain.RuleViolationError{Result: res}
	}
	finished := slot.game.Stage() != domain.StageGameEnd && next.Stage() == domain.StageGameEnd
	slot.game = next

	// The command is committed from here on; storage failures are reported
	// but the in-memory game keeps the new state.
	if err := s.store.Save(ctx, cmd.GameID, snap); err != nil {
		return res, fmt.Errorf("persist game %s: %w", cmd.GameID, err)
	}
	if finished && s.archiver != nil {
		key, err := s.archiver.Archive(ctx, cmd.GameID, snap)
		if err != nil {
			return res, fmt.Errorf("archive game %s: %w", cmd.GameID, err)
		}
		s.logger.Info("game archived", "game", cmd.GameID, "key", key)
	}
	return res, nil
}

// slot returns the live game, restoring it from the store on first use.
func (s *Service) slot(ctx context.Context, gameID string) (*gameSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot, ok := s.games[gameID]; ok {
		return slot, nil
	}
	snap, ok, err := s.store.Load(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", gameID, err)
	}
	if !ok {
		return nil, domain.ErrNotFound{Entity: EntityGame, ID: gameID}
	}
	g, err := engine.Restore(s.lib, snap)
	if err != nil {
		return nil, fmt.Errorf("restore game %s: %w", gameID, err)
	}
	slot := &gameSlot{game: g}
	s.games[gameID] = slot
	return slot, nil
}

// lockSlot returns the game's slot with its lock held.
func (s *Service) lockSlot(ctx context.Context, gameID string) (*gameSlot, error) {
	slot, err := s.slot(ctx, gameID)
	if err != nil {
		return nil, err
	}
	slot.mu.Lock()
	if slot.deleted {
		slot.mu.Unlock()
		return nil, domain.ErrNotFound{Entity: EntityGame, ID: gameID}
	}
	return slot, nil
}

// view runs a read-only function under the game's lock.
func (s *Service) view(ctx context.Context, gameID string, fn func(*engine.Game)) error {
	slot, err := s.lockSlot(ctx, gameID)
	if err != nil {
		return err
	}
	defer slot.mu.Unlock()
	fn(slot.game)
	return nil
}

// CreateGame creates a game in the lobby and returns its id.
func (s *Service) CreateGame(ctx context.Context, roomName string) (string, error) {
	id := s.newID()
	cmd := domain.Command{Name: "create_game", GameID: id}
	_, err := s.instrument(ctx, cmd, func(ctx context.Context) (domain.Result, error) {
		g := engine.NewGame(s.lib, s.endRound,
			engine.WithRoomName(roomName),
			engine.WithTechSpreadDelay(s.techSpreadDelay),
		)
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, exists := s.games[id]; exists {
			return domain.Result{}, fmt.Errorf("game %s already exists", id)
		}
		if err := s.store.Save(ctx, id, g.Snapshot()); err != nil {
			return domain.Result{}, fmt.Errorf("persist game %s: %w", id, err)
		}
		s.games[id] = &gameSlot{game: g}
		return domain.Result{}, nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// DeleteGame drops a game from memory and from the store.
func (s *Service) DeleteGame(ctx context.Context, gameID string) error {
	cmd := domain.Command{Name: "delete_game", GameID: gameID}
	_, err := s.instrument(ctx, cmd, func(ctx context.Context) (domain.Result, error) {
		slot := s.lockForDelete(gameID)
		if slot != nil {
			defer slot.mu.Unlock()
		}
		defer s.mu.Unlock()
		live := slot != nil
		_, stored, err := s.store.Load(ctx, gameID)
		if err != nil {
			return domain.Result{}, fmt.Errorf("load game %s: %w", gameID, err)
		}
		if !live && !stored {
			return domain.Result{}, domain.ErrNotFound{Entity: EntityGame, ID: gameID}
		}
		if stored {
			if err := s.store.Delete(ctx, gameID); err != nil {
				return domain.Result{}, fmt.Errorf("delete game %s: %w", gameID, err)
			}
		}
		if slot != nil {
			slot.deleted = true
		}
		delete(s.games, gameID)
		s.limiter.forget(gameID)
		return domain.Result{}, nil
	})
	return err
}

// lockForDelete waits for any running command on gameID and returns with
// both the live slot's lock (when there is one) and s.mu held. Slot locks
// are always taken before s.mu.
func (s *Service) lockForDelete(gameID string) *gameSlot {
	for {
		s.mu.Lock()
		slot := s.games[gameID]
		s.mu.Unlock()
		if slot != nil {
			slot.mu.Lock()
		}
		s.mu.Lock()
		if s.games[gameID] == slot {
			return slot
		}
		s.mu.Unlock()
		if slot != nil {
			slot.mu.Unlock()
		}
	}
}

// Games lists the ids of every game known to the service or its store.
func (s *Service) Games(ctx context.Context) ([]string, error) {
	ids, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	s.mu.Lock()
	for id := range s.games {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()
	sort.Strings(ids)
	return ids, nil
}

// Snapshot exports the committed state of a game.
func (s *Service) Snapshot(ctx context.Context, gameID string) (domain.GameSnapshot, error) {
	var snap domain.GameSnapshot
	err := s.view(ctx, gameID, func(g *engine.Game) { snap = g.Snapshot() })
	return snap, err
}

// Proposals lists the pending trade proposals of a game.
func (s *Service) Proposals(ctx context.Context, gameID string) ([]engine.TradeProposal, error) {
	var out []engine.TradeProposal
	err := s.view(ctx, gameID, func(g *engine.Game) { out = g.Proposals() })
	return out, err
}

// Evict drops the in-memory copy of a game; the next command restores it
// from the store.
func (s *Service) Evict(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, gameID)
}
