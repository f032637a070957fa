package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tradecore/pkg/domain"
)

type captureAuditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (r *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()
}

type metricCall struct {
	op      string
	success bool
	dur     time.Duration
}

type captureMetricsRecorder struct {
	mu    sync.Mutex
	calls []metricCall
}

func (r *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, dur time.Duration) {
	r.mu.Lock()
	r.calls = append(r.calls, metricCall{op: op, success: success, dur: dur})
	r.mu.Unlock()
}

type captureTracer struct {
	mu    sync.Mutex
	spans []*captureSpan
}

type captureSpan struct {
	op    string
	ended bool
	err   error
}

func (s *captureSpan) End(err error) {
	s.ended = true
	s.err = err
}

func (t *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	span := &captureSpan{op: op}
	t.mu.Lock()
	t.spans = append(t.spans, span)
	t.mu.Unlock()
	return ctx, span
}

// tickClock advances by step on every reading.
type tickClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

func TestServiceRecordsAuditMetricsAndSpans(t *testing.T) {
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	clock := &tickClock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), step: 5 * time.Millisecond}
	svc := newTestService(t,
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithClock(clock),
	)
	id := startGame(t, svc)
	_, _ = svc.PlayerAgree(context.Background(), id, "ghost")

	// create, three seats, start, failed agree
	if len(audit.entries) != 6 || len(metrics.calls) != 6 || len(tracer.spans) != 6 {
		t.Fatalf("audit=%d metrics=%d spans=%d", len(audit.entries), len(metrics.calls), len(tracer.spans))
	}
	seat := audit.entries[1]
	if seat.Operation != "add_player" || seat.Actor != "p1" || seat.GameID != id || seat.Status != AuditStatusSuccess {
		t.Fatalf("seat entry = %+v", seat)
	}
	if seat.Duration != 5*time.Millisecond {
		t.Fatalf("duration = %v", seat.Duration)
	}
	failed := audit.entries[5]
	if failed.Status != AuditStatusError || failed.Operation != "player_agree" || !strings.Contains(failed.Error, "ghost") {
		t.Fatalf("failed entry = %+v", failed)
	}
	if last := metrics.calls[5]; last.success || last.op != "player_agree" {
		t.Fatalf("metric = %+v", last)
	}
	for _, span := range tracer.spans {
		if !span.ended {
			t.Fatalf("span %s never ended", span.op)
		}
	}
	if tracer.spans[0].op != "create_game" || tracer.spans[5].err == nil {
		t.Fatalf("unexpected spans %+v / %+v", tracer.spans[0], tracer.spans[5])
	}
}

func TestJSONTracerCarriesCommandContext(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	svc := newTestService(t, WithTracer(tracer))
	id := startGame(t, svc)
	if _, err := svc.DebugAddItem(context.Background(), id, "p2", domain.ItemShip, 1); err != nil {
		t.Fatalf("debug add: %v", err)
	}

	entries := tracer.Entries()
	last := entries[len(entries)-1]
	if last.Operation != "debug_add_item" || last.GameID != id || last.Actor != "p2" || last.Status != "success" {
		t.Fatalf("trace entry = %+v", last)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != len(entries) {
		t.Fatalf("wrote %d lines for %d spans", len(lines), len(entries))
	}
	var decoded JSONTraceEntry
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &decoded); err != nil {
		t.Fatalf("decode trace line: %v", err)
	}
	if decoded.GameID != id {
		t.Fatalf("decoded = %+v", decoded)
	}

	_, span := tracer.Start(context.Background(), "manual")
	span.End(errors.New("boom"))
	span.End(nil)
	entries = tracer.Entries()
	if got := entries[len(entries)-1]; got.Operation != "manual" || got.Error != "boom" {
		t.Fatalf("manual span = %+v", got)
	}
	if len(entries) != len(lines)+1 {
		t.Fatalf("span ended twice")
	}
}

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	svc := newTestService(t, WithMetricsRecorder(rec))
	id := startGame(t, svc)
	_, _ = svc.PlayerAgree(context.Background(), id, "ghost")

	snap := rec.Snapshot()
	if got := snap.Commands["add_player"]; got.Success != 3 || got.Errors != 0 {
		t.Fatalf("add_player stats = %+v", got)
	}
	if got := snap.Commands["player_agree"]; got.Errors != 1 {
		t.Fatalf("player_agree stats = %+v", got)
	}
	published := expvar.Get(rec.Name())
	if published == nil || !strings.Contains(published.String(), "start_game") {
		t.Fatalf("expvar %s = %v", rec.Name(), published)
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	svc := newTestService(t, WithMetricsRecorder(rec))
	id := startGame(t, svc)
	_, _ = svc.PlayerAgree(context.Background(), id, "ghost")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	counts := map[string]float64{}
	var histograms int
	for _, mf := range families {
		switch mf.GetName() {
		case "tradecore_commands_total":
			for _, m := range mf.GetMetric() {
				labels := map[string]string{}
				for _, lp := range m.GetLabel() {
					labels[lp.GetName()] = lp.GetValue()
				}
				counts[labels["operation"]+"/"+labels["status"]] = m.GetCounter().GetValue()
			}
		case "tradecore_command_duration_seconds":
			histograms = len(mf.GetMetric())
		}
	}
	if counts["add_player/success"] != 3 || counts["player_agree/error"] != 1 || counts["start_game/success"] != 1 {
		t.Fatalf("counters = %v", counts)
	}
	if histograms != 4 {
		t.Fatalf("expected one histogram per operation, got %d", histograms)
	}
	if len(rec.Collectors()) != 2 {
		t.Fatalf("collectors = %d", len(rec.Collectors()))
	}
}

func TestNoopObservabilityDefaults(t *testing.T) {
	ctx := context.Background()
	var l Logger = noopLogger{}
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	noopAuditRecorder{}.Record(ctx, AuditEntry{})
	noopMetricsRecorder{}.Observe(ctx, "op", true, time.Second)
	got, span := noopTracer{}.Start(ctx, "op")
	span.End(nil)
	if got != ctx {
		t.Fatalf("noop tracer replaced the context")
	}
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if ClockFunc(func() time.Time { return fixed }).Now() != fixed {
		t.Fatalf("clock func")
	}
}
