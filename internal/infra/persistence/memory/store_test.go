package memory

import (
	"context"
	"testing"
	"time"

	"tradecore/pkg/domain"
)

func sampleSnapshot() domain.GameSnapshot {
	return domain.GameSnapshot{
		RoomName:     "table-1",
		Stage:        domain.StageTrading,
		CurrentRound: 2,
		EndRound:     6,
		Players: []domain.PlayerSnapshot{{
			UserID:  "p1",
			Species: domain.SpeciesCaylion,
			Storage: domain.Items{domain.ItemFood: 3},
		}},
	}
}

func TestSaveLoadIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.nowFn = func() time.Time { return fixed }

	snap := sampleSnapshot()
	if err := store.Save(ctx, "g1", snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap.Players[0].Storage[domain.ItemFood] = 99

	got, ok, err := store.Load(ctx, "g1")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.Players[0].Storage[domain.ItemFood] != 3 {
		t.Fatalf("store shares memory with the caller: %v", got.Players[0].Storage)
	}
	if got.RoomName != "table-1" || got.CurrentRound != 2 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
	if at, ok := store.UpdatedAt("g1"); !ok || !at.Equal(fixed) {
		t.Fatalf("updated at = %v, %v", at, ok)
	}
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	for _, id := range []string{"b", "a", "c"} {
		if err := store.Save(ctx, id, sampleSnapshot()); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	ids, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[2] != "c" {
		t.Fatalf("ids = %v", ids)
	}
	if err := store.Delete(ctx, "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "missing"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if _, ok, _ := store.Load(ctx, "b"); ok {
		t.Fatalf("deleted game still loads")
	}
}

func TestRejectsEmptyIDAndCancelledContext(t *testing.T) {
	store := NewStore()
	if err := store.Save(context.Background(), "", sampleSnapshot()); err == nil {
		t.Fatalf("expected empty id error")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Save(ctx, "g1", sampleSnapshot()); err == nil {
		t.Fatalf("expected context error")
	}
	if _, err := store.List(ctx); err == nil {
		t.Fatalf("expected context error on list")
	}
}
