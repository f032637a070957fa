package engine

import (
	"bytes"
	"encoding/json"
	"testing"

	"tradecore/pkg/domain"
)

func roundTrip(t *testing.T, g *Game) ([]byte, *Game) {
	t.Helper()
	data, err := json.Marshal(g.Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var snap domain.GameSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	restored, err := Restore(g.Library(), snap)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	return data, restored
}

func TestSnapshotRoundTripIsStable(t *testing.T) {
	g := newStartedGame(t, 6, domain.SpeciesCaylion, domain.SpeciesEni, domain.SpeciesKjasjavikalimm)
	setStorage(mustPlayer(t, g, "p1"), domain.Items{domain.ItemFood: 4, domain.ItemShip: 3})
	if _, err := g.ProposeTrade("p1", []string{"p2"}, domain.Bundle{Items: domain.Items{domain.ItemFood: 1}}, domain.Bundle{}, "gift-ish"); err != nil {
		t.Fatalf("propose: %v", err)
	}
	eni := mustPlayer(t, g, "p2")
	if err := g.addResearch(eni, researchCard("Bench", "Robotics", domain.Items{})); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := g.Produce("p2", "Bench", 0, ProduceExtra{}); err != nil {
		t.Fatalf("produce: %v", err)
	}

	_, first := roundTrip(t, g)
	a, second := roundTrip(t, first)
	b, _ := roundTrip(t, second)
	if !bytes.Equal(a, b) {
		t.Fatalf("snapshot not stable across restore:\n%s\n%s", a, b)
	}

	s := first.Snapshot()
	if s.Stage != domain.StageTrading || s.CurrentRound != 1 || s.ProposalSeq != 1 {
		t.Fatalf("restored header = %q/%d/%d", s.Stage, s.CurrentRound, s.ProposalSeq)
	}
	p1, _ := s.FindPlayer("p1")
	if !sameStorage(p1.Storage, domain.Items{domain.ItemFood: 4, domain.ItemShip: 3}) {
		t.Fatalf("restored storage = %v", p1.Storage)
	}
	if len(s.TechSpreadSchedule[1]) != 1 {
		t.Fatalf("tech schedule lost: %v", s.TechSpreadSchedule)
	}
	if len(s.ColonyDeck) != len(g.Snapshot().ColonyDeck) {
		t.Fatalf("colony deck size changed")
	}

	id, err := first.ProposeTrade("p2", nil, domain.Bundle{}, domain.Bundle{}, "")
	if err != nil || id != 2 {
		t.Fatalf("restored game should continue the proposal sequence, got %d (%v)", id, err)
	}
	if err := first.AcceptTradeProposal("p2", 1); err != nil {
		t.Fatalf("accept restored proposal: %v", err)
	}
}

func TestSnapshotDuringPick(t *testing.T) {
	g := newStartedGame(t, 6, domain.SpeciesCaylion, domain.SpeciesEni, domain.SpeciesKjasjavikalimm)
	toBidStage(t, g)
	for _, id := range g.PlayerIDs() {
		if err := g.SubmitBid(id, 0, 0); err != nil {
			t.Fatalf("bid: %v", err)
		}
	}
	s := g.Snapshot()
	if s.CurrentPick.Type != domain.TrackColony || s.CurrentPick.Player != s.ColonyQueue[0].Player {
		t.Fatalf("current pick = %+v, queue = %+v", s.CurrentPick, s.ColonyQueue)
	}
	_, restored := roundTrip(t, g)
	passAll(t, restored)
	if restored.Stage() != domain.StageTrading || restored.Round() != 2 {
		t.Fatalf("restored game did not finish the pick stage: %q", restored.Stage())
	}
}

func TestRestoreRejectsBadSnapshots(t *testing.T) {
	lib := testLibrary(t)
	for _, stage := range []domain.Stage{"nap", domain.ConverterConstant, domain.ConverterStealing} {
		if _, err := Restore(lib, domain.GameSnapshot{Stage: stage}); err == nil {
			t.Fatalf("expected unknown stage error for %q", stage)
		}
	}
	bad := domain.GameSnapshot{Stage: domain.StageTrading, Players: []domain.PlayerSnapshot{{UserID: "p1", Species: "Nobody"}}}
	if _, err := Restore(lib, bad); err == nil {
		t.Fatalf("expected unknown species error")
	}
	orphan := domain.GameSnapshot{Stage: domain.StagePick, ColonyQueue: []domain.QueueEntry{{Player: "ghost"}}}
	if _, err := Restore(lib, orphan); err == nil {
		t.Fatalf("expected orphan queue error")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := newStartedGame(t, 6, domain.SpeciesCaylion, domain.SpeciesEni, domain.SpeciesYengii)
	cp := g.Clone()
	if err := cp.DebugAddItem("p1", domain.ItemFood, 10); err != nil {
		t.Fatalf("debug add: %v", err)
	}
	if _, err := cp.DebugDrawColony("p2"); err != nil {
		t.Fatalf("draw: %v", err)
	}
	cpHub, _ := mustPlayer(t, cp, "p1").Factory("Caylion_Trade Hub")
	cpHub.Converters[0].Used = true

	orig := mustPlayer(t, g, "p1")
	if orig.Amount(domain.ItemFood) == mustPlayer(t, cp, "p1").Amount(domain.ItemFood) {
		t.Fatalf("clone shares storage")
	}
	hub, _ := orig.Factory("Caylion_Trade Hub")
	if hub.Converters[0].Used {
		t.Fatalf("clone shares factories")
	}
	if g.Snapshot().ColonyDeck[0].Name == cp.Snapshot().ColonyDeck[0].Name && len(g.Snapshot().ColonyDeck) == len(cp.Snapshot().ColonyDeck) {
		t.Fatalf("clone shares the colony deck")
	}
}

func TestDebugHelpers(t *testing.T) {
	g := newStartedGame(t, 6, domain.SpeciesCaylion, domain.SpeciesEni, domain.SpeciesYengii)
	p := mustPlayer(t, g, "p1")
	wantKind(t, g.DebugAddItem("p1", domain.ItemHypertech, -1), domain.KindResource)
	if err := g.DebugAddItem("p1", domain.ItemHypertech, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if p.Amount(domain.ItemHypertech) != 2 {
		t.Fatalf("hypertech = %d", p.Amount(domain.ItemHypertech))
	}
	for i := 0; ; i++ {
		_, err := g.DebugDrawResearch("p1")
		if err != nil {
			wantKind(t, err, domain.KindResource)
			break
		}
		if i > 20 {
			t.Fatalf("research deck never ran out")
		}
	}
	wantKind(t, g.DebugAddItem("nobody", domain.ItemFood, 1), domain.KindIdentity)
}
