package engine

import (
	"fmt"
	"sort"

	"tradecore/internal/catalog"
	"tradecore/pkg/domain"
)

// Snapshot exports the full game state. The result shares nothing with the
// game.
func (g *Game) Snapshot() domain.GameSnapshot {
	s := domain.GameSnapshot{
		RoomName:           g.roomName,
		CurrentRound:       g.round,
		EndRound:           g.endRound,
		Stage:              g.stage,
		ColonyBidCards:     exportTrack(g.colonyCards),
		ResearchBidCards:   exportTrack(g.researchCards),
		ColonyQueue:        append([]domain.QueueEntry{}, g.colonyQueue...),
		ResearchQueue:      append([]domain.QueueEntry{}, g.researchQueue...),
		DiscardQueue:       append([]string{}, g.discardQueue...),
		Proposals:          map[string][]domain.ProposalSnapshot{},
		ProposalSeq:        g.proposalSeq,
		TechSpreadSchedule: map[int][]string{},
		TechSpreadDelay:    g.techSpreadDelay,
		ResearchDeck:       g.decks.Research.Cards(),
		ColonyDeck:         g.decks.Colony.Cards(),
		Standings:          g.Standings(),
	}
	if cur, ok := g.CurrentPick(); ok {
		s.CurrentPick = cur
	}
	if id, ok := g.CurrentDiscardPlayer(); ok {
		s.CurrentDiscardColonyPlayer = id
	}
	for _, p := range g.players {
		s.Players = append(s.Players, exportPlayer(p))
	}
	for from, list := range g.proposals {
		for _, tp := range list {
			s.Proposals[from] = append(s.Proposals[from], domain.ProposalSnapshot{
				ID:      tp.ID,
				From:    tp.From,
				To:      append([]string{}, tp.To...),
				Send:    tp.Send.Clone(),
				Receive: tp.Receive.Clone(),
				Message: tp.Message,
			})
		}
	}
	for round, techs := range g.techSpread {
		s.TechSpreadSchedule[round] = append([]string(nil), techs...)
	}
	return s
}

func exportTrack(track []bidSlot) []domain.BidSlot {
	out := make([]domain.BidSlot, len(track))
	for i, slot := range track {
		out[i] = domain.BidSlot{Price: slot.price, Item: slot.item.Clone()}
	}
	return out
}

func exportPlayer(p *Player) domain.PlayerSnapshot {
	factories := make(map[string]*domain.Factory, len(p.factories))
	for name, f := range p.factories {
		factories[name] = f.Clone()
	}
	return domain.PlayerSnapshot{
		UserID:            p.ID,
		Species:           p.Species,
		DisplayName:       p.DisplayName,
		Storage:           p.storage.Clone(),
		PendingProduction: p.pending.Clone(),
		Factories:         factories,
		MaxColony:         p.traits.MaxColony,
		TieBreaker:        p.traits.TieBreaker,
		InitColony:        p.traits.InitColony,
		InitResearch:      p.traits.InitResearch,
		Agreed:            p.agreed,
		ColonyBid:         p.colonyBid,
		ResearchBid:       p.researchBid,
		SplitColonyBid:    p.splitColonyBid,
		Tech:              append([]string{}, p.tech...),
		InventedTech:      append([]string{}, p.invented...),
		Score:             p.score,
		ItemValue:         p.itemValue,
	}
}

// Restore rebuilds a game from a snapshot taken by Snapshot. Species traits
// come from the trait table, with the per-player values stored in the
// snapshot taking precedence.
func Restore(lib *catalog.Library, s domain.GameSnapshot) (*Game, error) {
	if !s.Stage.GameStage() {
		return nil, fmt.Errorf("restore game: unknown stage %q", s.Stage)
	}
	g := &Game{
		lib:             lib,
		roomName:        s.RoomName,
		round:           s.CurrentRound,
		endRound:        s.EndRound,
		stage:           s.Stage,
		colonyCards:     importTrack(s.ColonyBidCards),
		researchCards:   importTrack(s.ResearchBidCards),
		colonyQueue:     append([]domain.QueueEntry(nil), s.ColonyQueue...),
		researchQueue:   append([]domain.QueueEntry(nil), s.ResearchQueue...),
		discardQueue:    append([]string(nil), s.DiscardQueue...),
		techSpread:      map[int][]string{},
		techSpreadDelay: s.TechSpreadDelay,
		proposals:       map[string][]*TradeProposal{},
		proposalSeq:     s.ProposalSeq,
		standings:       append([]domain.Standing(nil), s.Standings...),
		decks: catalog.Decks{
			Research: catalog.NewDeck(cloneFactories(s.ResearchDeck)),
			Colony:   catalog.NewDeck(cloneFactories(s.ColonyDeck)),
		},
	}
	if g.endRound <= 0 {
		g.endRound = DefaultEndRound
	}
	for _, ps := range s.Players {
		p, err := importPlayer(ps)
		if err != nil {
			return nil, err
		}
		if _, dup := g.Player(p.ID); dup {
			return nil, fmt.Errorf("restore game: duplicate player %q", p.ID)
		}
		g.players = append(g.players, p)
	}
	for _, entry := range append(append([]domain.QueueEntry(nil), s.ColonyQueue...), s.ResearchQueue...) {
		if _, ok := g.Player(entry.Player); !ok {
			return nil, fmt.Errorf("restore game: queue names unknown player %q", entry.Player)
		}
	}
	senders := make([]string, 0, len(s.Proposals))
	for from := range s.Proposals {
		senders = append(senders, from)
	}
	sort.Strings(senders)
	for _, from := range senders {
		for _, ps := range s.Proposals[from] {
			if ps.ID > g.proposalSeq {
				g.proposalSeq = ps.ID
			}
			g.proposals[from] = append(g.proposals[from], &TradeProposal{
				ID:      ps.ID,
				From:    ps.From,
				To:      append([]string(nil), ps.To...),
				Send:    ps.Send.Clone(),
				Receive: ps.Receive.Clone(),
				Message: ps.Message,
			})
		}
	}
	for round, techs := range s.TechSpreadSchedule {
		g.techSpread[round] = append([]string(nil), techs...)
	}
	return g, nil
}

func importTrack(slots []domain.BidSlot) []bidSlot {
	if slots == nil {
		return nil
	}
	out := make([]bidSlot, len(slots))
	for i, slot := range slots {
		out[i] = bidSlot{price: slot.Price, item: slot.Item.Clone()}
	}
	return out
}

func importPlayer(ps domain.PlayerSnapshot) (*Player, error) {
	traits, ok := domain.Traits(ps.Species)
	if !ok {
		return nil, fmt.Errorf("restore game: player %q has unknown species %q", ps.UserID, ps.Species)
	}
	traits.MaxColony = ps.MaxColony
	traits.TieBreaker = ps.TieBreaker
	traits.InitColony = ps.InitColony
	traits.InitResearch = ps.InitResearch
	p := newPlayer(ps.UserID, ps.Species, ps.DisplayName, traits)
	for name, f := range ps.Factories {
		if f == nil {
			return nil, fmt.Errorf("restore game: player %q factory %q is empty", ps.UserID, name)
		}
		cp := f.Clone()
		cp.Name = name
		p.factories[name] = cp
	}
	p.AddItems(ps.Storage)
	p.pending = ps.PendingProduction.Clone()
	p.agreed = ps.Agreed
	p.colonyBid = ps.ColonyBid
	p.researchBid = ps.ResearchBid
	p.splitColonyBid = ps.SplitColonyBid
	p.tech = append([]string(nil), ps.Tech...)
	p.invented = append([]string(nil), ps.InventedTech...)
	return p, nil
}

func cloneFactories(in []*domain.Factory) []*domain.Factory {
	out := make([]*domain.Factory, 0, len(in))
	for _, f := range in {
		if f != nil {
			out = append(out, f.Clone())
		}
	}
	return out
}

// Clone returns an independent copy of the game sharing only the catalog.
func (g *Game) Clone() *Game {
	cp := *g
	cp.players = make([]*Player, len(g.players))
	for i, p := range g.players {
		cp.players[i] = p.clone()
	}
	cp.colonyCards = importTrack(exportTrack(g.colonyCards))
	cp.researchCards = importTrack(exportTrack(g.researchCards))
	cp.colonyQueue = append([]domain.QueueEntry(nil), g.colonyQueue...)
	cp.researchQueue = append([]domain.QueueEntry(nil), g.researchQueue...)
	cp.discardQueue = append([]string(nil), g.discardQueue...)
	cp.decks = catalog.Decks{Research: g.decks.Research.Clone(), Colony: g.decks.Colony.Clone()}
	cp.techSpread = make(map[int][]string, len(g.techSpread))
	for round, techs := range g.techSpread {
		cp.techSpread[round] = append([]string(nil), techs...)
	}
	cp.proposals = make(map[string][]*TradeProposal, len(g.proposals))
	for from, list := range g.proposals {
		for _, tp := range list {
			c := *tp
			c.To = append([]string(nil), tp.To...)
			c.Send = tp.Send.Clone()
			c.Receive = tp.Receive.Clone()
			cp.proposals[from] = append(cp.proposals[from], &c)
		}
	}
	cp.standings = append([]domain.Standing(nil), g.standings...)
	return &cp
}

func (p *Player) clone() *Player {
	cp := *p
	cp.storage = p.storage.Clone()
	cp.pending = p.pending.Clone()
	cp.factories = make(map[string]*domain.Factory, len(p.factories))
	for name, f := range p.factories {
		cp.factories[name] = f.Clone()
	}
	cp.tech = append([]string(nil), p.tech...)
	cp.invented = append([]string(nil), p.invented...)
	return &cp
}
