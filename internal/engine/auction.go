package engine

import (
	"sort"

	"tradecore/pkg/domain"
)

// bidBoards holds the slot prices for each table size, cheapest first. The
// same board is used for both tracks.
var bidBoards = map[int][]int{
	3:  {1, 2, 3},
	4:  {1, 1, 2, 3},
	5:  {1, 1, 2, 3, 3},
	6:  {1, 1, 1, 2, 3, 3},
	7:  {1, 1, 1, 2, 2, 3, 4},
	8:  {1, 1, 1, 1, 2, 2, 3, 4},
	9:  {1, 1, 1, 1, 2, 2, 3, 4, 4},
	10: {1, 1, 1, 1, 1, 2, 2, 3, 4, 4},
}

func boardFor(players int) []int {
	if players > MaxPlayers {
		players = MaxPlayers
	}
	if players < 3 {
		players = 3
	}
	return bidBoards[players]
}

func (g *Game) initBidTracks() {
	prices := boardFor(g.playerNum())
	g.colonyCards = make([]bidSlot, len(prices))
	g.researchCards = make([]bidSlot, len(prices))
	for i, price := range prices {
		g.colonyCards[i].price = price
		g.researchCards[i].price = price
	}
}

// supplyBidItems slides unsold cards toward the cheap end of each track and
// refills the remaining slots from the decks. Research cards that went unsold
// at the lowest price leave the game.
func (g *Game) supplyBidItems() {
	g.colonyCards = resupply(g.colonyCards, g.decks.Colony.Draw, false)
	g.researchCards = resupply(g.researchCards, g.decks.Research.Draw, true)
}

func resupply(track []bidSlot, draw func() (*domain.Factory, bool), dropCheapest bool) []bidSlot {
	var kept []*domain.Factory
	for _, slot := range track {
		if slot.item == nil {
			continue
		}
		if dropCheapest && slot.price <= 1 {
			continue
		}
		kept = append(kept, slot.item)
	}
	out := make([]bidSlot, len(track))
	for i, slot := range track {
		out[i].price = slot.price
		if i < len(kept) {
			out[i].item = kept[i]
			continue
		}
		if card, ok := draw(); ok {
			out[i].item = card
		}
	}
	return out
}

// SubmitBid records both sealed bids and marks the player as agreed.
func (g *Game) SubmitBid(playerID string, colonyBid, researchBid int) error {
	p, err := g.player(playerID)
	if err != nil {
		return err
	}
	if err := g.requireStage(domain.StageBid); err != nil {
		return err
	}
	if colonyBid < 0 || researchBid < 0 {
		return domain.Errorf(domain.KindLegality, "bids must not be negative (colony %d, research %d)", colonyBid, researchBid)
	}
	p.colonyBid = colonyBid
	p.researchBid = researchBid
	p.agreed = true
	if g.allAgreed() {
		g.advance()
	}
	return nil
}

// ElectSplitBid splits the player's colony bid into two queue entries. The
// election is available once per round to species with the split-bid trait
// and cannot be withdrawn.
func (g *Game) ElectSplitBid(playerID string) error {
	p, err := g.player(playerID)
	if err != nil {
		return err
	}
	if err := g.requireStage(domain.StageBid); err != nil {
		return err
	}
	if !p.traits.SplitBid {
		return domain.Errorf(domain.KindLegality, "species %s cannot split its colony bid", p.Species)
	}
	if p.splitColonyBid {
		return domain.Errorf(domain.KindSequencing, "%s already split its colony bid", p.ID)
	}
	p.splitColonyBid = true
	return nil
}

type queued struct {
	entry      domain.QueueEntry
	effective  float64
	held       int
	tieBreaker int
}

func sortQueue(items []queued) []domain.QueueEntry {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.effective != b.effective {
			return a.effective > b.effective
		}
		if a.held != b.held {
			return a.held < b.held
		}
		return a.tieBreaker > b.tieBreaker
	})
	out := make([]domain.QueueEntry, len(items))
	for i, it := range items {
		out[i] = it.entry
	}
	return out
}

// computeQueues orders every player on both tracks by
// (-effective bid, held factories of that kind, -tie breaker).
func (g *Game) computeQueues() {
	var colony, research []queued
	for _, p := range g.players {
		heldColonies := p.CountKind(domain.FeatureColony)
		if p.splitColonyBid {
			first := p.colonyBid - p.colonyBid/2
			second := p.colonyBid / 2
			for part, bid := range []int{first, second} {
				colony = append(colony, queued{
					entry:      domain.QueueEntry{Player: p.ID, Part: part + 1, Bid: bid},
					effective:  p.traits.EffectiveColonyBid(bid),
					held:       heldColonies,
					tieBreaker: p.traits.TieBreaker,
				})
			}
		} else {
			colony = append(colony, queued{
				entry:      domain.QueueEntry{Player: p.ID, Bid: p.colonyBid},
				effective:  p.traits.EffectiveColonyBid(p.colonyBid),
				held:       heldColonies,
				tieBreaker: p.traits.TieBreaker,
			})
		}
		research = append(research, queued{
			entry:      domain.QueueEntry{Player: p.ID, Bid: p.researchBid},
			effective:  float64(p.researchBid),
			held:       p.CountKind(domain.FeatureResearch),
			tieBreaker: p.traits.TieBreaker,
		})
	}
	g.colonyQueue = sortQueue(colony)
	g.researchQueue = sortQueue(research)
}

// CurrentPick returns the queue head whose turn it is. The colony track is
// served before the research track.
func (g *Game) CurrentPick() (domain.CurrentPick, bool) {
	if g.stage != domain.StagePick {
		return domain.CurrentPick{}, false
	}
	if len(g.colonyQueue) > 0 {
		return domain.CurrentPick{Type: domain.TrackColony, Player: g.colonyQueue[0].Player}, true
	}
	if len(g.researchQueue) > 0 {
		return domain.CurrentPick{Type: domain.TrackResearch, Player: g.researchQueue[0].Player}, true
	}
	return domain.CurrentPick{}, false
}

// PassPick is the pick index meaning "take nothing".
const PassPick = -1

// SubmitPick lets the queue head take the card in slot pickID, or pass with
// PassPick. A taken card costs the full declared bid in ships. The queue
// advances by one either way.
func (g *Game) SubmitPick(playerID string, pickID int) error {
	p, err := g.player(playerID)
	if err != nil {
		return err
	}
	if err := g.requireStage(domain.StagePick); err != nil {
		return err
	}
	cur, ok := g.CurrentPick()
	if !ok {
		return domain.NewError(domain.KindSequencing, "no pick is pending")
	}
	if cur.Player != p.ID {
		return domain.Errorf(domain.KindSequencing, "it is %s's turn to pick on the %s track", cur.Player, cur.Type)
	}
	queue, track := &g.colonyQueue, g.colonyCards
	if cur.Type == domain.TrackResearch {
		queue, track = &g.researchQueue, g.researchCards
	}
	entry := (*queue)[0]

	if pickID != PassPick {
		if pickID < 0 || pickID >= len(track) {
			return domain.Errorf(domain.KindIdentity, "no %s slot %d", cur.Type, pickID)
		}
		slot := &track[pickID]
		if slot.item == nil {
			return domain.Errorf(domain.KindIdentity, "%s slot %d is empty", cur.Type, pickID)
		}
		effective := float64(entry.Bid)
		if cur.Type == domain.TrackColony {
			effective = p.traits.EffectiveColonyBid(entry.Bid)
		}
		if float64(slot.price) > effective {
			return domain.Errorf(domain.KindLegality, "%s costs %d, effective bid is %g", slot.item.Name, slot.price, effective)
		}
		if have := p.storage[domain.ItemShip]; have < entry.Bid {
			return domain.Errorf(domain.KindResource, "%s has %d ships, bid was %d", p.ID, have, entry.Bid)
		}
		if p.HasFactory(slot.item.Name) {
			return domain.Errorf(domain.KindLegality, "%s already holds %s", p.ID, slot.item.Name)
		}
		if err := p.RemoveItems(domain.Items{domain.ItemShip: entry.Bid}); err != nil {
			return err
		}
		card := slot.item
		slot.item = nil
		if cur.Type == domain.TrackColony {
			_ = p.addColony(card)
		} else {
			_ = g.addResearch(p, card)
		}
	}

	*queue = (*queue)[1:]
	if len(g.colonyQueue) == 0 && len(g.researchQueue) == 0 {
		g.advance()
	}
	return nil
}
