package engine

import (
	"sort"

	"tradecore/pkg/domain"
)

// maxTransitions bounds one cascade of stage changes. A full lap of the cycle
// takes six steps, so hitting the bound means the machine is not settling.
const maxTransitions = 8

// advance runs the transition function until it settles on a stage that
// waits for player input.
func (g *Game) advance() {
	for i := 0; i < maxTransitions; i++ {
		if g.step() {
			return
		}
	}
}

// step performs exactly one transition out of the current stage. It reports
// false when the new stage has nothing to wait for and must be left too.
func (g *Game) step() bool {
	switch g.stage {
	case domain.StageTrading:
		g.resetAgreements()
		g.proposals = map[string][]*TradeProposal{}
		g.discardQueue = g.overColonyCap()
		if len(g.discardQueue) == 0 {
			g.enterProduction()
			return true
		}
		g.stage = domain.StageDiscardColony
		return true
	case domain.StageDiscardColony:
		g.discardQueue = nil
		g.enterProduction()
		return true
	case domain.StageProduction:
		g.resetAgreements()
		for _, p := range g.players {
			p.materialize()
		}
		if g.round >= g.endRound {
			g.stage = domain.StageGameEnd
			g.standings = g.computeStandings()
			return true
		}
		g.stage = domain.StageBid
		return true
	case domain.StageBid:
		g.resetAgreements()
		g.computeQueues()
		g.stage = domain.StagePick
		return len(g.colonyQueue) > 0 || len(g.researchQueue) > 0
	case domain.StagePick:
		g.colonyQueue, g.researchQueue = nil, nil
		g.stage = domain.StageEnd
		return false
	case domain.StageEnd:
		g.endOfRound()
		g.stage = domain.StageTrading
		return true
	default:
		return true
	}
}

func (g *Game) enterProduction() {
	for _, p := range g.players {
		p.resetFactories()
	}
	g.resetAgreements()
	g.stage = domain.StageProduction
}

// overColonyCap lists, in seating order, the players holding more colonies
// than their species allows.
func (g *Game) overColonyCap() []string {
	var queue []string
	for _, p := range g.players {
		if p.CountKind(domain.FeatureColony) > p.traits.MaxColony {
			queue = append(queue, p.ID)
		}
	}
	return queue
}

func (g *Game) endOfRound() {
	g.supplyBidItems()
	for _, p := range g.players {
		p.resetBids()
	}
	g.spreadTech(g.round)
	g.returnLentFactories()
	g.resetAgreements()
	g.round++
}

// returnLentFactories moves every factory held outside its owner's hands
// back to the owner. Deck cards have no owner and stay where they are.
func (g *Game) returnLentFactories() {
	for _, holder := range g.players {
		for _, name := range holder.FactoryNames() {
			f := holder.factories[name]
			if f.Owner == "" || f.Owner == domain.OwnerNone || f.Owner == holder.Species {
				continue
			}
			owner := g.playerBySpecies(f.Owner)
			if owner == nil || owner.HasFactory(name) {
				continue
			}
			delete(holder.factories, name)
			owner.factories[name] = f
		}
	}
}

func (g *Game) computeStandings() []domain.Standing {
	ranked := append([]*Player(nil), g.players...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].itemValue > ranked[j].itemValue
	})
	out := make([]domain.Standing, len(ranked))
	for i, p := range ranked {
		out[i] = domain.Standing{Rank: i + 1, Player: p.ID, Species: p.Species, Score: p.score, ItemValue: p.itemValue}
	}
	return out
}
