package engine

import (
	"sort"

	"tradecore/pkg/domain"
)

// TradeProposal is a stored, addressed offer. It is never mutated after
// creation; accepting replays it as a trade.
type TradeProposal struct {
	ID      int
	From    string
	To      []string
	Send    domain.Bundle
	Receive domain.Bundle
	Message string
}

func (tp *TradeProposal) addressedTo(playerID string, sender string) bool {
	if len(tp.To) == 0 {
		return playerID != sender
	}
	return containsString(tp.To, playerID)
}

// giveManyThings validates every leg of a transfer and returns the actions
// that apply it. Nothing is mutated here.
func (g *Game) giveManyThings(sender, receiver *Player, bundle domain.Bundle) ([]func(), error) {
	var actions []func()

	items := bundle.Items.Compact()
	if err := checkBundle(items); err != nil {
		return nil, err
	}
	if !sender.CanAfford(items) {
		return nil, domain.Errorf(domain.KindResource, "%s cannot afford %s", sender.ID, describe(items))
	}
	if len(items) > 0 {
		actions = append(actions, func() {
			_ = sender.RemoveItems(items)
			receiver.ReceiveItems(items)
		})
	}

	seen := map[string]bool{}
	for _, name := range bundle.Factories {
		if seen[name] {
			return nil, domain.Errorf(domain.KindLegality, "factory %s listed twice", name)
		}
		seen[name] = true
		if !sender.HasFactory(name) {
			return nil, unknown("factory", name, sender.FactoryNames())
		}
		if receiver.HasFactory(name) {
			return nil, domain.Errorf(domain.KindLegality, "%s already holds %s", receiver.ID, name)
		}
		name := name
		actions = append(actions, func() {
			f := sender.factories[name]
			delete(sender.factories, name)
			receiver.factories[name] = f
		})
	}

	seenTech := map[string]bool{}
	for _, tech := range bundle.Techs {
		if seenTech[tech] {
			return nil, domain.Errorf(domain.KindLegality, "technology %s listed twice", tech)
		}
		seenTech[tech] = true
		if !sender.HasInvented(tech) {
			return nil, domain.Errorf(domain.KindLegality, "%s did not invent %s", sender.ID, tech)
		}
		if receiver.HasTech(tech) {
			return nil, domain.Errorf(domain.KindLegality, "%s already holds %s", receiver.ID, tech)
		}
		tech := tech
		actions = append(actions, func() { g.grantTech(receiver, tech) })
	}
	return actions, nil
}

func (g *Game) counterparties(fromID, toID string) (*Player, *Player, error) {
	from, err := g.player(fromID)
	if err != nil {
		return nil, nil, err
	}
	to, err := g.player(toID)
	if err != nil {
		return nil, nil, err
	}
	if from == to {
		return nil, nil, domain.Errorf(domain.KindIdentity, "%s cannot trade with itself", from.ID)
	}
	return from, to, nil
}

// Gift transfers bundle from one player to another, all or nothing.
func (g *Game) Gift(fromID, toID string, bundle domain.Bundle) error {
	if err := g.requireStage(domain.StageTrading); err != nil {
		return err
	}
	from, to, err := g.counterparties(fromID, toID)
	if err != nil {
		return err
	}
	actions, err := g.giveManyThings(from, to, bundle)
	if err != nil {
		return err
	}
	for _, apply := range actions {
		apply()
	}
	return nil
}

// Trade exchanges send (a to b) and receive (b to a). Both directions are
// validated before either is applied.
func (g *Game) Trade(aID, bID string, send, receive domain.Bundle) error {
	if err := g.requireStage(domain.StageTrading); err != nil {
		return err
	}
	a, b, err := g.counterparties(aID, bID)
	if err != nil {
		return err
	}
	there, err := g.giveManyThings(a, b, send)
	if err != nil {
		return err
	}
	back, err := g.giveManyThings(b, a, receive)
	if err != nil {
		return err
	}
	for _, apply := range there {
		apply()
	}
	for _, apply := range back {
		apply()
	}
	return nil
}

// ProposeTrade stores an offer from fromID to the players in to (every other
// player when to is empty) and returns its id.
func (g *Game) ProposeTrade(fromID string, to []string, send, receive domain.Bundle, message string) (int, error) {
	if err := g.requireStage(domain.StageTrading); err != nil {
		return 0, err
	}
	from, err := g.player(fromID)
	if err != nil {
		return 0, err
	}
	for _, id := range to {
		if id == from.ID {
			return 0, domain.Errorf(domain.KindIdentity, "%s cannot propose a trade to itself", from.ID)
		}
		if _, err := g.player(id); err != nil {
			return 0, err
		}
	}
	if err := checkBundle(send.Items); err != nil {
		return 0, err
	}
	if err := checkBundle(receive.Items); err != nil {
		return 0, err
	}
	g.proposalSeq++
	tp := &TradeProposal{
		ID:      g.proposalSeq,
		From:    from.ID,
		To:      append([]string(nil), to...),
		Send:    send.Clone(),
		Receive: receive.Clone(),
		Message: message,
	}
	g.proposals[from.ID] = append(g.proposals[from.ID], tp)
	return tp.ID, nil
}

func (g *Game) findProposal(id int) (*TradeProposal, int, error) {
	for _, list := range g.proposals {
		for i, tp := range list {
			if tp.ID == id {
				return tp, i, nil
			}
		}
	}
	return nil, 0, domain.Errorf(domain.KindIdentity, "unknown trade proposal %d", id)
}

func (g *Game) removeProposal(tp *TradeProposal, index int) {
	list := g.proposals[tp.From]
	list = append(list[:index:index], list[index+1:]...)
	if len(list) == 0 {
		delete(g.proposals, tp.From)
		return
	}
	g.proposals[tp.From] = list
}

// DeclineTradeProposal discards a proposal. The sender may withdraw it and
// any addressed player may decline it.
func (g *Game) DeclineTradeProposal(playerID string, proposalID int) error {
	p, err := g.player(playerID)
	if err != nil {
		return err
	}
	tp, idx, err := g.findProposal(proposalID)
	if err != nil {
		return err
	}
	if p.ID != tp.From && !tp.addressedTo(p.ID, tp.From) {
		return domain.Errorf(domain.KindIdentity, "proposal %d is not addressed to %s", proposalID, p.ID)
	}
	g.removeProposal(tp, idx)
	return nil
}

// AcceptTradeProposal replays the proposal as a trade between its sender and
// the acceptor. The proposal is consumed only when the trade succeeds.
func (g *Game) AcceptTradeProposal(playerID string, proposalID int) error {
	p, err := g.player(playerID)
	if err != nil {
		return err
	}
	tp, idx, err := g.findProposal(proposalID)
	if err != nil {
		return err
	}
	if p.ID == tp.From || !tp.addressedTo(p.ID, tp.From) {
		return domain.Errorf(domain.KindIdentity, "proposal %d is not addressed to %s", proposalID, p.ID)
	}
	if err := g.Trade(tp.From, p.ID, tp.Send, tp.Receive); err != nil {
		return err
	}
	g.removeProposal(tp, idx)
	return nil
}

// Proposals returns every stored proposal ordered by id.
func (g *Game) Proposals() []TradeProposal {
	var out []TradeProposal
	for _, list := range g.proposals {
		for _, tp := range list {
			cp := *tp
			cp.To = append([]string(nil), tp.To...)
			cp.Send = tp.Send.Clone()
			cp.Receive = tp.Receive.Clone()
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
