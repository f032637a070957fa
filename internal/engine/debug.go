package engine

import "tradecore/pkg/domain"

// Debug helpers bypass the stage cycle. They exist for tests, simulations
// and table operators fixing a game by hand.

// DebugDrawResearch hands the player the next research card.
func (g *Game) DebugDrawResearch(playerID string) (string, error) {
	p, err := g.player(playerID)
	if err != nil {
		return "", err
	}
	card, ok := g.decks.Research.Draw()
	if !ok {
		return "", domain.NewError(domain.KindResource, "research deck is exhausted")
	}
	if err := g.addResearch(p, card); err != nil {
		return "", err
	}
	return card.Name, nil
}

// DebugDrawColony hands the player the next colony card.
func (g *Game) DebugDrawColony(playerID string) (string, error) {
	p, err := g.player(playerID)
	if err != nil {
		return "", err
	}
	card, ok := g.decks.Colony.Draw()
	if !ok {
		return "", domain.NewError(domain.KindResource, "colony deck is exhausted")
	}
	if err := p.addColony(card); err != nil {
		return "", err
	}
	return card.Name, nil
}

// DebugAddItem adjusts one resource by qty, which may be negative as long as
// the result is not.
func (g *Game) DebugAddItem(playerID, item string, qty int) error {
	p, err := g.player(playerID)
	if err != nil {
		return err
	}
	if item == "" {
		return domain.NewError(domain.KindIdentity, "item name is required")
	}
	if p.storage[item]+qty < 0 {
		return domain.Errorf(domain.KindResource, "%s has %d %s, cannot remove %d", p.ID, p.storage[item], item, -qty)
	}
	p.modify(item, qty)
	return nil
}
