package engine

import (
	"tradecore/pkg/domain"
)

// UpgradeColony pays the colony's upgrade cost and swaps it for its upgraded
// side. Run state and the double-run flag carry over.
func (g *Game) UpgradeColony(playerID, colonyName string) error {
	p, err := g.player(playerID)
	if err != nil {
		return err
	}
	if err := g.requireStage(domain.StageTrading); err != nil {
		return err
	}
	f, err := g.heldFactory(p, colonyName)
	if err != nil {
		return err
	}
	col, ok := f.Colony()
	if !ok {
		return domain.Errorf(domain.KindLegality, "%s is not a colony", f.Name)
	}
	if col.Upgraded {
		return domain.Errorf(domain.KindLegality, "%s is already upgraded", f.Name)
	}
	next, ok := g.lib.UpgradedColony(f.Name)
	if !ok {
		return domain.Errorf(domain.KindLegality, "%s has no upgraded side", f.Name)
	}
	if next.Name != f.Name && p.HasFactory(next.Name) {
		return domain.Errorf(domain.KindLegality, "%s already holds %s", p.ID, next.Name)
	}
	if !p.CanAfford(col.UpgradeCost) {
		return domain.Errorf(domain.KindResource, "%s cannot afford %s", p.ID, describe(col.UpgradeCost))
	}
	if err := p.RemoveItems(col.UpgradeCost); err != nil {
		return err
	}

	next.Owner = f.Owner
	next.RunCount = f.RunCount
	if up, ok := next.Colony(); ok {
		up.DoubleRun = col.DoubleRun
	}
	carryUsed(f, next)
	delete(p.factories, f.Name)
	p.factories[next.Name] = next
	return nil
}

// UpgradeNormal replaces a species factory with its upgrade, paying with the
// cost option at costType. A factory cost consumes that factory; a converter
// cost is run immediately.
func (g *Game) UpgradeNormal(playerID, factoryName string, costType int) error {
	p, err := g.player(playerID)
	if err != nil {
		return err
	}
	if err := g.requireStage(domain.StageTrading); err != nil {
		return err
	}
	f, err := g.heldFactory(p, factoryName)
	if err != nil {
		return err
	}
	n, ok := f.Normal()
	if !ok {
		return domain.Errorf(domain.KindLegality, "%s is not a species factory", f.Name)
	}
	if n.Upgraded || n.UpgradeFactory == "" {
		return domain.Errorf(domain.KindLegality, "%s cannot be upgraded", f.Name)
	}
	if costType < 0 || costType >= len(n.UpgradeCost) {
		return domain.Errorf(domain.KindLegality, "%s has no upgrade cost option %d", f.Name, costType)
	}
	next, ok := g.lib.Factory(f.Owner, n.UpgradeFactory)
	if !ok {
		return domain.Errorf(domain.KindIdentity, "%s upgrades to unknown factory %q", f.Name, n.UpgradeFactory)
	}
	if p.HasFactory(next.Name) {
		return domain.Errorf(domain.KindLegality, "%s already holds %s", p.ID, next.Name)
	}

	opt := n.UpgradeCost[costType]
	switch {
	case opt.Factory != "":
		if opt.Factory == f.Name {
			return domain.Errorf(domain.KindLegality, "%s cannot pay for its own upgrade", f.Name)
		}
		if !p.HasFactory(opt.Factory) {
			return domain.Errorf(domain.KindResource, "%s must hold %s to upgrade %s", p.ID, opt.Factory, f.Name)
		}
		delete(p.factories, opt.Factory)
	case opt.Converter != nil:
		in := opt.Converter.Input()
		if !p.CanAfford(in) {
			return domain.Errorf(domain.KindResource, "%s cannot afford %s", p.ID, describe(in))
		}
		if err := p.RemoveItems(in); err != nil {
			return err
		}
		p.AddItems(opt.Converter.Outputs)
	default:
		return domain.Errorf(domain.KindLegality, "%s upgrade option %d is empty", f.Name, costType)
	}

	carryUsed(f, next)
	delete(p.factories, f.Name)
	p.factories[next.Name] = next
	return nil
}

// carryUsed copies the used flags converter by converter so an upgrade does
// not grant an extra run in the same window.
func carryUsed(from, to *domain.Factory) {
	for i := range to.Converters {
		if i < len(from.Converters) {
			to.Converters[i].Used = from.Converters[i].Used
		}
	}
}

// ExchangeColony trades a held colony for one unit of its climate resource.
func (g *Game) ExchangeColony(playerID, colonyName string) error {
	p, err := g.player(playerID)
	if err != nil {
		return err
	}
	if err := g.requireStage(domain.StageTrading); err != nil {
		return err
	}
	f, err := g.heldFactory(p, colonyName)
	if err != nil {
		return err
	}
	col, ok := f.Colony()
	if !ok {
		return domain.Errorf(domain.KindLegality, "%s is not a colony", f.Name)
	}
	delete(p.factories, f.Name)
	p.modify(col.Climate, 1)
	return nil
}

// arbitraryFor maps a resource to the arbitrary token it may be exchanged
// into.
func arbitraryFor(item string) (string, bool) {
	switch {
	case domain.IsSmall(item) || item == domain.ItemWildSmall:
		return domain.ItemArbitrarySmall, true
	case domain.IsBig(item) || item == domain.ItemWildBig:
		return domain.ItemArbitraryBig, true
	case domain.IsClimate(item):
		return domain.ItemArbitraryWorld, true
	default:
		return "", false
	}
}

// ExchangeArbitrary converts specific resources into the arbitrary token of
// their class, one for one.
func (g *Game) ExchangeArbitrary(playerID string, items domain.Items) error {
	p, err := g.player(playerID)
	if err != nil {
		return err
	}
	if err := g.requireStage(domain.StageTrading); err != nil {
		return err
	}
	if err := checkBundle(items); err != nil {
		return err
	}
	gain := domain.Items{}
	for item, qty := range items {
		target, ok := arbitraryFor(item)
		if !ok {
			return domain.Errorf(domain.KindLegality, "%s has no arbitrary equivalent", item)
		}
		gain[target] += qty
	}
	if err := p.RemoveItems(items); err != nil {
		return err
	}
	p.AddItems(gain)
	return nil
}

// wildFor maps a requested resource to the wild token that pays for it.
func wildFor(item string) (string, bool) {
	switch {
	case domain.IsSmall(item) || item == domain.ItemArbitrarySmall:
		return domain.ItemWildSmall, true
	case domain.IsBig(item) || item == domain.ItemArbitraryBig:
		return domain.ItemWildBig, true
	default:
		return "", false
	}
}

// ExchangeWild spends wild tokens to obtain the requested resources.
func (g *Game) ExchangeWild(playerID string, want domain.Items) error {
	p, err := g.player(playerID)
	if err != nil {
		return err
	}
	if err := g.requireStage(domain.StageTrading); err != nil {
		return err
	}
	if err := checkBundle(want); err != nil {
		return err
	}
	cost := domain.Items{}
	for item, qty := range want {
		wild, ok := wildFor(item)
		if !ok {
			return domain.Errorf(domain.KindLegality, "%s cannot be paid with wild resources", item)
		}
		cost[wild] += qty
	}
	if err := p.RemoveItems(cost); err != nil {
		return err
	}
	p.AddItems(want)
	return nil
}

// CurrentDiscardPlayer returns the player who owes a discard next.
func (g *Game) CurrentDiscardPlayer() (string, bool) {
	if g.stage != domain.StageDiscardColony || len(g.discardQueue) == 0 {
		return "", false
	}
	return g.discardQueue[0], true
}

// DiscardColonies removes exactly enough colonies to bring the player at the
// head of the discard queue back to the species cap.
func (g *Game) DiscardColonies(playerID string, colonies []string) error {
	p, err := g.player(playerID)
	if err != nil {
		return err
	}
	if err := g.requireStage(domain.StageDiscardColony); err != nil {
		return err
	}
	head, ok := g.CurrentDiscardPlayer()
	if !ok || head != p.ID {
		return domain.Errorf(domain.KindSequencing, "it is not %s's turn to discard", p.ID)
	}
	owed := p.CountKind(domain.FeatureColony) - p.traits.MaxColony
	if len(colonies) != owed {
		return domain.Errorf(domain.KindLegality, "%s must discard exactly %d colonies, got %d", p.ID, owed, len(colonies))
	}
	seen := map[string]bool{}
	for _, name := range colonies {
		if seen[name] {
			return domain.Errorf(domain.KindLegality, "%s listed twice", name)
		}
		seen[name] = true
		f, err := g.heldFactory(p, name)
		if err != nil {
			return err
		}
		if f.Kind() != domain.FeatureColony {
			return domain.Errorf(domain.KindLegality, "%s is not a colony", name)
		}
	}
	for _, name := range colonies {
		delete(p.factories, name)
	}
	g.discardQueue = g.discardQueue[1:]
	if len(g.discardQueue) == 0 {
		g.advance()
	}
	return nil
}
