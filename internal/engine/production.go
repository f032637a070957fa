package engine

import (
	"fmt"
	"strings"

	"tradecore/pkg/domain"
)

// ProduceExtra carries the choices some converters need. CostType selects
// among alternative input bundles. OutputType and InputCombination resolve
// the wildcard slot of an interest factory.
type ProduceExtra struct {
	CostType         int          `json:"cost_type"`
	OutputType       string       `json:"output_type,omitempty"`
	InputCombination domain.Items `json:"input_combination,omitempty"`
}

// Produce runs one converter of a factory held by playerID. Every check runs
// before the first mutation, so a failure leaves the game untouched.
func (g *Game) Produce(playerID, factoryName string, converterIndex int, extra ProduceExtra) error {
	p, err := g.player(playerID)
	if err != nil {
		return err
	}
	f, err := g.heldFactory(p, factoryName)
	if err != nil {
		return err
	}
	if converterIndex < 0 || converterIndex >= len(f.Converters) {
		return domain.Errorf(domain.KindIdentity, "%s has no converter %d", f.Name, converterIndex)
	}
	conv := &f.Converters[converterIndex]
	if conv.Used {
		return domain.Errorf(domain.KindSequencing, "%s converter %d was already used", f.Name, converterIndex)
	}
	if conv.Stage != g.stage {
		return domain.Errorf(domain.KindStage, "%s converter %d runs in %q, game is in %q", f.Name, converterIndex, conv.Stage, g.stage)
	}
	if f.MustLend() && f.Owner == p.Species {
		return domain.Errorf(domain.KindLegality, "%s must be lent out before it can run", f.Name)
	}

	var (
		cost, output domain.Items
		tech         string
		unlock       *domain.Factory
	)
	switch {
	case f.Interest():
		cost, output, err = resolveInterest(*conv, extra)
		if err != nil {
			return err
		}
	default:
		cost, err = conv.Cost(extra.CostType)
		if err != nil {
			return err
		}
		output = conv.Outputs.Clone()
	}

	switch feat := f.Feature.(type) {
	case *domain.ResearchFeature:
		// A tech that already reached the player still pays out the bonus;
		// developTech only records the invention.
		tech = feat.Tech
		if output == nil {
			output = domain.Items{}
		}
		output[domain.ItemScore] += g.shareBonus(p)
	case *domain.MetaFeature:
		target, ok := g.lib.Factory(f.Owner, feat.UnlockFactory)
		if !ok {
			return domain.Errorf(domain.KindIdentity, "%s unlocks unknown factory %q", f.Name, feat.UnlockFactory)
		}
		if p.HasFactory(target.Name) {
			return domain.Errorf(domain.KindLegality, "%s already holds %s", p.ID, target.Name)
		}
		unlock = target
	}

	if err := checkBundle(cost); err != nil {
		return err
	}
	if !p.CanAfford(cost) {
		return domain.Errorf(domain.KindResource, "%s cannot afford %s", p.ID, describe(cost))
	}

	if err := p.RemoveItems(cost); err != nil {
		return err
	}
	if conv.Stage == domain.ConverterProduction {
		p.stageOutput(output.Compact())
	} else {
		p.AddItems(output)
	}

	if f.DoubleRun() {
		f.RunCount++
		if f.RunCount >= 2 {
			conv.Used = true
		}
	} else {
		conv.Used = true
	}

	if tech != "" {
		g.developTech(p, tech)
	}
	if unlock != nil {
		delete(p.factories, f.Name)
		p.factories[unlock.Name] = unlock
	}
	return nil
}

// resolveInterest validates the wildcard slot of an interest converter and
// returns the bundle charged and the bundle produced.
func resolveInterest(conv domain.Converter, extra ProduceExtra) (domain.Items, domain.Items, error) {
	in := conv.Input()
	slot, wild, size := "", "", 0
	switch {
	case in[domain.ItemArbitrarySmall] > 0:
		slot, wild, size = domain.ItemArbitrarySmall, domain.ItemWildSmall, in[domain.ItemArbitrarySmall]
		if !domain.IsSmall(extra.OutputType) {
			return nil, nil, domain.Errorf(domain.KindLegality, "output type %q is not a small resource", extra.OutputType)
		}
	case in[domain.ItemArbitraryBig] > 0:
		slot, wild, size = domain.ItemArbitraryBig, domain.ItemWildBig, in[domain.ItemArbitraryBig]
		if !domain.IsBig(extra.OutputType) {
			return nil, nil, domain.Errorf(domain.KindLegality, "output type %q is not a big resource", extra.OutputType)
		}
	default:
		return nil, nil, domain.NewError(domain.KindLegality, "converter has no wildcard slot")
	}

	sum := 0
	for item, qty := range extra.InputCombination {
		if item != wild && item != extra.OutputType {
			return nil, nil, domain.Errorf(domain.KindLegality, "%s cannot fill a %s slot paying out %s", item, slot, extra.OutputType)
		}
		if qty < 0 {
			return nil, nil, domain.Errorf(domain.KindLegality, "negative quantity %d of %s", qty, item)
		}
		sum += qty
	}
	if sum != size {
		return nil, nil, domain.Errorf(domain.KindLegality, "combination holds %d resources, slot needs %d", sum, size)
	}

	cost := extra.InputCombination.Clone()
	for item, qty := range in {
		if item != slot {
			cost[item] += qty
		}
	}
	output := extra.InputCombination.Clone()
	output[extra.OutputType] += conv.Outputs[slot] - size
	for item, qty := range conv.Outputs {
		if item != slot {
			output[item] += qty
		}
	}
	return cost.Compact(), output.Compact(), nil
}

func describe(items domain.Items) string {
	if len(items) == 0 {
		return "nothing"
	}
	parts := make([]string, 0, len(items))
	for _, k := range items.Keys() {
		parts = append(parts, fmt.Sprintf("%d %s", items[k], k))
	}
	return strings.Join(parts, ", ")
}
