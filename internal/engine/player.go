package engine

import (
	"sort"

	"tradecore/pkg/domain"
)

// Player is one participant's ledger, holdings, bids and technologies.
type Player struct {
	ID          string
	Species     string
	DisplayName string

	traits    domain.SpeciesTraits
	storage   domain.Items
	pending   domain.Items
	factories map[string]*domain.Factory

	colonyBid      int
	researchBid    int
	splitColonyBid bool

	tech     []string
	invented []string
	agreed   bool

	score     int
	itemValue float64
}

func newPlayer(id, species, displayName string, traits domain.SpeciesTraits) *Player {
	return &Player{
		ID:          id,
		Species:     species,
		DisplayName: displayName,
		traits:      traits,
		storage:     domain.Items{},
		pending:     domain.Items{},
		factories:   map[string]*domain.Factory{},
	}
}

// Traits returns the species traits the player was created with.
func (p *Player) Traits() domain.SpeciesTraits { return p.traits }

// Storage returns a copy of the player's storage.
func (p *Player) Storage() domain.Items { return p.storage.Clone() }

// Pending returns a copy of production staged for the end of the window.
func (p *Player) Pending() domain.Items { return p.pending.Clone() }

// Amount returns the stored quantity of one resource.
func (p *Player) Amount(item string) int { return p.storage[item] }

// Score is the count of Score plus ScoreDonation.
func (p *Player) Score() int { return p.score }

// ItemValue is the weighted value of every non-score resource held.
func (p *Player) ItemValue() float64 { return p.itemValue }

// Agreed reports the player's agreement flag.
func (p *Player) Agreed() bool { return p.agreed }

// Bids returns the declared colony and research bids.
func (p *Player) Bids() (colony, research int) { return p.colonyBid, p.researchBid }

// SplitColonyBid reports whether the split-bid election is active.
func (p *Player) SplitColonyBid() bool { return p.splitColonyBid }

// Techs returns the technologies the player holds.
func (p *Player) Techs() []string { return append([]string(nil), p.tech...) }

// InventedTechs returns the technologies the player researched.
func (p *Player) InventedTechs() []string { return append([]string(nil), p.invented...) }

// HasTech reports whether the player holds tech.
func (p *Player) HasTech(tech string) bool { return containsString(p.tech, tech) }

// HasInvented reports whether the player researched tech.
func (p *Player) HasInvented(tech string) bool { return containsString(p.invented, tech) }

// modify is the single storage primitive. Entries reaching zero are dropped.
func (p *Player) modify(item string, qty int) {
	if qty == 0 {
		return
	}
	next := p.storage[item] + qty
	if next == 0 {
		delete(p.storage, item)
	} else {
		p.storage[item] = next
	}
	p.recalculate()
}

func (p *Player) recalculate() {
	p.score = p.storage[domain.ItemScore] + p.storage[domain.ItemScore+domain.DonationSuffix]
	p.itemValue = 0
	for item, qty := range p.storage {
		if item == domain.ItemScore || item == domain.ItemScore+domain.DonationSuffix {
			continue
		}
		p.itemValue += float64(qty) * domain.ItemValue(item)
	}
}

// CanAfford reports whether every resource in items is held in full.
func (p *Player) CanAfford(items domain.Items) bool {
	for item, qty := range items {
		if qty > 0 && p.storage[item] < qty {
			return false
		}
	}
	return true
}

func checkBundle(items domain.Items) error {
	for item, qty := range items {
		if qty < 0 {
			return domain.Errorf(domain.KindLegality, "negative quantity %d of %s", qty, item)
		}
	}
	return nil
}

// RemoveItems checks every resource first and decrements only when all
// checks pass.
func (p *Player) RemoveItems(items domain.Items) error {
	if err := checkBundle(items); err != nil {
		return err
	}
	for _, item := range items.Keys() {
		if have := p.storage[item]; have < items[item] {
			return domain.Errorf(domain.KindResource, "%s has %d %s, needs %d", p.ID, have, item, items[item])
		}
	}
	for item, qty := range items {
		p.modify(item, -qty)
	}
	return nil
}

// AddItems adds a bundle to storage unchanged.
func (p *Player) AddItems(items domain.Items) {
	for item, qty := range items {
		p.modify(item, qty)
	}
}

// ReceiveItems adds items handed over by another player. Donation variants
// fold into their base resource.
func (p *Player) ReceiveItems(items domain.Items) {
	p.AddItems(items.FoldDonations())
}

func (p *Player) stageOutput(items domain.Items) {
	p.pending.Add(items)
}

func (p *Player) materialize() {
	p.AddItems(p.pending)
	p.pending = domain.Items{}
}

// Factory returns the held factory with the given name.
func (p *Player) Factory(name string) (*domain.Factory, bool) {
	f, ok := p.factories[name]
	return f, ok
}

// FactoryNames returns the held factory names, sorted.
func (p *Player) FactoryNames() []string {
	names := make([]string, 0, len(p.factories))
	for name := range p.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasFactory reports whether a factory with this name is held.
func (p *Player) HasFactory(name string) bool {
	_, ok := p.factories[name]
	return ok
}

// AddFactory adds f to the holdings. A duplicate name is reported, not
// overwritten.
func (p *Player) AddFactory(f *domain.Factory) error {
	if f == nil {
		return domain.NewError(domain.KindIdentity, "no factory to add")
	}
	if _, dup := p.factories[f.Name]; dup {
		return domain.Errorf(domain.KindLegality, "%s already holds %s", p.ID, f.Name)
	}
	p.factories[f.Name] = f
	return nil
}

// RemoveFactory takes a factory out of the holdings.
func (p *Player) RemoveFactory(name string) (*domain.Factory, error) {
	f, ok := p.factories[name]
	if !ok {
		return nil, unknown("factory", name, p.FactoryNames())
	}
	delete(p.factories, name)
	return f, nil
}

// CountKind returns how many held factories have the given feature kind.
func (p *Player) CountKind(kind domain.FeatureKind) int {
	n := 0
	for _, f := range p.factories {
		if f.Kind() == kind {
			n++
		}
	}
	return n
}

func (p *Player) addColony(f *domain.Factory) error {
	if p.traits.DoubleRunColony {
		if col, ok := f.Colony(); ok {
			col.DoubleRun = true
		}
	}
	return p.AddFactory(f)
}

// resetFactories unlocks every converter. Used research and meta factories
// are consumed instead.
func (p *Player) resetFactories() {
	for _, name := range p.FactoryNames() {
		f := p.factories[name]
		switch f.Kind() {
		case domain.FeatureResearch, domain.FeatureMeta:
			if f.AnyUsed() {
				delete(p.factories, name)
			}
		default:
			f.Reset()
		}
	}
}

func (p *Player) resetBids() {
	p.colonyBid = 0
	p.researchBid = 0
	p.splitColonyBid = false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
