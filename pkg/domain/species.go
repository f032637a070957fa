package domain

import "sort"

// Species names known to the trait table.
const (
	SpeciesCaylion        = "Caylion"
	SpeciesYengii         = "Yengii"
	SpeciesEni            = "Eni"
	SpeciesUnity          = "Unity"
	SpeciesKjasjavikalimm = "Kjasjavikalimm"
	SpeciesIm             = "Im"
	SpeciesZeth           = "Zeth"
	SpeciesFaderan        = "Faderan"
	SpeciesKit            = "Kit"
)

// OwnerNone marks deck cards that have no rightful species owner.
const OwnerNone = "None"

// SpeciesTraits gathers every species-specific rule the engine consults.
type SpeciesTraits struct {
	Name             string `json:"name"`
	DisplayName      string `json:"display_name"`
	MaxColony        int    `json:"max_colony"`
	TieBreaker       int    `json:"tie_breaker"`
	InitColony       int    `json:"init_colony"`
	InitResearch     int    `json:"init_research"`
	ColonyBidDivisor int    `json:"colony_bid_divisor"`
	TechSpreadExempt bool   `json:"tech_spread_exempt"`
	ReducedShare     bool   `json:"reduced_share"`
	DoubleRunColony  bool   `json:"double_run_colony"`
	SplitBid         bool   `json:"split_bid"`
}

var speciesTable = map[string]SpeciesTraits{
	SpeciesCaylion:        {Name: SpeciesCaylion, DisplayName: "Caylion Plutocracy", MaxColony: 3, TieBreaker: 1, InitColony: 1, ColonyBidDivisor: 2, DoubleRunColony: true},
	SpeciesEni:            {Name: SpeciesEni, DisplayName: "Eni Et Ascendancy", MaxColony: 3, TieBreaker: 3, InitColony: 1, ColonyBidDivisor: 1},
	SpeciesIm:             {Name: SpeciesIm, DisplayName: "Im Dril Nomads", MaxColony: 0, TieBreaker: 8, InitResearch: 1, ColonyBidDivisor: 1},
	SpeciesUnity:          {Name: SpeciesUnity, DisplayName: "Unity", MaxColony: 1, TieBreaker: 4, InitColony: 1, InitResearch: 1, ColonyBidDivisor: 1},
	SpeciesYengii:         {Name: SpeciesYengii, DisplayName: "Yengii Society", MaxColony: 3, TieBreaker: 6, InitColony: 1, InitResearch: 1, ColonyBidDivisor: 1, TechSpreadExempt: true, ReducedShare: true},
	SpeciesKjasjavikalimm: {Name: SpeciesKjasjavikalimm, DisplayName: "Kjasjavikalimm Independent Nations", MaxColony: 6, TieBreaker: 6, InitColony: 2, ColonyBidDivisor: 1, SplitBid: true},
	SpeciesKit:            {Name: SpeciesKit, DisplayName: "Kit", MaxColony: 999, TieBreaker: 999, InitColony: 1, InitResearch: 1, ColonyBidDivisor: 1},
	SpeciesZeth:           {Name: SpeciesZeth, DisplayName: "Zeth Anocracy", MaxColony: 3, TieBreaker: 2, InitResearch: 1, ColonyBidDivisor: 1},
	SpeciesFaderan:        {Name: SpeciesFaderan, DisplayName: "Faderan Conclave", MaxColony: 4, TieBreaker: 7, InitColony: 1, InitResearch: 1, ColonyBidDivisor: 1},
}

// Traits returns the trait record for a species.
func Traits(species string) (SpeciesTraits, bool) {
	t, ok := speciesTable[species]
	return t, ok
}

// KnownSpecies lists every species in the trait table, sorted.
func KnownSpecies() []string {
	out := make([]string, 0, len(speciesTable))
	for name := range speciesTable {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// EffectiveColonyBid applies the species' colony-bid divisor.
func (t SpeciesTraits) EffectiveColonyBid(bid int) float64 {
	div := t.ColonyBidDivisor
	if div <= 0 {
		div = 1
	}
	return float64(bid) / float64(div)
}
