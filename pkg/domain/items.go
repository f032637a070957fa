package domain

import (
	"sort"
	"strings"
)

// Resource names used by the engine. Catalog data may introduce others; they
// are carried through storage untouched and have no item value.
const (
	ItemFood           = "Food"
	ItemCulture        = "Culture"
	ItemIndustry       = "Industry"
	ItemEnergy         = "Energy"
	ItemInformation    = "Information"
	ItemBiotech        = "Biotech"
	ItemHypertech      = "Hypertech"
	ItemShip           = "Ship"
	ItemScore          = "Score"
	ItemWildSmall      = "WildSmall"
	ItemWildBig        = "WildBig"
	ItemArbitrarySmall = "ArbitrarySmall"
	ItemArbitraryBig   = "ArbitraryBig"
	ItemArbitraryWorld = "ArbitraryWorld"
	ItemJungle         = "Jungle"
	ItemWater          = "Water"
	ItemDesert         = "Desert"
	ItemIce            = "Ice"
)

// DonationSuffix marks a variant that folds into its base resource once it
// changes hands.
const DonationSuffix = "Donation"

var (
	smallItems   = []string{ItemFood, ItemCulture, ItemIndustry}
	bigItems     = []string{ItemEnergy, ItemInformation, ItemBiotech}
	climateItems = []string{ItemJungle, ItemWater, ItemDesert, ItemIce}
)

var itemValues = map[string]float64{
	ItemFood:           1,
	ItemCulture:        1,
	ItemIndustry:       1,
	ItemEnergy:         1.5,
	ItemInformation:    1.5,
	ItemBiotech:        1.5,
	ItemHypertech:      3,
	ItemShip:           1,
	ItemScore:          3,
	ItemWildBig:        1.5,
	ItemWildSmall:      1,
	ItemArbitrarySmall: 1,
	ItemArbitraryBig:   1.5,
}

// SmallItems returns the specific small cube resources.
func SmallItems() []string { return append([]string(nil), smallItems...) }

// BigItems returns the specific big cube resources.
func BigItems() []string { return append([]string(nil), bigItems...) }

// Climates returns the colony climate resources.
func Climates() []string { return append([]string(nil), climateItems...) }

// IsSmall reports whether item is a specific small cube.
func IsSmall(item string) bool { return contains(smallItems, item) }

// IsBig reports whether item is a specific big cube.
func IsBig(item string) bool { return contains(bigItems, item) }

// IsClimate reports whether item is a colony climate.
func IsClimate(item string) bool { return contains(climateItems, item) }

// BaseItem strips the donation suffix, if any.
func BaseItem(item string) string {
	return strings.TrimSuffix(item, DonationSuffix)
}

// IsDonation reports whether item carries the donation suffix.
func IsDonation(item string) bool {
	return item != DonationSuffix && strings.HasSuffix(item, DonationSuffix)
}

// ItemValue returns the end-of-game value of one unit of item. Donation
// variants are worth the same as their base resource.
func ItemValue(item string) float64 {
	return itemValues[BaseItem(item)]
}

// Items is a resource bundle keyed by resource name.
type Items map[string]int

// Clone returns an independent copy. A nil bundle clones to an empty one.
func (it Items) Clone() Items {
	out := make(Items, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

// Add merges other into it and returns it. Zero results are kept so callers
// can observe touched keys; use Compact to drop them.
func (it Items) Add(other Items) Items {
	for k, v := range other {
		it[k] += v
	}
	return it
}

// Total returns the sum of all quantities.
func (it Items) Total() int {
	total := 0
	for _, v := range it {
		total += v
	}
	return total
}

// HasNegative reports whether any quantity is below zero.
func (it Items) HasNegative() bool {
	for _, v := range it {
		if v < 0 {
			return true
		}
	}
	return false
}

// Compact returns a copy without zero entries.
func (it Items) Compact() Items {
	out := make(Items, len(it))
	for k, v := range it {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

// Keys returns the resource names in sorted order.
func (it Items) Keys() []string {
	keys := make([]string, 0, len(it))
	for k := range it {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FoldDonations converts every donation variant into its base resource.
func (it Items) FoldDonations() Items {
	out := make(Items, len(it))
	for k, v := range it {
		out[BaseItem(k)] += v
	}
	return out
}

func contains(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}
	return false
}
