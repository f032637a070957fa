package catalog

import (
	"math/rand/v2"
	"sort"

	"tradecore/pkg/domain"
)

// Deck is an ordered draw pile. The front of the slice is the top card.
type Deck struct {
	cards []*domain.Factory
}

// NewDeck wraps cards without reordering them.
func NewDeck(cards []*domain.Factory) *Deck {
	return &Deck{cards: append([]*domain.Factory(nil), cards...)}
}

// Draw pops the top card. It reports false when the deck is exhausted.
func (d *Deck) Draw() (*domain.Factory, bool) {
	if d == nil || len(d.cards) == 0 {
		return nil, false
	}
	top := d.cards[0]
	d.cards[0] = nil
	d.cards = d.cards[1:]
	return top, true
}

// Return puts cards back on top of the deck, the first one on top.
func (d *Deck) Return(cards ...*domain.Factory) {
	if d == nil || len(cards) == 0 {
		return
	}
	d.cards = append(append([]*domain.Factory(nil), cards...), d.cards...)
}

// Len returns the number of cards left.
func (d *Deck) Len() int {
	if d == nil {
		return 0
	}
	return len(d.cards)
}

// Cards returns deep copies of the remaining cards, top first.
func (d *Deck) Cards() []*domain.Factory {
	if d == nil {
		return nil
	}
	return cloneAll(d.cards)
}

// Clone returns an independent deck.
func (d *Deck) Clone() *Deck {
	if d == nil {
		return nil
	}
	return &Deck{cards: cloneAll(d.cards)}
}

// Decks holds the two per-game draw piles.
type Decks struct {
	Research *Deck
	Colony   *Deck
}

// NewDecks builds fresh per-game decks. The research deck is shuffled and
// then stably ordered by ascending level; the colony deck is only shuffled.
func (l *Library) NewDecks(rng *rand.Rand) Decks {
	research := l.ResearchCards()
	rng.Shuffle(len(research), func(i, j int) { research[i], research[j] = research[j], research[i] })
	sort.SliceStable(research, func(i, j int) bool {
		return researchLevel(research[i]) < researchLevel(research[j])
	})
	colonies := l.ColonyCards()
	rng.Shuffle(len(colonies), func(i, j int) { colonies[i], colonies[j] = colonies[j], colonies[i] })
	return Decks{Research: NewDeck(research), Colony: NewDeck(colonies)}
}

func researchLevel(f *domain.Factory) int {
	if r, ok := f.Research(); ok {
		return r.Level
	}
	return 0
}
