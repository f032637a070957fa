// Package engine implements the game state machine and economic rules:
// production, the stage cycle, the two-track sealed-bid auction and the
// all-or-nothing trade protocol. It performs no I/O; callers serialize access
// to a Game.
package engine

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"tradecore/internal/catalog"
	"tradecore/pkg/domain"
)

// DefaultEndRound is the number of rounds a game lasts unless configured.
const DefaultEndRound = 6

// MaxPlayers is the largest table the bid boards support.
const MaxPlayers = 10

// bidSlot is one auction slot; item is nil when empty.
type bidSlot struct {
	price int
	item  *domain.Factory
}

// Game orchestrates one match.
type Game struct {
	lib      *catalog.Library
	roomName string

	players  []*Player
	round    int
	endRound int
	stage    domain.Stage

	decks         catalog.Decks
	colonyCards   []bidSlot
	researchCards []bidSlot
	colonyQueue   []domain.QueueEntry
	researchQueue []domain.QueueEntry
	discardQueue  []string

	techSpread      map[int][]string
	techSpreadDelay int

	proposals   map[string][]*TradeProposal
	proposalSeq int

	standings []domain.Standing
}

// Option configures a new game.
type Option func(*gameOptions)

type gameOptions struct {
	rng             *rand.Rand
	roomName        string
	techSpreadDelay int
}

// WithRand injects the shuffle source used to build the decks.
func WithRand(rng *rand.Rand) Option {
	return func(o *gameOptions) {
		if rng != nil {
			o.rng = rng
		}
	}
}

// WithRoomName labels the game in snapshots.
func WithRoomName(name string) Option {
	return func(o *gameOptions) { o.roomName = name }
}

// WithTechSpreadDelay sets how many rounds after invention a technology
// spreads to the other players. Zero spreads it at the end of the round it
// was invented in.
func WithTechSpreadDelay(rounds int) Option {
	return func(o *gameOptions) {
		if rounds >= 0 {
			o.techSpreadDelay = rounds
		}
	}
}

// NewGame creates a game in the lobby stage with fresh decks.
func NewGame(lib *catalog.Library, endRound int, opts ...Option) *Game {
	o := gameOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if endRound <= 0 {
		endRound = DefaultEndRound
	}
	return &Game{
		lib:             lib,
		roomName:        o.roomName,
		endRound:        endRound,
		stage:           domain.StageLobby,
		decks:           lib.NewDecks(o.rng),
		techSpread:      map[int][]string{},
		techSpreadDelay: o.techSpreadDelay,
		proposals:       map[string][]*TradeProposal{},
	}
}

// Stage returns the current stage.
func (g *Game) Stage() domain.Stage { return g.stage }

// Round returns the current round, zero before Start.
func (g *Game) Round() int { return g.round }

// EndRound returns the final round.
func (g *Game) EndRound() int { return g.endRound }

// RoomName returns the label given at construction.
func (g *Game) RoomName() string { return g.roomName }

// Library returns the catalog the game draws from.
func (g *Game) Library() *catalog.Library { return g.lib }

// PlayerIDs returns the player ids in seating order.
func (g *Game) PlayerIDs() []string {
	ids := make([]string, len(g.players))
	for i, p := range g.players {
		ids[i] = p.ID
	}
	return ids
}

// Player returns the named player.
func (g *Game) Player(id string) (*Player, bool) {
	for _, p := range g.players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// Standings returns the final scoreboard, empty before game end.
func (g *Game) Standings() []domain.Standing {
	return append([]domain.Standing(nil), g.standings...)
}

func (g *Game) player(id string) (*Player, error) {
	if p, ok := g.Player(id); ok {
		return p, nil
	}
	return nil, unknown("player", id, g.PlayerIDs())
}

func (g *Game) playerBySpecies(species string) *Player {
	for _, p := range g.players {
		if p.Species == species {
			return p
		}
	}
	return nil
}

func (g *Game) heldFactory(p *Player, name string) (*domain.Factory, error) {
	if f, ok := p.Factory(name); ok {
		return f, nil
	}
	return nil, unknown("factory", name, p.FactoryNames())
}

func (g *Game) requireStage(allowed ...domain.Stage) error {
	for _, s := range allowed {
		if g.stage == s {
			return nil
		}
	}
	names := make([]string, len(allowed))
	for i, s := range allowed {
		names[i] = string(s)
	}
	return domain.Errorf(domain.KindStage, "command requires stage %s, game is in %q", strings.Join(names, " or "), g.stage)
}

func (g *Game) playerNum() int {
	n := len(g.players)
	if n < 3 {
		n = 3
	}
	return n
}

// AddPlayer seats a player of the given species. Seating is only possible in
// the lobby and each species may be played once.
func (g *Game) AddPlayer(species, userID string) error {
	if err := g.requireStage(domain.StageLobby); err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" {
		return domain.NewError(domain.KindIdentity, "player id is required")
	}
	if _, exists := g.Player(userID); exists {
		return domain.Errorf(domain.KindIdentity, "player %q is already seated", userID)
	}
	if len(g.players) >= MaxPlayers {
		return domain.Errorf(domain.KindLegality, "table is full (%d players)", MaxPlayers)
	}
	def, ok := g.lib.Species(species)
	if !ok {
		return unknown("species", species, g.lib.SpeciesNames())
	}
	if other := g.playerBySpecies(species); other != nil {
		return domain.Errorf(domain.KindLegality, "species %s is already played by %s", species, other.ID)
	}
	starting, err := g.lib.StartingFactories(species)
	if err != nil {
		return domain.NewError(domain.KindIdentity, err.Error())
	}
	p := newPlayer(userID, species, def.DisplayName, def.Traits)
	p.AddItems(def.StartItems)
	for _, f := range starting {
		if err := p.AddFactory(f); err != nil {
			return err
		}
	}
	colonies := drawN(g.decks.Colony, def.Traits.InitColony)
	research := drawN(g.decks.Research, def.Traits.InitResearch)
	deal := func() error {
		for _, card := range colonies {
			if err := p.addColony(card); err != nil {
				return err
			}
		}
		for _, card := range research {
			if err := g.addResearch(p, card); err != nil {
				return err
			}
		}
		return nil
	}
	if err := deal(); err != nil {
		g.decks.Colony.Return(colonies...)
		g.decks.Research.Return(research...)
		return fmt.Errorf("deal starting cards to %s: %w", userID, err)
	}
	g.players = append(g.players, p)
	return nil
}

// drawN draws up to n cards, fewer if the deck runs out.
func drawN(d *catalog.Deck, n int) []*domain.Factory {
	var cards []*domain.Factory
	for i := 0; i < n; i++ {
		card, ok := d.Draw()
		if !ok {
			break
		}
		cards = append(cards, card)
	}
	return cards
}

// Start opens round one in the trading stage and fills the auction tracks.
func (g *Game) Start() error {
	if err := g.requireStage(domain.StageLobby); err != nil {
		return err
	}
	if len(g.players) == 0 {
		return domain.NewError(domain.KindSequencing, "cannot start a game without players")
	}
	g.initBidTracks()
	g.supplyBidItems()
	g.round = 1
	g.stage = domain.StageTrading
	return nil
}

// PlayerAgree marks agreement; unanimous agreement advances the stage.
func (g *Game) PlayerAgree(playerID string) error {
	p, err := g.player(playerID)
	if err != nil {
		return err
	}
	if !g.stage.AgreementStage() {
		return domain.Errorf(domain.KindStage, "stage %q does not advance by agreement", g.stage)
	}
	p.agreed = true
	if g.allAgreed() {
		g.advance()
	}
	return nil
}

// PlayerDisagree withdraws agreement.
func (g *Game) PlayerDisagree(playerID string) error {
	p, err := g.player(playerID)
	if err != nil {
		return err
	}
	if !g.stage.AgreementStage() {
		return domain.Errorf(domain.KindStage, "stage %q does not advance by agreement", g.stage)
	}
	p.agreed = false
	return nil
}

func (g *Game) allAgreed() bool {
	for _, p := range g.players {
		if !p.agreed {
			return false
		}
	}
	return len(g.players) > 0
}

func (g *Game) resetAgreements() {
	for _, p := range g.players {
		p.agreed = false
	}
}

// addResearch files a research card with a preview of the tech factory the
// player would receive.
func (g *Game) addResearch(p *Player, card *domain.Factory) error {
	if r, ok := card.Research(); ok && r.Tech != "" {
		if techFactory, ok := g.lib.TechFactory(p.Species, r.Tech); ok {
			card.Preview = techFactory.Converters
		}
	}
	return p.AddFactory(card)
}

// grantTech gives p the technology and its factory if not already held.
func (g *Game) grantTech(p *Player, tech string) {
	if p.HasTech(tech) {
		return
	}
	if f, ok := g.lib.TechFactory(p.Species, tech); ok {
		if err := p.AddFactory(f); err != nil {
			return
		}
	}
	p.tech = append(p.tech, tech)
}
