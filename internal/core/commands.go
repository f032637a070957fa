package core

import (
	"context"

	"tradecore/internal/engine"
	"tradecore/pkg/domain"
)

// AddPlayer seats userID as species in a lobby game.
func (s *Service) AddPlayer(ctx context.Context, gameID, species, userID string) (domain.Result, error) {
	return s.run(ctx, "add_player", gameID, userID, func(g *engine.Game) error {
		return g.AddPlayer(species, userID)
	})
}

// Start deals the opening board and enters round one.
func (s *Service) Start(ctx context.Context, gameID string) (domain.Result, error) {
	return s.run(ctx, "start_game", gameID, "", func(g *engine.Game) error {
		return g.Start()
	})
}

// Produce runs one converter of a held factory.
func (s *Service) Produce(ctx context.Context, gameID, playerID, factory string, converter int, extra engine.ProduceExtra) (domain.Result, error) {
	return s.run(ctx, "produce", gameID, playerID, func(g *engine.Game) error {
		return g.Produce(playerID, factory, converter, extra)
	})
}

// UpgradeColony upgrades a held colony.
func (s *Service) UpgradeColony(ctx context.Context, gameID, playerID, colony string) (domain.Result, error) {
	return s.run(ctx, "upgrade_colony", gameID, playerID, func(g *engine.Game) error {
		return g.UpgradeColony(playerID, colony)
	})
}

// UpgradeNormal upgrades a species factory paying the cost option costType.
func (s *Service) UpgradeNormal(ctx context.Context, gameID, playerID, factory string, costType int) (domain.Result, error) {
	return s.run(ctx, "upgrade_normal", gameID, playerID, func(g *engine.Game) error {
		return g.UpgradeNormal(playerID, factory, costType)
	})
}

// PlayerAgree marks the player ready to leave the current stage.
func (s *Service) PlayerAgree(ctx context.Context, gameID, playerID string) (domain.Result, error) {
	return s.run(ctx, "player_agree", gameID, playerID, func(g *engine.Game) error {
		return g.PlayerAgree(playerID)
	})
}

// PlayerDisagree withdraws the player's agreement.
func (s *Service) PlayerDisagree(ctx context.Context, gameID, playerID string) (domain.Result, error) {
	return s.run(ctx, "player_disagree", gameID, playerID, func(g *engine.Game) error {
		return g.PlayerDisagree(playerID)
	})
}

// SubmitBid records a sealed bid on both auction tracks.
func (s *Service) SubmitBid(ctx context.Context, gameID, playerID string, colonyBid, researchBid int) (domain.Result, error) {
	return s.run(ctx, "submit_bid", gameID, playerID, func(g *engine.Game) error {
		return g.SubmitBid(playerID, colonyBid, researchBid)
	})
}

// ElectSplitBid splits the player's colony bid for this round.
func (s *Service) ElectSplitBid(ctx context.Context, gameID, playerID string) (domain.Result, error) {
	return s.run(ctx, "elect_split_bid", gameID, playerID, func(g *engine.Game) error {
		return g.ElectSplitBid(playerID)
	})
}

// SubmitPick takes the card in slot pickID, or passes with engine.PassPick.
func (s *Service) SubmitPick(ctx context.Context, gameID, playerID string, pickID int) (domain.Result, error) {
	return s.run(ctx, "submit_pick", gameID, playerID, func(g *engine.Game) error {
		return g.SubmitPick(playerID, pickID)
	})
}

// ExchangeColony trades a colony back for its climate.
func (s *Service) ExchangeColony(ctx context.Context, gameID, playerID, colony string) (domain.Result, error) {
	return s.run(ctx, "exchange_colony", gameID, playerID, func(g *engine.Game) error {
		return g.ExchangeColony(playerID, colony)
	})
}

// ExchangeArbitrary converts items at the fixed arbitrary rates.
func (s *Service) ExchangeArbitrary(ctx context.Context, gameID, playerID string, items domain.Items) (domain.Result, error) {
	return s.run(ctx, "exchange_arbitrary", gameID, playerID, func(g *engine.Game) error {
		return g.ExchangeArbitrary(playerID, items)
	})
}

// ExchangeWild resolves wild items into concrete ones.
func (s *Service) ExchangeWild(ctx context.Context, gameID, playerID string, want domain.Items) (domain.Result, error) {
	return s.run(ctx, "exchange_wild", gameID, playerID, func(g *engine.Game) error {
		return g.ExchangeWild(playerID, want)
	})
}

// DiscardColonies discards colonies above the player's cap.
func (s *Service) DiscardColonies(ctx context.Context, gameID, playerID string, colonies []string) (domain.Result, error) {
	return s.run(ctx, "discard_colonies", gameID, playerID, func(g *engine.Game) error {
		return g.DiscardColonies(playerID, colonies)
	})
}

// Gift moves a bundle from one player to another.
func (s *Service) Gift(ctx context.Context, gameID, fromID, toID string, bundle domain.Bundle) (domain.Result, error) {
	return s.run(ctx, "gift", gameID, fromID, func(g *engine.Game) error {
		return g.Gift(fromID, toID, bundle)
	})
}

// ProposeTrade stores a trade offer and returns its id.
func (s *Service) ProposeTrade(ctx context.Context, gameID, fromID string, to []string, send, receive domain.Bundle, message string) (int, domain.Result, error) {
	var id int
	res, err := s.run(ctx, "propose_trade", gameID, fromID, func(g *engine.Game) error {
		var err error
		id, err = g.ProposeTrade(fromID, to, send, receive, message)
		return err
	})
	if err != nil {
		return 0, res, err
	}
	return id, res, nil
}

// DeclineTradeProposal removes a proposal addressed to, or sent by, the player.
func (s *Service) DeclineTradeProposal(ctx context.Context, gameID, playerID string, proposalID int) (domain.Result, error) {
	return s.run(ctx, "decline_trade", gameID, playerID, func(g *engine.Game) error {
		return g.DeclineTradeProposal(playerID, proposalID)
	})
}

// AcceptTradeProposal executes a proposal atomically.
func (s *Service) AcceptTradeProposal(ctx context.Context, gameID, playerID string, proposalID int) (domain.Result, error) {
	return s.run(ctx, "accept_trade", gameID, playerID, func(g *engine.Game) error {
		return g.AcceptTradeProposal(playerID, proposalID)
	})
}

// DebugDrawResearch deals the top research card to the player.
func (s *Service) DebugDrawResearch(ctx context.Context, gameID, playerID string) (string, domain.Result, error) {
	var name string
	res, err := s.run(ctx, "debug_draw_research", gameID, playerID, func(g *engine.Game) error {
		var err error
		name, err = g.DebugDrawResearch(playerID)
		return err
	})
	return name, res, err
}

// DebugDrawColony deals the top colony card to the player.
func (s *Service) DebugDrawColony(ctx context.Context, gameID, playerID string) (string, domain.Result, error) {
	var name string
	res, err := s.run(ctx, "debug_draw_colony", gameID, playerID, func(g *engine.Game) error {
		var err error
		name, err = g.DebugDrawColony(playerID)
		return err
	})
	return name, res, err
}

// DebugAddItem adjusts one storage item.
func (s *Service) DebugAddItem(ctx context.Context, gameID, playerID, item string, qty int) (domain.Result, error) {
	return s.run(ctx, "debug_add_item", gameID, playerID, func(g *engine.Game) error {
		return g.DebugAddItem(playerID, item, qty)
	})
}
