package domain

// GameSnapshot is the full exported state of one game. The transport layer
// and the persistence adapters both consume this shape.
type GameSnapshot struct {
	RoomName                   string                        `json:"room_name"`
	Players                    []PlayerSnapshot              `json:"players"`
	CurrentRound               int                           `json:"current_round"`
	EndRound                   int                           `json:"end_round"`
	Stage                      Stage                         `json:"stage"`
	ResearchBidCards           []BidSlot                     `json:"research_bid_cards"`
	ColonyBidCards             []BidSlot                     `json:"colony_bid_cards"`
	ColonyQueue                []QueueEntry                  `json:"colony_bid_priority"`
	ResearchQueue              []QueueEntry                  `json:"research_bid_priority"`
	CurrentPick                CurrentPick                   `json:"current_pick"`
	CurrentDiscardColonyPlayer string                        `json:"current_discard_colony_player"`
	DiscardQueue               []string                      `json:"discard_colony"`
	Proposals                  map[string][]ProposalSnapshot `json:"proposals"`
	ProposalSeq                int                           `json:"proposal_seq"`
	TechSpreadSchedule         map[int][]string              `json:"tech_spread_list"`
	TechSpreadDelay            int                           `json:"tech_spread_delay"`
	ResearchDeck               []*Factory                    `json:"research_deck"`
	ColonyDeck                 []*Factory                    `json:"colony_deck"`
	Standings                  []Standing                    `json:"standings,omitempty"`
}

// PlayerSnapshot is the exported state of one player.
type PlayerSnapshot struct {
	UserID            string              `json:"user_id"`
	Species           string              `json:"specie"`
	DisplayName       string              `json:"specie_display_name"`
	Storage           Items               `json:"storage"`
	PendingProduction Items               `json:"new_product_items"`
	Factories         map[string]*Factory `json:"factories"`
	MaxColony         int                 `json:"max_colony"`
	TieBreaker        int                 `json:"tie_breaker"`
	InitColony        int                 `json:"init_colony"`
	InitResearch      int                 `json:"init_research"`
	Agreed            bool                `json:"agreed"`
	ColonyBid         int                 `json:"colony_bid"`
	ResearchBid       int                 `json:"research_bid"`
	SplitColonyBid    bool                `json:"split_colony_bid"`
	Tech              []string            `json:"tech"`
	InventedTech      []string            `json:"invented_tech"`
	Score             int                 `json:"score"`
	ItemValue         float64             `json:"item_value"`
}

// BidSlot is one auction slot. Item is nil when the slot is empty.
type BidSlot struct {
	Price int      `json:"price"`
	Item  *Factory `json:"item"`
}

// QueueEntry is one position in an auction priority queue. Part is zero for
// an unsplit bid and 1 or 2 for the halves of a split colony bid. Bid is the
// declared amount this entry pays on a pick.
type QueueEntry struct {
	Player string `json:"player"`
	Part   int    `json:"part"`
	Bid    int    `json:"bid"`
}

// CurrentPick names the queue head during the pick stage.
type CurrentPick struct {
	Type   AuctionTrack `json:"type"`
	Player string       `json:"player"`
}

// Bundle is one direction of a gift or trade.
type Bundle struct {
	Items     Items    `json:"items,omitempty"`
	Factories []string `json:"factories,omitempty"`
	Techs     []string `json:"techs,omitempty"`
}

// Empty reports whether the bundle transfers nothing.
func (b Bundle) Empty() bool {
	return len(b.Items.Compact()) == 0 && len(b.Factories) == 0 && len(b.Techs) == 0
}

// Clone returns a deep copy.
func (b Bundle) Clone() Bundle {
	cp := Bundle{}
	if b.Items != nil {
		cp.Items = b.Items.Clone()
	}
	if b.Factories != nil {
		cp.Factories = append([]string(nil), b.Factories...)
	}
	if b.Techs != nil {
		cp.Techs = append([]string(nil), b.Techs...)
	}
	return cp
}

// ProposalSnapshot is the exported form of a stored trade proposal.
type ProposalSnapshot struct {
	ID      int      `json:"id"`
	From    string   `json:"from_player"`
	To      []string `json:"to_players"`
	Send    Bundle   `json:"send_gift"`
	Receive Bundle   `json:"receive_gift"`
	Message string   `json:"message"`
}

// Standing is one row of the final scoreboard.
type Standing struct {
	Rank      int     `json:"rank"`
	Player    string  `json:"player"`
	Species   string  `json:"specie"`
	Score     int     `json:"score"`
	ItemValue float64 `json:"item_value"`
}

// FindPlayer returns the snapshot of the named player.
func (s GameSnapshot) FindPlayer(id string) (PlayerSnapshot, bool) {
	for _, p := range s.Players {
		if p.UserID == id {
			return p, true
		}
	}
	return PlayerSnapshot{}, false
}
