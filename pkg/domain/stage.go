package domain

// Stage is one phase of the round cycle.
type Stage string

// Game stages. StageLobby is the stage before Start is called.
const (
	StageLobby         Stage = ""
	StageTrading       Stage = "trading"
	StageDiscardColony Stage = "discard_colony"
	StageProduction    Stage = "production"
	StageBid           Stage = "bid"
	StagePick          Stage = "pick"
	StageEnd           Stage = "end"
	StageGameEnd       Stage = "gameend"
)

// Converter stages. Constant and stealing converters are passive; they never
// match a game stage and therefore cannot be run directly.
const (
	ConverterTrading    Stage = "trading"
	ConverterProduction Stage = "production"
	ConverterConstant   Stage = "constant"
	ConverterStealing   Stage = "stealing"
)

// AgreementStage reports whether the stage advances on unanimous agreement.
func (s Stage) AgreementStage() bool {
	switch s {
	case StageTrading, StageProduction, StageBid:
		return true
	default:
		return false
	}
}

// GameStage reports whether a game can be in stage s. Passive converter
// stages are not game stages.
func (s Stage) GameStage() bool {
	switch s {
	case StageLobby, StageTrading, StageDiscardColony, StageProduction, StageBid,
		StagePick, StageEnd, StageGameEnd:
		return true
	default:
		return false
	}
}

// Valid reports whether s is a known game or converter stage.
func (s Stage) Valid() bool {
	return s.GameStage() || s == ConverterConstant || s == ConverterStealing
}

// AuctionTrack identifies one of the two auction tracks.
type AuctionTrack string

// Auction tracks, served colony first.
const (
	TrackColony   AuctionTrack = "colony"
	TrackResearch AuctionTrack = "research"
)
