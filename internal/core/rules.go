package core

import "tradecore/pkg/domain"

// defaultRules lists the invariants every committed game state must satisfy.
func defaultRules() []domain.Rule {
	return []domain.Rule{
		NewStorageNonNegativeRule(),
		NewFactorySingleHolderRule(),
		NewQueueStageRule(),
		NewDiscardQueueRule(),
	}
}

// NewDefaultRulesEngine builds a rules engine with the built-in invariants.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	for _, rule := range defaultRules() {
		engine.Register(rule)
	}
	return engine
}
