package core

import (
	"context"
	"fmt"
	"sort"

	"tradecore/pkg/domain"
)

// NewFactorySingleHolderRule blocks any state where one factory name is held
// by two players at once.
func NewFactorySingleHolderRule() domain.Rule {
	return factorySingleHolderRule{}
}

type factorySingleHolderRule struct{}

func (factorySingleHolderRule) Name() string { return "factory_single_holder" }

func (r factorySingleHolderRule) Evaluate(_ context.Context, state domain.GameSnapshot, _ domain.Command) (domain.Result, error) {
	holders := make(map[string][]string)
	for _, p := range state.Players {
		for name := range p.Factories {
			holders[name] = append(holders[name], p.UserID)
		}
	}
	names := make([]string, 0, len(holders))
	for name, ids := range holders {
		if len(ids) > 1 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	res := domain.Result{}
	for _, name := range names {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("factory %s held by %v", name, holders[name]),
			Factory:  name,
		})
	}
	return res, nil
}
