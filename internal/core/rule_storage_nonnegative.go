package core

import (
	"context"
	"fmt"
	"sort"

	"tradecore/pkg/domain"
)

// NewStorageNonNegativeRule blocks any state where a player's storage or
// pending production holds a negative quantity.
func NewStorageNonNegativeRule() domain.Rule {
	return storageNonNegativeRule{}
}

type storageNonNegativeRule struct{}

func (storageNonNegativeRule) Name() string { return "storage_nonnegative" }

func (r storageNonNegativeRule) Evaluate(_ context.Context, state domain.GameSnapshot, _ domain.Command) (domain.Result, error) {
	res := domain.Result{}
	for _, p := range state.Players {
		for _, ledger := range []struct {
			label string
			items domain.Items
		}{{"storage", p.Storage}, {"pending production", p.PendingProduction}} {
			keys := ledger.items.Keys()
			sort.Strings(keys)
			for _, item := range keys {
				if qty := ledger.items[item]; qty < 0 {
					res.Violations = append(res.Violations, domain.Violation{
						Rule:     r.Name(),
						Severity: domain.SeverityBlock,
						Message:  fmt.Sprintf("%s of %s holds %d %s", ledger.label, p.UserID, qty, item),
						Player:   p.UserID,
					})
				}
			}
		}
	}
	return res, nil
}
