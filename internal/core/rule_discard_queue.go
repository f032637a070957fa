package core

import (
	"context"
	"fmt"

	"tradecore/pkg/domain"
)

// NewDiscardQueueRule checks that the discard queue is populated only in the
// discard stage and lists players actually over their colony cap.
func NewDiscardQueueRule() domain.Rule {
	return discardQueueRule{}
}

type discardQueueRule struct{}

func (discardQueueRule) Name() string { return "discard_queue_consistency" }

func (r discardQueueRule) Evaluate(_ context.Context, state domain.GameSnapshot, _ domain.Command) (domain.Result, error) {
	res := domain.Result{}
	block := func(player, format string, args ...any) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf(format, args...),
			Player:   player,
		})
	}
	if state.Stage != domain.StageDiscardColony {
		if len(state.DiscardQueue) > 0 {
			block("", "stage %s carries a discard queue of %d", state.Stage, len(state.DiscardQueue))
		}
		return res, nil
	}
	if len(state.DiscardQueue) == 0 {
		block("", "discard stage with an empty queue")
		return res, nil
	}
	for _, id := range state.DiscardQueue {
		p, ok := state.FindPlayer(id)
		if !ok {
			block(id, "discard queue names unknown player %s", id)
			continue
		}
		if n := countColonies(p); n <= p.MaxColony {
			block(id, "%s queued to discard with %d of %d colonies", id, n, p.MaxColony)
		}
	}
	if state.CurrentDiscardColonyPlayer != state.DiscardQueue[0] {
		block(state.CurrentDiscardColonyPlayer, "current discard player %q is not the queue head", state.CurrentDiscardColonyPlayer)
	}
	return res, nil
}

func countColonies(p domain.PlayerSnapshot) int {
	n := 0
	for _, f := range p.Factories {
		if f != nil && f.Kind() == domain.FeatureColony {
			n++
		}
	}
	return n
}
