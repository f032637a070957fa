package core

import (
	"context"
	"fmt"

	"tradecore/pkg/domain"
)

// NewQueueStageRule checks that auction queues exist only during the pick
// stage, that the current pick is their head and that every queued player is
// seated.
func NewQueueStageRule() domain.Rule {
	return queueStageRule{}
}

type queueStageRule struct{}

func (queueStageRule) Name() string { return "queue_stage_consistency" }

func (r queueStageRule) Evaluate(_ context.Context, state domain.GameSnapshot, _ domain.Command) (domain.Result, error) {
	res := domain.Result{}
	block := func(format string, args ...any) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf(format, args...),
		})
	}
	queued := len(state.ColonyQueue) + len(state.ResearchQueue)
	if state.Stage != domain.StagePick {
		if queued > 0 {
			block("stage %s carries %d queued picks", state.Stage, queued)
		}
		if state.CurrentPick.Player != "" {
			block("stage %s names current picker %s", state.Stage, state.CurrentPick.Player)
		}
		return res, nil
	}
	if queued == 0 {
		block("pick stage with empty queues")
		return res, nil
	}
	for _, queue := range [][]domain.QueueEntry{state.ColonyQueue, state.ResearchQueue} {
		for _, e := range queue {
			if _, ok := state.FindPlayer(e.Player); !ok {
				block("queue entry for unknown player %s", e.Player)
			}
		}
	}
	head := state.ColonyQueue
	track := domain.TrackColony
	if len(head) == 0 {
		head, track = state.ResearchQueue, domain.TrackResearch
	}
	if state.CurrentPick.Player != head[0].Player || state.CurrentPick.Type != track {
		block("current pick %s/%s is not the queue head %s/%s", state.CurrentPick.Type, state.CurrentPick.Player, track, head[0].Player)
	}
	return res, nil
}
