package calls

import (
	"context"
	"time"

	"github.com/DataCleaninghash/CustomerAII/internal/calls/domain"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"
)

// Navigator replays an IVR navigation plan against a live call. It reports
// success as a boolean; the state machine decides whether a failure downgrades
// to the operator plan or fails the call.
type Navigator struct {
	provider TelephonyProvider
	log      *logger.Logger
	sleep    Sleeper
}

func NewNavigator(provider TelephonyProvider, log *logger.Logger) *Navigator {
	return &Navigator{
		provider: provider,
		log:      log,
		sleep:    time.After,
	}
}

// Execute runs every step in order, honoring each step's delay before the
// action. The first failing step aborts the whole plan.
func (n *Navigator) Execute(ctx context.Context, callID string, plan domain.NavigationPlan) bool {
	for i, step := range plan.Steps {
		if !n.pause(ctx, step.Delay) {
			n.log.Warn("ivr navigation cancelled", "call_id", callID, "step", i)
			return false
		}

		var err error
		switch step.Action {
		case domain.ActionWait:
			// The delay was the action.
		case domain.ActionPress:
			err = n.provider.SendDTMF(ctx, callID, step.Value)
		case domain.ActionSay:
			err = n.provider.Speak(ctx, callID, step.Value)
		}
		if err != nil {
			n.log.Warn("ivr navigation step failed",
				"call_id", callID,
				"step", i,
				"action", string(step.Action),
				"error", err,
			)
			return false
		}
	}

	n.log.Info("ivr navigation completed",
		"call_id", callID,
		"department", plan.Department,
		"generic", plan.Generic,
		"steps", len(plan.Steps),
	)
	return true
}

func (n *Navigator) pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-n.sleep(d):
		return true
	}
}
