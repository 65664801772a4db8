package common

import (
	"context"
	"time"
)

// PollOutcome reports how a Poll call ended.
type PollOutcome struct {
	Met      bool  // predicate returned true before the timeout
	TimedOut bool  // timeout elapsed without the predicate being met
	LastErr  error // last error the predicate returned, if any
}

// Poll invokes fn at the given interval until it returns true, the timeout
// elapses, or ctx is cancelled. Errors from fn are recorded but never stop
// the loop; polling continues on the next tick. The first invocation happens
// immediately, not after the first interval.
func Poll(ctx context.Context, interval, timeout time.Duration, fn func(context.Context) (bool, error)) PollOutcome {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var outcome PollOutcome

	check := func() bool {
		met, err := fn(ctx)
		if err != nil {
			outcome.LastErr = err
			return false
		}
		return met
	}

	if check() {
		outcome.Met = true
		return outcome
	}

	for {
		select {
		case <-ctx.Done():
			outcome.TimedOut = true
			if outcome.LastErr == nil {
				outcome.LastErr = ctx.Err()
			}
			return outcome
		case <-deadline.C:
			outcome.TimedOut = true
			return outcome
		case <-ticker.C:
			if check() {
				outcome.Met = true
				return outcome
			}
		}
	}
}
