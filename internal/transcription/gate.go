package transcription

import (
	"context"
	"time"

	"github.com/voxhire/voxhire/pkg/logger"
)

// Gate blocks the evaluation step until the transcript store reports all
// expected answers present, or the poll bound is reached. Timing out is
// not an error: the caller proceeds with whatever partial transcript
// exists.
type Gate struct {
	store       ReadinessChecker
	interval    time.Duration
	maxAttempts int
	logger      *logger.Logger
}

// NewGate creates a new completion gate
func NewGate(store ReadinessChecker, interval time.Duration, maxAttempts int, log *logger.Logger) *Gate {
	return &Gate{
		store:       store,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      log.Named("completion-gate"),
	}
}

// AwaitReady polls readiness at fixed intervals up to the attempt bound.
// Returns true once the store holds at least expected distinct answers,
// false when the bound is exhausted. Context cancellation aborts the wait.
func (g *Gate) AwaitReady(ctx context.Context, candidateID int64, expected int) (bool, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		ready, err := g.store.Ready(candidateID, expected)
		if err != nil {
			return false, err
		}
		if ready {
			g.logger.Debug("Transcript ready",
				logger.Int64("candidate_id", candidateID),
				logger.Int("attempt", attempt))
			return true, nil
		}

		if attempt == g.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(g.interval):
		}
	}

	g.logger.Warn("Completion gate timed out, proceeding with partial transcript",
		logger.Int64("candidate_id", candidateID),
		logger.Int("expected", expected),
		logger.Int("max_attempts", g.maxAttempts))

	return false, nil
}
