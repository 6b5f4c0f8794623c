package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/voxhire/voxhire/pkg/logger"
)

// ErrRetriesExhausted is returned when an operation keeps failing with
// transient errors and the attempt bound is reached. The last underlying
// cause is wrapped and reachable via errors.Unwrap.
var ErrRetriesExhausted = errors.New("max retries reached")

// transientSignals are substrings that mark a backend error as retryable.
// Rate limiting, quota and resource exhaustion all come back as message
// text from the LLM backends, so classification is by substring match.
var transientSignals = []string{"resource", "quota", "rate", "limit", "exhaust"}

// Executor retries an operation with a linearly growing delay plus jitter.
// Only transient failures are retried; anything else propagates immediately.
type Executor struct {
	maxAttempts int
	baseDelay   time.Duration
	logger      *logger.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates a new backoff executor
func NewExecutor(maxAttempts int, baseDelay time.Duration, log *logger.Logger) *Executor {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Executor{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      log.Named("retry"),
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Do runs op, retrying transient failures up to the attempt bound.
// The delay before attempt n is baseDelay*n plus up to one second of
// jitter, to avoid hammering an already rate-limited backend in lockstep.
func (e *Executor) Do(ctx context.Context, op func() error) error {
	var lastErr error

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}

		if !IsTransient(lastErr) {
			return lastErr
		}

		if attempt == e.maxAttempts {
			break
		}

		wait := e.baseDelay*time.Duration(attempt) + time.Duration(rand.Float64()*float64(time.Second))
		e.logger.Warn("Transient backend error, retrying",
			logger.Int("attempt", attempt),
			logger.Int("max_attempts", e.maxAttempts),
			logger.Duration("wait", wait),
			logger.Error(lastErr))

		if err := e.sleep(ctx, wait); err != nil {
			return err
		}
	}

	return fmt.Errorf("%w: %w", ErrRetriesExhausted, lastErr)
}

// DoValue runs op through the executor and returns its value.
// On failure the zero value is returned alongside the error.
func DoValue[T any](ctx context.Context, e *Executor, op func() (T, error)) (T, error) {
	var result T
	err := e.Do(ctx, func() error {
		var opErr error
		result, opErr = op()
		return opErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// IsTransient reports whether the error looks like a rate/quota/exhaustion
// failure that is worth retrying
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	for _, signal := range transientSignals {
		if strings.Contains(text, signal) {
			return true
		}
	}
	return false
}
