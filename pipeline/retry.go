package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"idx_sync/models"
)

// Retry re-runs a failed upsert with exponential backoff. Only store errors
// are retried; a malformed listing fails the same way every time.
type Retry struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Do calls fn until it succeeds, returns a non-store error, or runs out of
// attempts.
func (r Retry) Do(ctx context.Context, logger zerolog.Logger, op string, fn func() error) error {
	attempts := max(r.MaxAttempts, 1)
	delay := r.BaseDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil || !errors.Is(lastErr, models.ErrStore) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		logger.Warn().
			Err(lastErr).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Dur("backoff", delay).
			Msgf("%s failed, retrying", op)

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(delay):
		}
		delay *= 2
	}

	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, lastErr)
}
