// Package retry runs an operation with exponential backoff. Writes to
// the shared state store go through it so a transient redis hiccup
// does not drop a producer update.
package retry

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Config controls the backoff schedule. Zero values fall back to the
// defaults noted per field.
type Config struct {
	Attempts   int           // total tries, default 3
	BaseDelay  time.Duration // first wait, default 100ms
	MaxDelay   time.Duration // backoff ceiling, default 5s
	Multiplier float64       // growth per attempt, default 2
	Logger     *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.Multiplier <= 1 {
		c.Multiplier = 2
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Do runs op until it succeeds, the attempts are exhausted or ctx is
// done. On exhaustion the last error is returned.
func Do(ctx context.Context, cfg Config, op func() error) error {
	cfg = cfg.withDefaults()

	delay := cfg.BaseDelay
	var lastErr error

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			if attempt > 1 {
				cfg.Logger.Debug("Operation recovered", zap.Int("attempt", attempt))
			}
			return nil
		}
		if attempt == cfg.Attempts {
			return lastErr
		}

		cfg.Logger.Warn("Operation failed, backing off",
			zap.Error(lastErr),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
		)

		// Up to 10% jitter so concurrent writers spread out.
		wait := delay + time.Duration(rand.Int63n(int64(delay)/10+1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}
