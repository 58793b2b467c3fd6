package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"scantocookbook/internal/logging"
)

// Policy describes how a failing operation is retried. The zero value performs a
// single attempt.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	// Multiplier grows the delay after each failure when greater than 1.
	Multiplier float64
	// Jitter randomizes each delay between zero and its computed value.
	Jitter bool

	logger  *slog.Logger
	sleeper func(time.Duration)
}

// Option customizes a Policy.
type Option func(*Policy)

// WithMultiplier enables exponential growth of the delay.
func WithMultiplier(m float64) Option {
	return func(p *Policy) { p.Multiplier = m }
}

// WithJitter randomizes delays.
func WithJitter() Option {
	return func(p *Policy) { p.Jitter = true }
}

// WithLogger attaches a logger for per-attempt warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Policy) { p.logger = logger }
}

// WithSleeper overrides how pauses are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(p *Policy) { p.sleeper = sleeper }
}

// New builds a policy. Attempt counts below one are treated as one.
func New(maxAttempts int, delay time.Duration, opts ...Option) Policy {
	p := Policy{MaxAttempts: maxAttempts, Delay: delay}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Attempts returns the effective number of attempts.
func (p Policy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// DelayFor returns the pause after the given failed attempt (1-based).
func (p Policy) DelayFor(attempt int) time.Duration {
	if p.Delay <= 0 {
		return 0
	}
	delay := p.Delay
	if p.Multiplier > 1 {
		for i := 1; i < attempt; i++ {
			delay = time.Duration(float64(delay) * p.Multiplier)
		}
	}
	if p.Jitter {
		delay = time.Duration(rand.Int64N(int64(delay) + 1)) // #nosec G404 -- timing jitter only
	}
	return delay
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }

func (e permanentError) Unwrap() error { return e.err }

// Permanent marks an error that must not be retried, such as a missing file.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Do runs fn until it succeeds, returns a permanent error, the context ends, or
// the attempts are exhausted.
func (p Policy) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	_, err := DoValue(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.Attempts()
	logger := p.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		if IsPermanent(err) {
			return zero, err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				return zero, err
			}
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		delay := p.DelayFor(attempt)
		logger.Warn("operation failed, retrying",
			logging.String("operation", op),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
			logging.Duration("delay", delay),
			logging.Error(err),
			logging.String(logging.FieldEventType, "retry_attempt_failed"),
		)
		if err := p.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	logging.ErrorWithContext(logger, "operation failed after all attempts", "retry_exhausted",
		logging.String("operation", op),
		logging.Int("attempts", attempts),
		logging.Error(lastErr),
		logging.String(logging.FieldErrorHint, "check store connectivity and credentials"),
	)
	return zero, fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (p Policy) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if p.sleeper != nil {
		p.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
