package async

import (
	"context"
	"log/slog"
	"time"

	"muniflow/internal/config"
)

// RetryPolicy wraps a fallible operation with bounded exponential-backoff
// retry. The delay starts at InitialDelay and doubles before each retry,
// capped at MaxDelay. Cancellation is checked before every sleep and
// before every attempt, so a cancel arriving mid-backoff aborts promptly.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration

	logger *slog.Logger
}

// NewRetryPolicy creates a retry policy from configuration
func NewRetryPolicy(cfg config.RetryConfig, logger *slog.Logger) RetryPolicy {
	if logger == nil {
		logger = slog.Default()
	}
	return RetryPolicy{
		MaxRetries:   cfg.MaxRetries,
		InitialDelay: cfg.InitialDelay,
		MaxDelay:     cfg.MaxDelay,
		logger:       logger,
	}
}

// DefaultRetryPolicy returns the stock policy: 3 retries, 500ms base delay
func DefaultRetryPolicy(logger *slog.Logger) RetryPolicy {
	return NewRetryPolicy(config.Default().Retry, logger)
}

// Execute runs op, retrying transient failures up to MaxRetries times
// (MaxRetries+1 attempts total). Cancellation errors are never retried.
// When all attempts fail the returned terminal error names the number of
// attempts made.
func (p RetryPolicy) Execute(ctx context.Context, name string, op func(context.Context) error) error {
	delay := p.InitialDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return NewCancellationError(name, err)
		}

		attempts++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if IsCancellation(err) {
			p.logger.InfoContext(ctx, "operation_cancelled",
				slog.String("op", name),
				slog.Int("attempt", attempts))
			return err
		}
		lastErr = err

		if attempt >= p.MaxRetries {
			break
		}

		p.logger.WarnContext(ctx, "retry_scheduled",
			slog.String("op", name),
			slog.Int("attempt", attempts),
			slog.Int("max_attempts", p.MaxRetries+1),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return NewCancellationError(name, ctx.Err())
		}

		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return NewTerminalError(name, attempts, lastErr)
}
