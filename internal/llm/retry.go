package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// maxAttempts is the total number of tries for a rate-limited call.
const maxAttempts = 5

// backoffBase is the first wait; attempt n waits backoffBase * 2^n
// (0.5s, 1s, 2s, 4s, 8s).
const backoffBase = 500 * time.Millisecond

// Caller wraps a CompletionService with retry/backoff for transient
// failures and immediate propagation of fatal ones.
type Caller struct {
	svc    CompletionService
	logger *slog.Logger

	// sleep is replaceable in tests.
	sleep func(time.Duration)
}

// NewCaller creates a retrying wrapper around a completion service.
func NewCaller(svc CompletionService, logger *slog.Logger) *Caller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Caller{svc: svc, logger: logger, sleep: time.Sleep}
}

// Call runs one classification call, retrying rate-limited failures with
// exponential backoff. Quota exhaustion is returned on first sight; any
// other error is returned as-is for the caller to absorb per batch.
func (r *Caller) Call(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, Usage, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		text, usage, err := r.svc.Complete(ctx, systemPrompt, userPrompt, maxTokens)
		if err == nil {
			return text, usage, nil
		}
		if errors.Is(err, ErrQuotaExhausted) {
			return "", Usage{}, err
		}
		if !errors.Is(err, ErrRateLimited) {
			return "", Usage{}, err
		}

		lastErr = err
		wait := backoffBase << attempt
		r.logger.Warn("rate limited, backing off",
			"wait", wait,
			"attempt", attempt+1,
			"max_attempts", maxAttempts,
		)
		r.sleep(wait)

		if ctx.Err() != nil {
			return "", Usage{}, ctx.Err()
		}
	}
	return "", Usage{}, fmt.Errorf("rate limit retries exhausted: %w", lastErr)
}
