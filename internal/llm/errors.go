package llm

import (
	"context"
	"errors"
	"strings"
)

// Error kinds resolved once at the provider boundary. Callers check these
// with errors.Is instead of string-matching provider messages.
var (
	// ErrRateLimited indicates transient throttling (RPM/TPM). Retryable.
	ErrRateLimited = errors.New("rate limited")

	// ErrQuotaExhausted indicates the account's credits or billing limit is
	// spent. Not retryable; aborts the run.
	ErrQuotaExhausted = errors.New("quota exhausted")
)

// quotaMarkers identify true quota/billing exhaustion. A generic 429 or
// "rate limit" message alone never counts: providers use the same status
// code for transient throttling.
var quotaMarkers = []string{
	"insufficient_quota",
	"insufficient quota",
	"billing",
	"credit balance",
	"exceeded your current quota",
}

var rateLimitMarkers = []string{
	"rate limit",
	"rate_limit",
	"too many requests",
	"429",
	"overloaded",
}

// classifyErr maps a provider error onto the closed error-kind set.
// Quota markers are checked first so "insufficient_quota" inside a 429
// body is still fatal; plain throttling and timeouts stay retryable.
func classifyErr(err error) error {
	if err == nil {
		return nil
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return errors.Join(ErrQuotaExhausted, err)
		}
	}
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return errors.Join(ErrRateLimited, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrRateLimited, err)
	}

	return err
}
