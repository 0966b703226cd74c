// Package notify delivers best-effort events to dashboard observers.
package notify

// Sink receives fire-and-forget events (progress ticks, log lines, the
// one-shot quota alert). Implementations must never return an error or
// block the pipeline; delivery failures are dropped.
type Sink interface {
	Emit(event string, payload any)
}

// Event names emitted by the pipeline.
const (
	EventQuotaExceeded = "quota_exceeded"
	EventDailyStats    = "daily_stats_update"
)

// NopSink discards all events.
type NopSink struct{}

// Emit implements Sink.
func (NopSink) Emit(string, any) {}
