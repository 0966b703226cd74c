// Package metrics provides in-memory token usage and cost accounting.
package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/llm"
	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/models"
	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/notify"
)

// gpt-4o-mini pricing, USD per token.
const (
	inputTokenCost  = 0.00015 / 1000
	outputTokenCost = 0.00060 / 1000
)

// Snapshot is a point-in-time view of accumulated usage.
type Snapshot struct {
	Date          string  `json:"date"`
	Tokens        int64   `json:"tokens"`
	EstimatedCost float64 `json:"cost"`
	Calls         int64   `json:"calls"`
}

// DailyStore persists per-day usage aggregates.
type DailyStore interface {
	RecordDailyUsage(ctx context.Context, day time.Time, tokens int64, cost float64) error
	GetDailyUsage(ctx context.Context, day time.Time) (*models.DailyUsage, error)
}

// UsageCollector accumulates token spend across all runs, persists daily
// aggregates, and notifies observers. All methods are thread-safe.
type UsageCollector struct {
	mu     sync.Mutex
	tokens int64
	cost   float64
	calls  int64

	daily  DailyStore
	sink   notify.Sink
	logger *slog.Logger
}

// NewUsageCollector creates a collector. daily and sink may be nil.
func NewUsageCollector(daily DailyStore, sink notify.Sink, logger *slog.Logger) *UsageCollector {
	if sink == nil {
		sink = notify.NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UsageCollector{daily: daily, sink: sink, logger: logger}
}

// Record accounts for one classifier call and returns the tokens and
// estimated cost of that call. Persistence failures are logged, not
// propagated: usage accounting must never fail the pipeline.
func (c *UsageCollector) Record(ctx context.Context, u llm.Usage) (int64, float64) {
	tokens := u.Total()
	cost := float64(u.PromptTokens)*inputTokenCost + float64(u.CompletionTokens)*outputTokenCost

	c.mu.Lock()
	c.tokens += tokens
	c.cost += cost
	c.calls++
	c.mu.Unlock()

	if c.daily != nil {
		if err := c.daily.RecordDailyUsage(ctx, time.Now(), tokens, cost); err != nil {
			c.logger.Warn("failed to persist daily usage", "error", err)
		}
	}
	c.sink.Emit(notify.EventDailyStats, c.Snapshot())

	return tokens, cost
}

// Snapshot returns the in-memory aggregate since process start.
func (c *UsageCollector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Date:          time.Now().Format("2006-01-02"),
		Tokens:        c.tokens,
		EstimatedCost: c.cost,
		Calls:         c.calls,
	}
}

// Today returns the persisted aggregate for the current day, falling back
// to the in-memory snapshot when no daily store is configured.
func (c *UsageCollector) Today(ctx context.Context) Snapshot {
	if c.daily == nil {
		return c.Snapshot()
	}
	day, err := c.daily.GetDailyUsage(ctx, time.Now())
	if err != nil {
		c.logger.Warn("failed to load daily usage", "error", err)
		return c.Snapshot()
	}
	return Snapshot{
		Date:          day.Date,
		Tokens:        day.Tokens,
		EstimatedCost: day.Cost,
		Calls:         day.Calls,
	}
}
