// Package automation implements the bulk catalog mutation pipelines:
// renaming products and assigning categories via an LLM classifier, with
// batching, retry, undo and live progress reporting.
package automation

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/notify"
)

// RunKind identifies one of the automation pipelines.
type RunKind string

const (
	KindRenamer     RunKind = "renamer"
	KindCategorizer RunKind = "categorizer"
	KindTargeted    RunKind = "categorizer_targeted"
)

// RunState is the lifecycle state of a run.
type RunState string

const (
	// StateRunning means batches are still being processed.
	StateRunning RunState = "running"
	// StateCompleted means all items were processed.
	StateCompleted RunState = "completed"
	// StateStopped means the operator requested a stop; partial work stands.
	StateStopped RunState = "stopped"
	// StateAborted means a fatal error (quota exhaustion, load failure)
	// ended the run early.
	StateAborted RunState = "aborted"
)

// ErrRunActive is returned when a run of the same kind is already running.
var ErrRunActive = errors.New("a run of this kind is already active")

// maxLogEntries bounds the per-run log buffer kept for the dashboard.
const maxLogEntries = 100

// Progress counts per-item outcomes of a run.
type Progress struct {
	Total         int     `json:"total"`
	Processed     int     `json:"processed"`
	Updated       int     `json:"updated"`
	Skipped       int     `json:"skipped"`
	Errors        int     `json:"errors"`
	TokensUsed    int64   `json:"tokens_used"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// LogEntry is one line in the bounded run log.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// RunStatus is the externally visible snapshot of a run.
type RunStatus struct {
	ID          string     `json:"id"`
	Kind        RunKind    `json:"kind"`
	State       RunState   `json:"state"`
	DryRun      bool       `json:"dry_run"`
	Progress    Progress   `json:"progress"`
	CurrentItem string     `json:"current_item,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// RunContext tracks one automation run: its cancellation flag, progress
// counters and bounded log. All mutation goes through its methods.
type RunContext struct {
	ID     string
	Kind   RunKind
	DryRun bool

	running atomic.Bool
	fatal   atomic.Bool

	mu          sync.Mutex
	state       RunState
	progress    Progress
	logs        []LogEntry
	currentItem string
	startedAt   time.Time
	finishedAt  *time.Time

	sink   notify.Sink
	logger *slog.Logger
}

func newRunContext(kind RunKind, dryRun bool, sink notify.Sink, logger *slog.Logger) *RunContext {
	rc := &RunContext{
		ID:        uuid.NewString(),
		Kind:      kind,
		DryRun:    dryRun,
		state:     StateRunning,
		startedAt: time.Now(),
		sink:      sink,
	}
	rc.logger = logger.With("run_id", rc.ID, "kind", string(kind))
	rc.running.Store(true)
	return rc
}

// Running reports whether the run should keep processing. Batch loops
// check this between items; a false value means stop cooperatively.
func (rc *RunContext) Running() bool {
	return rc.running.Load() && !rc.fatal.Load()
}

// Stop requests a cooperative stop. In-flight items finish; no new
// batch starts. Idempotent.
func (rc *RunContext) Stop() {
	rc.running.Store(false)
}

// abort flags a fatal condition. Like Stop, but the run ends as aborted.
func (rc *RunContext) abort() {
	rc.fatal.Store(true)
}

// finish moves the run to a terminal state. The state passed in is used
// unless a stop or abort was flagged during the run.
func (rc *RunContext) finish(state RunState) {
	if rc.fatal.Load() {
		state = StateAborted
	} else if !rc.running.Load() && state == StateCompleted {
		state = StateStopped
	}
	rc.running.Store(false)

	now := time.Now()
	rc.mu.Lock()
	rc.state = state
	rc.finishedAt = &now
	rc.currentItem = ""
	rc.mu.Unlock()

	rc.emitProgress()
	rc.logf("info", "run finished: %s", state)
}

// Status returns a consistent snapshot of the run.
func (rc *RunContext) Status() RunStatus {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return RunStatus{
		ID:          rc.ID,
		Kind:        rc.Kind,
		State:       rc.state,
		DryRun:      rc.DryRun,
		Progress:    rc.progress,
		CurrentItem: rc.currentItem,
		StartedAt:   rc.startedAt,
		FinishedAt:  rc.finishedAt,
	}
}

// Logs returns a copy of the bounded log buffer.
func (rc *RunContext) Logs() []LogEntry {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make([]LogEntry, len(rc.logs))
	copy(out, rc.logs)
	return out
}

func (rc *RunContext) setTotal(n int) {
	rc.mu.Lock()
	rc.progress.Total = n
	rc.mu.Unlock()
	rc.emitProgress()
}

func (rc *RunContext) setCurrent(name string) {
	rc.mu.Lock()
	rc.currentItem = name
	rc.mu.Unlock()
}

// outcome of one processed item.
type outcome int

const (
	outcomeUpdated outcome = iota
	outcomeSkipped
	outcomeError
)

// tick records one processed item. Processed always advances, exactly one
// of the outcome counters advances with it.
func (rc *RunContext) tick(o outcome) {
	rc.mu.Lock()
	rc.progress.Processed++
	switch o {
	case outcomeUpdated:
		rc.progress.Updated++
	case outcomeSkipped:
		rc.progress.Skipped++
	case outcomeError:
		rc.progress.Errors++
	}
	rc.mu.Unlock()
	rc.emitProgress()
}

func (rc *RunContext) addUsage(tokens int64, cost float64) {
	rc.mu.Lock()
	rc.progress.TokensUsed += tokens
	rc.progress.EstimatedCost += cost
	rc.mu.Unlock()
}

func (rc *RunContext) emitProgress() {
	rc.sink.Emit(string(rc.Kind)+"_progress", rc.Status())
}

// logf appends to the bounded run log, mirrors to the structured logger
// and pushes the line to dashboard observers.
func (rc *RunContext) logf(level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	entry := LogEntry{Timestamp: time.Now(), Level: level, Message: msg}

	rc.mu.Lock()
	rc.logs = append(rc.logs, entry)
	if len(rc.logs) > maxLogEntries {
		rc.logs = rc.logs[len(rc.logs)-maxLogEntries:]
	}
	rc.mu.Unlock()

	switch level {
	case "error":
		rc.logger.Error(msg)
	case "warn":
		rc.logger.Warn(msg)
	default:
		rc.logger.Info(msg)
	}
	rc.sink.Emit(string(rc.Kind)+"_log", entry)
}

// Registry enforces one active run per kind and keeps the last run of
// each kind around so its status stays queryable after it finishes.
type Registry struct {
	mu   sync.Mutex
	runs map[RunKind]*RunContext
}

// NewRegistry creates an empty run registry.
func NewRegistry() *Registry {
	return &Registry{runs: make(map[RunKind]*RunContext)}
}

// begin registers a new run of the given kind. Returns ErrRunActive when
// a run of that kind has not reached a terminal state yet.
func (g *Registry) begin(kind RunKind, dryRun bool, sink notify.Sink, logger *slog.Logger) (*RunContext, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if prev, ok := g.runs[kind]; ok && prev.Status().State == StateRunning {
		return nil, fmt.Errorf("%s: %w", kind, ErrRunActive)
	}
	rc := newRunContext(kind, dryRun, sink, logger)
	g.runs[kind] = rc
	return rc, nil
}

// Get returns the most recent run of the given kind, or nil.
func (g *Registry) Get(kind RunKind) *RunContext {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.runs[kind]
}

// Active reports whether a run of the given kind is currently running.
func (g *Registry) Active(kind RunKind) bool {
	rc := g.Get(kind)
	return rc != nil && rc.Status().State == StateRunning
}
