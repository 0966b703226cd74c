package automation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/config"
	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/llm"
	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/metrics"
	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/models"
	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/notify"
)

// Store is the catalog access the pipelines need.
type Store interface {
	ListProducts(ctx context.Context, establishmentID string, categoryIDs []string) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	UpdateProductName(ctx context.Context, id, name string) error
	GetProductCategorization(ctx context.Context, id string) (*models.CategoryUpdate, error)
	UpdateProductCategories(ctx context.Context, id string, upd models.CategoryUpdate) error
	ListCategories(ctx context.Context, establishmentID string) ([]models.Category, error)
	ListSubcategories(ctx context.Context, establishmentID string) ([]models.Subcategory, error)
	GetPrompt(ctx context.Context, tool string) (string, error)
	SavePrompt(ctx context.Context, tool, prompt, description string) error
}

// ErrNoProducts is returned when a start request matches no products;
// no run is registered in that case.
var ErrNoProducts = errors.New("no products matched the request")

// ErrUndoWhileRunning is returned when an undo is requested for a kind
// that still has an active run.
var ErrUndoWhileRunning = errors.New("cannot undo while a run is active")

// Options tunes the pipelines. Zero values fall back to defaults that
// match the hosted dashboard's behavior.
type Options struct {
	BatchSize          int
	MaxParallelBatches int
	ItemWorkers        int
	RenameWorkers      int
	FallbackPolicy     string
	ResidualCategoryID string
	ItemDelay          time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 20
	}
	if o.MaxParallelBatches <= 0 {
		o.MaxParallelBatches = 2
	}
	if o.ItemWorkers <= 0 {
		o.ItemWorkers = 8
	}
	if o.RenameWorkers <= 0 {
		o.RenameWorkers = 4
	}
	if o.FallbackPolicy == "" {
		o.FallbackPolicy = config.FallbackSkip
	}
	if o.ResidualCategoryID == "" {
		o.ResidualCategoryID = "outros"
	}
	return o
}

// Service owns the automation pipelines, their registry and undo logs.
type Service struct {
	store  Store
	caller *llm.Caller
	usage  *metrics.UsageCollector
	sink   notify.Sink
	logger *slog.Logger
	opts   Options

	registry *Registry
	undo     *UndoStore

	quotaOnce sync.Once
}

// NewService wires a pipeline service.
func NewService(store Store, caller *llm.Caller, usage *metrics.UsageCollector, sink notify.Sink, logger *slog.Logger, opts Options) *Service {
	if sink == nil {
		sink = notify.NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		caller:   caller,
		usage:    usage,
		sink:     sink,
		logger:   logger,
		opts:     opts.withDefaults(),
		registry: NewRegistry(),
		undo:     NewUndoStore(),
	}
}

// Registry exposes run lookup for status endpoints.
func (s *Service) Registry() *Registry { return s.registry }

// Undo exposes the undo store for info endpoints.
func (s *Service) Undo() *UndoStore { return s.undo }

// Stop requests a cooperative stop of the active run of a kind.
// Returns false when nothing was running.
func (s *Service) Stop(kind RunKind) bool {
	rc := s.registry.Get(kind)
	if rc == nil || rc.Status().State != StateRunning {
		return false
	}
	rc.Stop()
	return true
}

// Rollback reverts all recorded mutations of a kind. Refused while a run
// of that kind is still active.
func (s *Service) Rollback(ctx context.Context, kind RunKind) (reverted, failed int, err error) {
	if s.registry.Active(kind) {
		return 0, 0, ErrUndoWhileRunning
	}
	reverted, failed = s.undo.RollbackAll(ctx, kind, s.store)
	return reverted, failed, nil
}

// notifyQuotaExhausted emits the quota alert at most once per process.
// Later quota errors still abort their runs but stay silent.
func (s *Service) notifyQuotaExhausted(err error) {
	s.quotaOnce.Do(func() {
		s.logger.Error("llm quota exhausted, halting automation", "error", err)
		s.sink.Emit(notify.EventQuotaExceeded, map[string]string{
			"message": "Cota da API de IA esgotada. Verifique o faturamento do provedor.",
		})
	})
}

// call runs one classifier call and books its usage against the run.
func (s *Service) call(ctx context.Context, rc *RunContext, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	text, usage, err := s.caller.Call(ctx, systemPrompt, userPrompt, maxTokens)
	if usage.Total() > 0 {
		tokens, cost := s.usage.Record(ctx, usage)
		rc.addUsage(tokens, cost)
	}
	if err != nil {
		if errors.Is(err, llm.ErrQuotaExhausted) {
			s.notifyQuotaExhausted(err)
		}
		return "", err
	}
	return text, nil
}

// prompt loads the stored prompt for a tool, falling back to the
// compiled-in default. An explicit override wins over both.
func (s *Service) prompt(ctx context.Context, tool, override string) string {
	if override != "" {
		return override
	}
	stored, err := s.store.GetPrompt(ctx, tool)
	if err != nil {
		s.logger.Warn("failed to load stored prompt, using default", "tool", tool, "error", err)
	}
	if stored != "" {
		return stored
	}
	return defaultPrompt(tool)
}

func (s *Service) pause() {
	if s.opts.ItemDelay > 0 {
		time.Sleep(s.opts.ItemDelay)
	}
}
