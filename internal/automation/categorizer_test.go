package automation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/llm"
	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/metrics"
	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/models"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// fakeStore is an in-memory Store for pipeline tests.
type fakeStore struct {
	mu            sync.Mutex
	products      []models.Product
	categories    []models.Category
	subcategories []models.Subcategory
	prompts       map[string]string

	nameWrites map[string]string
	catWrites  map[string]models.CategoryUpdate
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		prompts:    make(map[string]string),
		nameWrites: make(map[string]string),
		catWrites:  make(map[string]models.CategoryUpdate),
	}
}

func (f *fakeStore) ListProducts(ctx context.Context, est string, categoryIDs []string) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(categoryIDs) == 0 {
		return append([]models.Product(nil), f.products...), nil
	}
	var out []models.Product
	for _, p := range f.products {
		for _, want := range categoryIDs {
			if containsID(p.CategoriesIDs, want) {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.products {
		if models.MustRecordIDString(f.products[i].ID) == id {
			p := f.products[i]
			return &p, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeStore) UpdateProductName(ctx context.Context, id, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nameWrites[id] = name
	return nil
}

func (f *fakeStore) GetProductCategorization(ctx context.Context, id string) (*models.CategoryUpdate, error) {
	p, err := f.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.CategoryUpdate{
		CategoriesIDs:  p.CategoriesIDs,
		SubcategoryIDs: p.SubcategoryIDs,
		Shelves:        p.Shelves,
		ShelvesIDs:     p.ShelvesIDs,
	}, nil
}

func (f *fakeStore) UpdateProductCategories(ctx context.Context, id string, upd models.CategoryUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catWrites[id] = upd
	return nil
}

func (f *fakeStore) ListCategories(ctx context.Context, est string) ([]models.Category, error) {
	return append([]models.Category(nil), f.categories...), nil
}

func (f *fakeStore) ListSubcategories(ctx context.Context, est string) ([]models.Subcategory, error) {
	return append([]models.Subcategory(nil), f.subcategories...), nil
}

func (f *fakeStore) GetPrompt(ctx context.Context, tool string) (string, error) {
	return f.prompts[tool], nil
}

func (f *fakeStore) SavePrompt(ctx context.Context, tool, prompt, description string) error {
	f.prompts[tool] = prompt
	return nil
}

// scriptedLLM replays canned responses in call order.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (s *scriptedLLM) Complete(ctx context.Context, system, user string, maxTokens int) (string, llm.Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, system)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", llm.Usage{}, s.errs[i]
	}
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return s.responses[i], llm.Usage{PromptTokens: 100, CompletionTokens: 20}, nil
}

func (s *scriptedLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testService(store *fakeStore, svc llm.CompletionService, opts Options) *Service {
	caller := llm.NewCaller(svc, testLogger())
	usage := metrics.NewUsageCollector(nil, nil, testLogger())
	return NewService(store, caller, usage, nil, testLogger(), opts)
}

func waitForFinish(t *testing.T, rc *RunContext) RunStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st := rc.Status()
		if st.State != StateRunning {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("run did not finish in time")
	return RunStatus{}
}

func catalogFixture() *fakeStore {
	store := newFakeStore()
	store.categories = []models.Category{
		{ID: surrealmodels.NewRecordID("category", "catA"), CategoryID: "catA", Name: "Açougue", IsActive: true},
		{ID: surrealmodels.NewRecordID("category", "catB"), CategoryID: "catB", Name: "Bebidas", IsActive: true},
		{ID: surrealmodels.NewRecordID("category", "merc"), CategoryID: "mercearia", Name: "Mercearia", IsActive: true},
	}
	store.subcategories = []models.Subcategory{
		{ID: surrealmodels.NewRecordID("subcategory", "subA"), SubcategoryID: "subA", Name: "Aves", CategoryID: "catA"},
		{ID: surrealmodels.NewRecordID("subcategory", "subB"), SubcategoryID: "subB", Name: "Refrigerantes", CategoryID: "catB"},
		{ID: surrealmodels.NewRecordID("subcategory", "subM"), SubcategoryID: "subM", Name: "Enlatados", CategoryID: "mercearia"},
	}
	return store
}

func TestCategorizeEndToEnd(t *testing.T) {
	store := catalogFixture()
	store.products = []models.Product{{
		ID:   surrealmodels.NewRecordID("product", "p1"),
		Name: "COZ FRANGO",
	}}

	svc := testService(store, &scriptedLLM{responses: []string{`{"1": "subA"}`}}, Options{})

	rc, err := svc.StartCategorize(context.Background(), CategorizeParams{EstablishmentID: "est1"})
	if err != nil {
		t.Fatalf("StartCategorize: %v", err)
	}

	st := waitForFinish(t, rc)
	if st.State != StateCompleted {
		t.Fatalf("state = %s, want completed", st.State)
	}
	if st.Progress.Updated != 1 || st.Progress.Processed != 1 {
		t.Errorf("progress = %+v, want 1 processed, 1 updated", st.Progress)
	}

	upd, ok := store.catWrites["p1"]
	if !ok {
		t.Fatal("product p1 was never written")
	}
	if len(upd.CategoriesIDs) != 1 || upd.CategoriesIDs[0] != "catA" {
		t.Errorf("categories = %v, want [catA]", upd.CategoriesIDs)
	}
	if len(upd.SubcategoryIDs) != 1 || upd.SubcategoryIDs[0] != "subA" {
		t.Errorf("subcategories = %v, want [subA]", upd.SubcategoryIDs)
	}
	if len(upd.Shelves) != 1 || upd.Shelves[0].SubcategoryName != "Aves" {
		t.Errorf("shelves = %+v, want one Aves shelf", upd.Shelves)
	}

	if svc.Undo().Count(KindCategorizer) != 1 {
		t.Errorf("undo log count = %d, want 1", svc.Undo().Count(KindCategorizer))
	}
}

// When no answer resolves, the batch is retried exactly once with the
// strict-JSON instruction. A second garbage response is final.
func TestCategorizeAllUnresolvedRetriesOnce(t *testing.T) {
	store := catalogFixture()
	store.products = []models.Product{
		{ID: surrealmodels.NewRecordID("product", "p1"), Name: "COZ FRANGO"},
		{ID: surrealmodels.NewRecordID("product", "p2"), Name: "GUARANA 2L"},
	}

	llmSvc := &scriptedLLM{responses: []string{
		"não consigo ajudar com isso",
		"ainda não consigo",
	}}
	svc := testService(store, llmSvc, Options{})

	rc, err := svc.StartCategorize(context.Background(), CategorizeParams{EstablishmentID: "est1"})
	if err != nil {
		t.Fatalf("StartCategorize: %v", err)
	}

	st := waitForFinish(t, rc)
	if st.State != StateCompleted {
		t.Fatalf("state = %s, want completed", st.State)
	}
	if got := llmSvc.callCount(); got != 2 {
		t.Fatalf("classifier calls = %d, want exactly 2 (one retry, no third attempt)", got)
	}
	if st.Progress.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", st.Progress.Skipped)
	}
	if len(store.catWrites) != 0 {
		t.Errorf("no product should have been written, got %v", store.catWrites)
	}
}

// The retry call carries the strict-JSON instruction.
func TestCategorizeRetryUsesStrictInstruction(t *testing.T) {
	store := catalogFixture()
	store.products = []models.Product{
		{ID: surrealmodels.NewRecordID("product", "p1"), Name: "COZ FRANGO"},
	}

	llmSvc := &scriptedLLM{responses: []string{
		"sem resposta útil",
		`{"1": "subA"}`,
	}}
	svc := testService(store, llmSvc, Options{})

	rc, _ := svc.StartCategorize(context.Background(), CategorizeParams{EstablishmentID: "est1"})
	st := waitForFinish(t, rc)

	if st.Progress.Updated != 1 {
		t.Fatalf("updated = %d, want 1", st.Progress.Updated)
	}
	llmSvc.mu.Lock()
	defer llmSvc.mu.Unlock()
	if len(llmSvc.prompts) != 2 {
		t.Fatalf("calls = %d, want 2", len(llmSvc.prompts))
	}
	if !strings.Contains(llmSvc.prompts[1], "ESTRITAMENTE") {
		t.Errorf("retry prompt missing strict instruction: %q", llmSvc.prompts[1])
	}
	if strings.Contains(llmSvc.prompts[0], "ESTRITAMENTE") {
		t.Errorf("first prompt should not carry the strict instruction")
	}
}

// Quota exhaustion aborts the run and leaves the remaining batches
// untouched.
func TestCategorizeQuotaAborts(t *testing.T) {
	store := catalogFixture()
	store.products = make([]models.Product, 0, 40)
	for i := 0; i < 40; i++ {
		store.products = append(store.products, models.Product{
			ID:   surrealmodels.NewRecordID("product", productID(i)),
			Name: "Produto " + productID(i),
		})
	}

	quotaErr := errors.Join(llm.ErrQuotaExhausted, errors.New("insufficient_quota"))
	llmSvc := &scriptedLLM{
		responses: []string{""},
		errs:      []error{quotaErr, quotaErr},
	}
	svc := testService(store, llmSvc, Options{MaxParallelBatches: 1})

	rc, err := svc.StartCategorize(context.Background(), CategorizeParams{EstablishmentID: "est1"})
	if err != nil {
		t.Fatalf("StartCategorize: %v", err)
	}

	st := waitForFinish(t, rc)
	if st.State != StateAborted {
		t.Fatalf("state = %s, want aborted", st.State)
	}
	if len(store.catWrites) != 0 {
		t.Errorf("no writes expected after quota abort, got %d", len(store.catWrites))
	}
}

// Residual fallback files unresolved products under the configured
// catch-all category instead of skipping them.
func TestCategorizeResidualFallback(t *testing.T) {
	store := catalogFixture()
	store.categories = append(store.categories, models.Category{
		ID: surrealmodels.NewRecordID("category", "outros"), CategoryID: "outros", Name: "Outros", IsActive: true,
	})
	store.subcategories = append(store.subcategories, models.Subcategory{
		ID: surrealmodels.NewRecordID("subcategory", "outros-geral"), SubcategoryID: "outros-geral", Name: "Geral", CategoryID: "outros",
	})
	store.products = []models.Product{
		{ID: surrealmodels.NewRecordID("product", "p1"), Name: "PRODUTO MISTERIOSO"},
	}

	llmSvc := &scriptedLLM{responses: []string{
		`{"1": "nada-a-ver"}`,
		`{"1": "nada-a-ver"}`,
	}}
	svc := testService(store, llmSvc, Options{
		FallbackPolicy:     "residual",
		ResidualCategoryID: "outros",
	})

	rc, _ := svc.StartCategorize(context.Background(), CategorizeParams{EstablishmentID: "est1"})
	st := waitForFinish(t, rc)

	if st.Progress.Updated != 1 {
		t.Fatalf("updated = %d, want 1 (residual write)", st.Progress.Updated)
	}
	upd := store.catWrites["p1"]
	if len(upd.CategoriesIDs) != 1 || upd.CategoriesIDs[0] != "outros" {
		t.Errorf("categories = %v, want [outros]", upd.CategoriesIDs)
	}
}

// The mercearia aisle never appears in the classification vocabulary.
func TestVocabularyExcludesCatchAll(t *testing.T) {
	store := catalogFixture()
	svc := testService(store, &scriptedLLM{responses: []string{""}}, Options{})

	vocab, err := svc.loadVocabulary(context.Background(), "est1")
	if err != nil {
		t.Fatalf("loadVocabulary: %v", err)
	}
	for _, id := range vocab.candidates {
		if vocab.entries[id].cat.CategoryID == "mercearia" {
			t.Errorf("vocabulary contains mercearia subcategory %s", id)
		}
	}
	if len(vocab.candidates) != 2 {
		t.Errorf("candidates = %v, want subA and subB only", vocab.candidates)
	}
}

// Dry runs classify but never write and never append to the undo log.
func TestCategorizeDryRun(t *testing.T) {
	store := catalogFixture()
	store.products = []models.Product{
		{ID: surrealmodels.NewRecordID("product", "p1"), Name: "COZ FRANGO"},
	}
	svc := testService(store, &scriptedLLM{responses: []string{`{"1": "subA"}`}}, Options{})

	rc, err := svc.StartCategorize(context.Background(), CategorizeParams{EstablishmentID: "est1", DryRun: true})
	if err != nil {
		t.Fatalf("StartCategorize: %v", err)
	}
	st := waitForFinish(t, rc)

	if st.Progress.Updated != 1 {
		t.Errorf("updated = %d, want 1", st.Progress.Updated)
	}
	if len(store.catWrites) != 0 {
		t.Errorf("dry run must not write, got %v", store.catWrites)
	}
	if svc.Undo().Count(KindCategorizer) != 0 {
		t.Errorf("dry run must not record undo entries")
	}
}

func TestStartCategorizeNoProducts(t *testing.T) {
	store := catalogFixture()
	svc := testService(store, &scriptedLLM{responses: []string{""}}, Options{})

	if _, err := svc.StartCategorize(context.Background(), CategorizeParams{EstablishmentID: "est1"}); !errors.Is(err, ErrNoProducts) {
		t.Fatalf("err = %v, want ErrNoProducts", err)
	}
	if svc.Registry().Get(KindCategorizer) != nil {
		t.Error("no run should be registered for an empty product set")
	}
}

func productID(i int) string {
	return string(rune('a'+i/26)) + string(rune('a'+i%26))
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	if got := truncate("curto", 200); got != "curto" {
		t.Errorf("truncate passthrough = %q, want %q", got, "curto")
	}

	// "ç" is two bytes; a cut at byte 5 lands mid-rune and must back up.
	s := strings.Repeat("ç", 100)
	got := truncate(s, 5)
	if !utf8.ValidString(got) {
		t.Errorf("truncate produced invalid UTF-8: %q", got)
	}
	if want := strings.Repeat("ç", 2) + "..."; got != want {
		t.Errorf("truncate = %q, want %q", got, want)
	}
}
