package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/automation"
	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/llm"
	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/metrics"
	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/models"
	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/notify"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

type fakeStore struct {
	mu       sync.Mutex
	products []models.Product
	cats     []models.Category
	subs     []models.Subcategory
	prompts  map[string]string
	writes   map[string]models.CategoryUpdate
}

func (f *fakeStore) ListProducts(ctx context.Context, est string, categoryIDs []string) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Product(nil), f.products...), nil
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
	return nil, nil
}

func (f *fakeStore) UpdateProductName(ctx context.Context, id, name string) error { return nil }

func (f *fakeStore) GetProductCategorization(ctx context.Context, id string) (*models.CategoryUpdate, error) {
	return &models.CategoryUpdate{}, nil
}

func (f *fakeStore) UpdateProductCategories(ctx context.Context, id string, upd models.CategoryUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes[id] = upd
	return nil
}

func (f *fakeStore) ListCategories(ctx context.Context, est string) ([]models.Category, error) {
	return f.cats, nil
}

func (f *fakeStore) ListSubcategories(ctx context.Context, est string) ([]models.Subcategory, error) {
	return f.subs, nil
}

func (f *fakeStore) GetPrompt(ctx context.Context, tool string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[tool], nil
}

func (f *fakeStore) SavePrompt(ctx context.Context, tool, prompt, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts[tool] = prompt
	return nil
}

// stubLLM always answers with the same text.
type stubLLM struct {
	answer string
	delay  time.Duration
}

func (s *stubLLM) Complete(ctx context.Context, system, user string, maxTokens int) (string, llm.Usage, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.answer, llm.Usage{PromptTokens: 10, CompletionTokens: 5}, nil
}

func newTestServer(t *testing.T, store *fakeStore, answer string, delay time.Duration) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	caller := llm.NewCaller(&stubLLM{answer: answer, delay: delay}, logger)
	usage := metrics.NewUsageCollector(nil, nil, logger)
	svc := automation.NewService(store, caller, usage, nil, logger, automation.Options{})
	return New(svc, notify.NewHub(logger), usage, store, logger)
}

func fixtureStore() *fakeStore {
	return &fakeStore{
		products: []models.Product{
			{ID: surrealmodels.NewRecordID("product", "p1"), Name: "COZ FRANGO"},
		},
		cats: []models.Category{
			{ID: surrealmodels.NewRecordID("category", "catA"), CategoryID: "catA", Name: "Açougue", IsActive: true},
		},
		subs: []models.Subcategory{
			{ID: surrealmodels.NewRecordID("subcategory", "subA"), SubcategoryID: "subA", Name: "Aves", CategoryID: "catA"},
		},
		prompts: make(map[string]string),
		writes:  make(map[string]models.CategoryUpdate),
	}
}

func postJSON(t *testing.T, srv *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, fixtureStore(), "", 0)
	if w := get(t, srv, "/health"); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestStartCategorizer(t *testing.T) {
	srv := newTestServer(t, fixtureStore(), `{"1": "subA"}`, 0)

	w := postJSON(t, srv, "/api/categorizer/start", StartRequest{EstablishmentID: "est1"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}

	var st automation.RunStatus
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Kind != automation.KindCategorizer {
		t.Errorf("kind = %s, want categorizer", st.Kind)
	}
	if st.ID == "" {
		t.Error("run id missing")
	}
}

func TestStartConflictWhileRunning(t *testing.T) {
	// A slow classifier keeps the first run active while the second
	// start comes in.
	srv := newTestServer(t, fixtureStore(), `{"1": "subA"}`, 200*time.Millisecond)

	if w := postJSON(t, srv, "/api/categorizer/start", StartRequest{EstablishmentID: "est1"}); w.Code != http.StatusAccepted {
		t.Fatalf("first start = %d, want 202", w.Code)
	}
	if w := postJSON(t, srv, "/api/categorizer/start", StartRequest{EstablishmentID: "est1"}); w.Code != http.StatusConflict {
		t.Fatalf("second start = %d, want 409", w.Code)
	}
}

func TestStartValidation(t *testing.T) {
	srv := newTestServer(t, fixtureStore(), "", 0)

	if w := postJSON(t, srv, "/api/categorizer/start", StartRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("missing establishment = %d, want 400", w.Code)
	}
	if w := postJSON(t, srv, "/api/unknown-tool/start", StartRequest{EstablishmentID: "est1"}); w.Code != http.StatusNotFound {
		t.Errorf("unknown tool = %d, want 404", w.Code)
	}
}

func TestStatusIdleBeforeAnyRun(t *testing.T) {
	srv := newTestServer(t, fixtureStore(), "", 0)

	w := get(t, srv, "/api/renamer/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["state"] != "idle" {
		t.Errorf("state = %v, want idle", resp["state"])
	}
}

func TestStopWithoutRun(t *testing.T) {
	srv := newTestServer(t, fixtureStore(), "", 0)

	w := postJSON(t, srv, "/api/renamer/stop", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp map[string]bool
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["stopping"] {
		t.Error("stopping = true with no active run")
	}
}

func TestUndoEmpty(t *testing.T) {
	srv := newTestServer(t, fixtureStore(), "", 0)

	w := postJSON(t, srv, "/api/categorizer/undo", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["reverted"] != 0 || resp["failed"] != 0 {
		t.Errorf("undo = %v, want zeros", resp)
	}
}

func TestPromptRoundTrip(t *testing.T) {
	srv := newTestServer(t, fixtureStore(), "", 0)

	w := postJSON(t, srv, "/api/prompts/renamer", nil)
	if w.Code != http.StatusMethodNotAllowed && w.Code != http.StatusNotFound {
		// POST is not routed for prompts; only GET and PUT are.
		t.Errorf("POST prompts = %d, want rejection", w.Code)
	}

	data, _ := json.Marshal(PromptRequest{Prompt: "novo prompt", Description: "teste"})
	req := httptest.NewRequest(http.MethodPut, "/api/prompts/renamer", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT prompt = %d, want 200", rec.Code)
	}

	w = get(t, srv, "/api/prompts/renamer")
	if w.Code != http.StatusOK {
		t.Fatalf("GET prompt = %d, want 200", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["custom"] != "novo prompt" {
		t.Errorf("custom = %v, want saved prompt", resp["custom"])
	}
	if resp["default"] == "" {
		t.Error("default prompt missing")
	}

	if w := get(t, srv, "/api/prompts/nope"); w.Code != http.StatusNotFound {
		t.Errorf("unknown tool = %d, want 404", w.Code)
	}
}

func TestUsageToday(t *testing.T) {
	srv := newTestServer(t, fixtureStore(), "", 0)

	w := get(t, srv, "/api/usage/today")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var snap metrics.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Tokens != 0 {
		t.Errorf("tokens = %d, want 0 before any call", snap.Tokens)
	}
}
