package automation

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/config"
	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/models"
)

// CategorizeParams configures a categorize run.
type CategorizeParams struct {
	EstablishmentID string
	CategoryIDs     []string
	CustomPrompt    string
	DryRun          bool
}

// excludedCategory is the catch-all aisle left out of the classification
// vocabulary so the model is not tempted to dump everything in it.
const excludedCategory = "mercearia"

// subEntry joins a subcategory with its parent category.
type subEntry struct {
	sub models.Subcategory
	cat models.Category
}

// vocabulary is the classification target set for one run.
type vocabulary struct {
	entries    map[string]subEntry
	candidates []string
}

// StartCategorize loads products and the classification vocabulary, then
// launches the batch categorize pipeline in the background.
func (s *Service) StartCategorize(ctx context.Context, params CategorizeParams) (*RunContext, error) {
	products, err := s.store.ListProducts(ctx, params.EstablishmentID, params.CategoryIDs)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	if len(products) == 0 {
		return nil, ErrNoProducts
	}

	vocab, err := s.loadVocabulary(ctx, params.EstablishmentID)
	if err != nil {
		return nil, err
	}

	rc, err := s.registry.begin(KindCategorizer, params.DryRun, s.sink, s.logger)
	if err != nil {
		return nil, err
	}
	if !params.DryRun {
		s.undo.Clear(KindCategorizer)
	}
	rc.setTotal(len(products))
	rc.logf("info", "categorize run started: %d products, %d subcategories", len(products), len(vocab.candidates))

	prompt := s.prompt(ctx, ToolCategorizer, params.CustomPrompt)
	go s.runCategorize(context.WithoutCancel(ctx), rc, products, vocab, prompt)
	return rc, nil
}

// loadVocabulary builds the subcategory target set, excluding the
// catch-all aisle and subcategories with no active parent.
func (s *Service) loadVocabulary(ctx context.Context, establishmentID string) (*vocabulary, error) {
	categories, err := s.store.ListCategories(ctx, establishmentID)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	subcategories, err := s.store.ListSubcategories(ctx, establishmentID)
	if err != nil {
		return nil, fmt.Errorf("load subcategories: %w", err)
	}

	byID := make(map[string]models.Category, len(categories))
	for _, c := range categories {
		if strings.EqualFold(c.Name, excludedCategory) || strings.EqualFold(c.CategoryID, excludedCategory) {
			continue
		}
		byID[c.CategoryID] = c
	}

	vocab := &vocabulary{entries: make(map[string]subEntry)}
	for _, sub := range subcategories {
		cat, ok := byID[sub.CategoryID]
		if !ok {
			continue
		}
		vocab.entries[sub.SubcategoryID] = subEntry{sub: sub, cat: cat}
		vocab.candidates = append(vocab.candidates, sub.SubcategoryID)
	}
	if len(vocab.candidates) == 0 {
		return nil, fmt.Errorf("no classifiable subcategories for establishment %q", establishmentID)
	}
	return vocab, nil
}

func (s *Service) runCategorize(ctx context.Context, rc *RunContext, products []models.Product, vocab *vocabulary, prompt string) {
	batches := partition(products, s.opts.BatchSize)
	rc.logf("info", "%d batches of up to %d items", len(batches), s.opts.BatchSize)

	err := rc.runBatches(ctx, batches, s.opts.MaxParallelBatches, func(ctx context.Context, b Batch) error {
		return s.categorizeBatch(ctx, rc, b, vocab, prompt)
	})
	if err != nil {
		rc.logf("error", "categorize run aborted: %v", err)
		rc.finish(StateAborted)
		return
	}
	rc.finish(StateCompleted)
}

// categorizeBatch classifies one batch of products with a single call.
// When not a single answer resolves to a known subcategory, the call is
// repeated once with a strict-JSON instruction; whatever comes back from
// the retry is final.
func (s *Service) categorizeBatch(ctx context.Context, rc *RunContext, b Batch, vocab *vocabulary, prompt string) error {
	rc.logf("info", "batch %d: classifying %d products", b.Index+1, len(b.Items))
	userPrompt := buildBatchPrompt(b.Items, vocab)

	resolved, raw, err := s.classifyBatch(ctx, rc, prompt, userPrompt, len(b.Items), vocab.candidates)
	if err != nil {
		return err
	}

	if len(resolved) == 0 {
		rc.logf("warn", "batch %d: no usable answers in %q, retrying with strict JSON instruction", b.Index+1, truncate(raw, 200))
		resolved, _, err = s.classifyBatch(ctx, rc, prompt+strictJSONInstruction, userPrompt, len(b.Items), vocab.candidates)
		if err != nil {
			return err
		}
	}

	for i, p := range b.Items {
		if !rc.Running() {
			return nil
		}
		rc.setCurrent(p.Name)

		subID, ok := resolved[i+1]
		if !ok {
			s.handleUnresolved(ctx, rc, p, vocab)
			continue
		}
		entry := vocab.entries[subID]
		rc.logf("info", "%q -> %s / %s", p.Name, entry.cat.Name, entry.sub.Name)
		rc.tick(s.applyCategorization(ctx, rc, p, buildCategoryUpdate(entry)))
		s.pause()
	}
	return nil
}

// classifyBatch runs one classifier call and resolves its answers against
// the known subcategory ids. Unresolvable and missing answers are absent
// from the result.
func (s *Service) classifyBatch(ctx context.Context, rc *RunContext, systemPrompt, userPrompt string, size int, candidates []string) (map[int]string, string, error) {
	raw, err := s.call(ctx, rc, systemPrompt, userPrompt, 30*size+200)
	if err != nil {
		return nil, "", err
	}

	resolved := make(map[int]string)
	for idx, token := range extractAnswers(raw, size) {
		if id, ok := resolveID(token, candidates); ok {
			resolved[idx] = id
		}
	}
	return resolved, raw, nil
}

// truncate caps s at n bytes, backing up to a rune boundary so the
// result stays valid UTF-8.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// handleUnresolved applies the fallback policy to a product the
// classifier could not place.
func (s *Service) handleUnresolved(ctx context.Context, rc *RunContext, p models.Product, vocab *vocabulary) {
	if s.opts.FallbackPolicy != config.FallbackResidual {
		rc.logf("warn", "%q: sem subcategoria correspondente, pulando", p.Name)
		rc.tick(outcomeSkipped)
		return
	}

	for _, id := range vocab.candidates {
		entry := vocab.entries[id]
		if strings.EqualFold(entry.cat.CategoryID, s.opts.ResidualCategoryID) {
			rc.logf("warn", "%q: sem subcategoria correspondente, movendo para %s", p.Name, entry.cat.Name)
			rc.tick(s.applyCategorization(ctx, rc, p, buildCategoryUpdate(entry)))
			return
		}
	}
	rc.logf("warn", "%q: categoria residual %q não encontrada, pulando", p.Name, s.opts.ResidualCategoryID)
	rc.tick(outcomeSkipped)
}

// buildBatchPrompt lists the products and the subcategory vocabulary the
// way the classifier prompt expects them.
func buildBatchPrompt(products []models.Product, vocab *vocabulary) string {
	var sb strings.Builder
	sb.WriteString("Produtos:\n")
	for i, p := range products {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, p.Name)
	}
	sb.WriteString("\nSubcategorias disponíveis (id | nome | categoria):\n")
	for _, id := range vocab.candidates {
		entry := vocab.entries[id]
		fmt.Fprintf(&sb, "%s | %s | %s\n", id, entry.sub.Name, entry.cat.Name)
	}
	return sb.String()
}

// buildCategoryUpdate produces the full categorization slice for one
// category/subcategory pair, shelves included.
func buildCategoryUpdate(entry subEntry) models.CategoryUpdate {
	shelf := models.Shelf{
		ID:              entry.cat.CategoryID + "_" + entry.sub.SubcategoryID,
		CategoryID:      entry.cat.CategoryID,
		SubcategoryID:   entry.sub.SubcategoryID,
		CategoryName:    entry.cat.Name,
		SubcategoryName: entry.sub.Name,
	}
	return models.CategoryUpdate{
		CategoriesIDs:  []string{entry.cat.CategoryID},
		SubcategoryIDs: []string{entry.sub.SubcategoryID},
		Shelves:        []models.Shelf{shelf},
		ShelvesIDs:     []string{shelf.ID},
	}
}
