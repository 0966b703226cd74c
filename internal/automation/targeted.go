package automation

import (
	"context"
	"fmt"
	"strings"

	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/models"
)

// TargetedParams configures a targeted categorize run: one category is
// refined instead of reclassifying the whole catalog.
type TargetedParams struct {
	EstablishmentID  string
	TargetCategoryID string
	CustomPrompt     string
	DryRun           bool
	// IncludeOutside also screens products currently outside the target
	// category and pulls in the ones that belong there.
	IncludeOutside bool
}

// StartTargeted launches the targeted categorize pipeline.
//
// Phase 1 assigns a subcategory to every product already inside the
// target category. Phase 2 (optional) asks, product by product, whether
// products outside the category belong in it.
func (s *Service) StartTargeted(ctx context.Context, params TargetedParams) (*RunContext, error) {
	if params.TargetCategoryID == "" {
		return nil, fmt.Errorf("target category is required")
	}

	vocab, err := s.loadVocabulary(ctx, params.EstablishmentID)
	if err != nil {
		return nil, err
	}
	target, targetSubs := vocab.forCategory(params.TargetCategoryID)
	if len(targetSubs) == 0 {
		return nil, fmt.Errorf("category %q has no classifiable subcategories", params.TargetCategoryID)
	}

	inside, err := s.store.ListProducts(ctx, params.EstablishmentID, []string{params.TargetCategoryID})
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	var outside []models.Product
	if params.IncludeOutside {
		all, err := s.store.ListProducts(ctx, params.EstablishmentID, nil)
		if err != nil {
			return nil, fmt.Errorf("load products: %w", err)
		}
		for _, p := range all {
			if !containsID(p.CategoriesIDs, params.TargetCategoryID) {
				outside = append(outside, p)
			}
		}
	}
	if len(inside)+len(outside) == 0 {
		return nil, ErrNoProducts
	}

	rc, err := s.registry.begin(KindTargeted, params.DryRun, s.sink, s.logger)
	if err != nil {
		return nil, err
	}
	if !params.DryRun {
		s.undo.Clear(KindTargeted)
	}
	rc.setTotal(len(inside) + len(outside))
	rc.logf("info", "targeted run started: category %s, %d inside, %d outside", target.Name, len(inside), len(outside))

	prompt := s.prompt(ctx, ToolTargeted, params.CustomPrompt)
	go s.runTargeted(context.WithoutCancel(ctx), rc, target, targetSubs, inside, outside, prompt)
	return rc, nil
}

// forCategory narrows the vocabulary to one category's subcategories.
func (v *vocabulary) forCategory(categoryID string) (models.Category, []subEntry) {
	var target models.Category
	var subs []subEntry
	for _, id := range v.candidates {
		entry := v.entries[id]
		if entry.cat.CategoryID == categoryID {
			target = entry.cat
			subs = append(subs, entry)
		}
	}
	return target, subs
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (s *Service) runTargeted(ctx context.Context, rc *RunContext, target models.Category, subs []subEntry, inside, outside []models.Product, prompt string) {
	candidates := make([]string, len(subs))
	byID := make(map[string]subEntry, len(subs))
	for i, e := range subs {
		candidates[i] = e.sub.SubcategoryID
		byID[e.sub.SubcategoryID] = e
	}
	subListing := buildSubListing(subs)

	rc.logf("info", "phase 1: assigning subcategories inside %s", target.Name)
	err := rc.runBatches(ctx, partition(inside, 1), s.opts.ItemWorkers, func(ctx context.Context, b Batch) error {
		return s.targetedAssign(ctx, rc, b.Items[0], target, subListing, candidates, byID, prompt)
	})
	if err == nil && len(outside) > 0 && rc.Running() {
		rc.logf("info", "phase 2: screening %d products outside %s", len(outside), target.Name)
		err = rc.runBatches(ctx, partition(outside, 1), s.opts.ItemWorkers, func(ctx context.Context, b Batch) error {
			return s.targetedScreen(ctx, rc, b.Items[0], target, subListing, candidates, byID, prompt)
		})
	}

	if err != nil {
		rc.logf("error", "targeted run aborted: %v", err)
		rc.finish(StateAborted)
		return
	}
	rc.finish(StateCompleted)
}

// targetedAssign picks a subcategory for a product known to be in the
// target category.
func (s *Service) targetedAssign(ctx context.Context, rc *RunContext, p models.Product, target models.Category, subListing string, candidates []string, byID map[string]subEntry, prompt string) error {
	rc.setCurrent(p.Name)
	defer s.pause()

	user := fmt.Sprintf("Produto: %s\nCategoria: %s\n\nSubcategorias disponíveis (id | nome):\n%s\nResponda apenas com o id da subcategoria mais adequada.",
		p.Name, target.Name, subListing)

	raw, err := s.call(ctx, rc, prompt, user, 30)
	if err != nil {
		if isFatal(err) {
			return err
		}
		rc.logf("error", "classifier failed for %q: %v", p.Name, err)
		rc.tick(outcomeError)
		return nil
	}

	subID, ok := resolveID(strings.TrimSpace(raw), candidates)
	if !ok {
		rc.logf("warn", "%q: resposta %q não corresponde a nenhuma subcategoria, pulando", p.Name, strings.TrimSpace(raw))
		rc.tick(outcomeSkipped)
		return nil
	}

	entry := byID[subID]
	if containsID(p.SubcategoryIDs, entry.sub.SubcategoryID) {
		rc.tick(outcomeSkipped)
		return nil
	}
	rc.logf("info", "%q -> %s / %s", p.Name, target.Name, entry.sub.Name)
	rc.tick(s.applyCategorization(ctx, rc, p, buildCategoryUpdate(entry)))
	return nil
}

// targetedScreen asks whether a product outside the target category
// belongs in it. Expected answers: "SIM|<sub id>" or "NAO".
func (s *Service) targetedScreen(ctx context.Context, rc *RunContext, p models.Product, target models.Category, subListing string, candidates []string, byID map[string]subEntry, prompt string) error {
	rc.setCurrent(p.Name)
	defer s.pause()

	user := fmt.Sprintf("Produto: %s\nCategoria candidata: %s\n\nSubcategorias da categoria (id | nome):\n%s\nO produto pertence a esta categoria? Responda \"SIM|<id da subcategoria>\" ou \"NAO\".",
		p.Name, target.Name, subListing)

	raw, err := s.call(ctx, rc, prompt, user, 30)
	if err != nil {
		if isFatal(err) {
			return err
		}
		rc.logf("error", "classifier failed for %q: %v", p.Name, err)
		rc.tick(outcomeError)
		return nil
	}

	answer := strings.TrimSpace(raw)
	upper := strings.ToUpper(answer)
	if !strings.HasPrefix(upper, "SIM") {
		rc.tick(outcomeSkipped)
		return nil
	}

	token := ""
	if parts := strings.SplitN(answer, "|", 2); len(parts) == 2 {
		token = strings.TrimSpace(parts[1])
	}
	subID, ok := resolveID(token, candidates)
	if !ok {
		rc.logf("warn", "%q: confirmado para %s mas sem subcategoria reconhecível (%q), pulando", p.Name, target.Name, answer)
		rc.tick(outcomeSkipped)
		return nil
	}

	entry := byID[subID]
	rc.logf("info", "%q entra em %s / %s", p.Name, target.Name, entry.sub.Name)
	rc.tick(s.applyCategorization(ctx, rc, p, buildCategoryUpdate(entry)))
	return nil
}

func buildSubListing(subs []subEntry) string {
	var sb strings.Builder
	for _, e := range subs {
		fmt.Fprintf(&sb, "%s | %s\n", e.sub.SubcategoryID, e.sub.Name)
	}
	return sb.String()
}
