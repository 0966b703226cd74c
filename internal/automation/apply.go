package automation

import (
	"context"
	"time"

	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/models"
)

// applyName writes a product rename and records it for undo. Dry runs
// log the decision and write nothing. Returns the outcome to tick.
func (s *Service) applyName(ctx context.Context, rc *RunContext, p models.Product, newName string) outcome {
	id, err := models.RecordIDString(p.ID)
	if err != nil {
		rc.logf("error", "bad record id for %q: %v", p.Name, err)
		return outcomeError
	}

	if rc.DryRun {
		rc.logf("info", "[dry-run] %q -> %q", p.Name, newName)
		return outcomeUpdated
	}

	if err := s.store.UpdateProductName(ctx, id, newName); err != nil {
		rc.logf("error", "failed to rename %q: %v", p.Name, err)
		return outcomeError
	}

	prior, updated := p.Name, newName
	s.undo.append(rc.Kind, MutationRecord{
		ProductID:   id,
		ProductName: p.Name,
		Timestamp:   time.Now(),
		PriorName:   &prior,
		NewName:     &updated,
	})
	rc.logf("info", "renamed %q -> %q", p.Name, newName)
	return outcomeUpdated
}

// applyCategorization writes a product's categorization slice and records
// the prior state for undo. The prior read is best effort: if it fails,
// the mutation still applies and the undo record falls back to the state
// loaded at run start.
func (s *Service) applyCategorization(ctx context.Context, rc *RunContext, p models.Product, upd models.CategoryUpdate) outcome {
	id, err := models.RecordIDString(p.ID)
	if err != nil {
		rc.logf("error", "bad record id for %q: %v", p.Name, err)
		return outcomeError
	}

	if rc.DryRun {
		rc.logf("info", "[dry-run] %q -> categorias %v / subcategorias %v", p.Name, upd.CategoriesIDs, upd.SubcategoryIDs)
		return outcomeUpdated
	}

	prior := &models.CategoryUpdate{
		CategoriesIDs:  p.CategoriesIDs,
		SubcategoryIDs: p.SubcategoryIDs,
		Shelves:        p.Shelves,
		ShelvesIDs:     p.ShelvesIDs,
	}
	if fresh, err := s.store.GetProductCategorization(ctx, id); err == nil {
		prior = fresh
	} else {
		rc.logf("warn", "could not read prior state of %q, undo will use run-start state: %v", p.Name, err)
	}

	if err := s.store.UpdateProductCategories(ctx, id, upd); err != nil {
		rc.logf("error", "failed to categorize %q: %v", p.Name, err)
		return outcomeError
	}

	s.undo.append(rc.Kind, MutationRecord{
		ProductID:           id,
		ProductName:         p.Name,
		Timestamp:           time.Now(),
		PriorCategorization: prior,
		NewCategorization:   &upd,
	})
	return outcomeUpdated
}
