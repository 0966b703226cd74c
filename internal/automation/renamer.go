package automation

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/models"
)

// RenameParams configures a rename run.
type RenameParams struct {
	EstablishmentID string
	CategoryIDs     []string
	CustomPrompt    string
	DryRun          bool
}

// StartRename loads the matching products and launches the rename
// pipeline in the background. Returns ErrNoProducts when nothing
// matched and ErrRunActive when a rename run is already going.
func (s *Service) StartRename(ctx context.Context, params RenameParams) (*RunContext, error) {
	products, err := s.store.ListProducts(ctx, params.EstablishmentID, params.CategoryIDs)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	if len(products) == 0 {
		return nil, ErrNoProducts
	}

	rc, err := s.registry.begin(KindRenamer, params.DryRun, s.sink, s.logger)
	if err != nil {
		return nil, err
	}
	if !params.DryRun {
		s.undo.Clear(KindRenamer)
	}
	rc.setTotal(len(products))
	rc.logf("info", "rename run started: %d products", len(products))

	prompt := s.prompt(ctx, ToolRenamer, params.CustomPrompt)
	go s.runRename(context.WithoutCancel(ctx), rc, products, prompt)
	return rc, nil
}

func (s *Service) runRename(ctx context.Context, rc *RunContext, products []models.Product, prompt string) {
	batches := partition(products, 1)
	err := rc.runBatches(ctx, batches, s.opts.RenameWorkers, func(ctx context.Context, b Batch) error {
		return s.renameOne(ctx, rc, b.Items[0], prompt)
	})
	if err != nil {
		rc.logf("error", "rename run aborted: %v", err)
		rc.finish(StateAborted)
		return
	}
	rc.finish(StateCompleted)
}

func (s *Service) renameOne(ctx context.Context, rc *RunContext, p models.Product, prompt string) error {
	rc.setCurrent(p.Name)
	defer s.pause()

	raw, err := s.call(ctx, rc, prompt, "Nome atual: "+p.Name, 60)
	if err != nil {
		if isFatal(err) {
			return err
		}
		rc.logf("error", "classifier failed for %q: %v", p.Name, err)
		rc.tick(outcomeError)
		return nil
	}

	newName := formatProductName(raw)
	if newName == "" || newName == p.Name {
		rc.logf("info", "unchanged: %q", p.Name)
		rc.tick(outcomeSkipped)
		return nil
	}

	rc.tick(s.applyName(ctx, rc, p, newName))
	return nil
}

// formatProductName normalizes a classifier answer into a display name:
// first line only, surrounding quotes stripped, title case with short
// connectives kept lowercase.
func formatProductName(raw string) string {
	name := strings.TrimSpace(raw)
	if i := strings.IndexByte(name, '\n'); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	name = strings.Trim(name, `"'`)
	if name == "" {
		return ""
	}
	return titleCase(name)
}

// lowercaseConnectives stay lowercase mid-name in pt-BR titles.
var lowercaseConnectives = map[string]bool{
	"de": true, "da": true, "do": true, "das": true, "dos": true,
	"e": true, "em": true, "com": true, "para": true, "sem": true,
}

func titleCase(name string) string {
	words := strings.Fields(strings.ToLower(name))
	for i, w := range words {
		if i > 0 && lowercaseConnectives[w] {
			continue
		}
		// Uppercase every letter that follows a non-letter, so "2l"
		// becomes "2L" and "coca-cola" becomes "Coca-Cola".
		runes := []rune(w)
		prevLetter := false
		for j, r := range runes {
			if unicode.IsLetter(r) && !prevLetter {
				runes[j] = unicode.ToUpper(r)
			}
			prevLetter = unicode.IsLetter(r)
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
