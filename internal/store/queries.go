// Package store provides SurrealDB query functions for catalog operations.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// ListProducts returns products for an establishment, optionally filtered to
// those belonging to any of the given category ids.
func (c *Client) ListProducts(ctx context.Context, establishmentID string, categoryIDs []string) ([]models.Product, error) {
	sql := `
		SELECT * FROM product
		WHERE establishment_id = $est AND name != ""
	`
	vars := map[string]any{"est": establishmentID}
	if len(categoryIDs) > 0 {
		sql += " AND categoriesIds CONTAINSANY $cats"
		vars["cats"] = categoryIDs
	}
	sql += " ORDER BY name"

	results, err := surrealdb.Query[[]models.Product](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return []models.Product{}, nil
	}
	return (*results)[0].Result, nil
}

// GetProduct retrieves a product by ID. Returns ErrNotFound if missing.
func (c *Client) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	results, err := surrealdb.Query[[]models.Product](ctx, c.db, `
		SELECT * FROM type::record("product", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get product: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("get product %q: %w", id, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// UpdateProductName writes a new display name for a product.
func (c *Client) UpdateProductName(ctx context.Context, id, name string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("product", $id) SET
			name = $name,
			updated_at = time::now()
	`, map[string]any{"id": id, "name": name})
	if err != nil {
		return fmt.Errorf("update product name: %w", wrapQueryError(err))
	}
	return nil
}

// GetProductCategorization reads only the categorization slice of a product,
// used to capture prior state for the undo log.
func (c *Client) GetProductCategorization(ctx context.Context, id string) (*models.CategoryUpdate, error) {
	p, err := c.GetProduct(ctx, id)
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

// UpdateProductCategories writes the categorization slice of a product.
func (c *Client) UpdateProductCategories(ctx context.Context, id string, upd models.CategoryUpdate) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("product", $id) SET
			categoriesIds = $cats,
			subcategoriesIds = $subs,
			shelves = $shelves,
			shelvesIds = $shelfIds,
			updated_at = time::now()
	`, map[string]any{
		"id":       id,
		"cats":     upd.CategoriesIDs,
		"subs":     upd.SubcategoryIDs,
		"shelves":  upd.Shelves,
		"shelfIds": upd.ShelvesIDs,
	})
	if err != nil {
		return fmt.Errorf("update product categories: %w", wrapQueryError(err))
	}
	return nil
}

// ListCategories returns the active category vocabulary for an establishment.
func (c *Client) ListCategories(ctx context.Context, establishmentID string) ([]models.Category, error) {
	results, err := surrealdb.Query[[]models.Category](ctx, c.db, `
		SELECT * FROM category
		WHERE establishment_id = $est AND is_active = true
		ORDER BY name
	`, map[string]any{"est": establishmentID})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return []models.Category{}, nil
	}
	return (*results)[0].Result, nil
}

// ListSubcategories returns the subcategory vocabulary for an establishment.
func (c *Client) ListSubcategories(ctx context.Context, establishmentID string) ([]models.Subcategory, error) {
	results, err := surrealdb.Query[[]models.Subcategory](ctx, c.db, `
		SELECT * FROM subcategory
		WHERE establishment_id = $est
		ORDER BY name
	`, map[string]any{"est": establishmentID})
	if err != nil {
		return nil, fmt.Errorf("list subcategories: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return []models.Subcategory{}, nil
	}
	return (*results)[0].Result, nil
}

// GetPrompt loads a stored prompt template by tool name.
// Returns empty string (no error) when none is stored, so callers can fall
// back to the compiled-in default.
func (c *Client) GetPrompt(ctx context.Context, tool string) (string, error) {
	results, err := surrealdb.Query[[]models.PromptDoc](ctx, c.db, `
		SELECT * FROM type::record("automation_prompt", $tool)
	`, map[string]any{"tool": tool})
	if err != nil {
		return "", fmt.Errorf("get prompt: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return "", nil
	}
	return (*results)[0].Result[0].Prompt, nil
}

// SavePrompt upserts a prompt template for a tool.
func (c *Client) SavePrompt(ctx context.Context, tool, prompt, description string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPSERT type::record("automation_prompt", $tool) SET
			tool = $tool,
			prompt = $prompt,
			description = $desc,
			updated_at = time::now()
	`, map[string]any{"tool": tool, "prompt": prompt, "desc": description})
	if err != nil {
		return fmt.Errorf("save prompt: %w", wrapQueryError(err))
	}
	return nil
}

// RecordDailyUsage adds token spend to today's aggregate row.
func (c *Client) RecordDailyUsage(ctx context.Context, day time.Time, tokens int64, cost float64) error {
	date := day.Format("2006-01-02")
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPSERT type::record("daily_usage", $date) SET
			date = $date,
			tokens += $tokens,
			cost += $cost,
			calls += 1
	`, map[string]any{"date": date, "tokens": tokens, "cost": cost})
	if err != nil {
		return fmt.Errorf("record daily usage: %w", wrapQueryError(err))
	}
	return nil
}

// GetDailyUsage returns the usage aggregate for one day, zeroed when absent.
func (c *Client) GetDailyUsage(ctx context.Context, day time.Time) (*models.DailyUsage, error) {
	date := day.Format("2006-01-02")
	results, err := surrealdb.Query[[]models.DailyUsage](ctx, c.db, `
		SELECT * FROM type::record("daily_usage", $date)
	`, map[string]any{"date": date})
	if err != nil {
		return nil, fmt.Errorf("get daily usage: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return &models.DailyUsage{Date: date}, nil
	}
	return &(*results)[0].Result[0], nil
}
