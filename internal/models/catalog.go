// Package models defines data structures for the catalog automation service.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Product represents one catalog product document.
// Field names match the hosted catalog's document shape.
type Product struct {
	ID              surrealmodels.RecordID `json:"id"`
	Name            string                 `json:"name"`
	ImageURL        *string                `json:"image_url,omitempty"`
	CategoriesIDs   []string               `json:"categoriesIds,omitempty"`
	SubcategoryIDs  []string               `json:"subcategoriesIds,omitempty"`
	Shelves         []Shelf                `json:"shelves,omitempty"`
	ShelvesIDs      []string               `json:"shelvesIds,omitempty"`
	EstablishmentID string                 `json:"establishment_id"`
	UpdatedAt       time.Time              `json:"updated_at,omitempty"`
}

// Shelf is the denormalized category/subcategory pair stored on a product.
type Shelf struct {
	ID              string `json:"id"`
	CategoryID      string `json:"productCategoryId"`
	SubcategoryID   string `json:"productSubcategoryId"`
	CategoryName    string `json:"categoryName"`
	SubcategoryName string `json:"subcategoryName"`
}

// Category is a vocabulary entry for product classification.
type Category struct {
	ID              surrealmodels.RecordID `json:"id"`
	CategoryID      string                 `json:"category_id"`
	Name            string                 `json:"name"`
	IsActive        bool                   `json:"is_active"`
	EstablishmentID string                 `json:"establishment_id"`
}

// Subcategory is a vocabulary entry nested under a category.
type Subcategory struct {
	ID              surrealmodels.RecordID `json:"id"`
	SubcategoryID   string                 `json:"subcategory_id"`
	Name            string                 `json:"name"`
	CategoryID      string                 `json:"category_id"`
	EstablishmentID string                 `json:"establishment_id"`
}

// CategoryUpdate is the mutable categorization slice of a product.
// It is what categorize runs write and what the undo log captures.
type CategoryUpdate struct {
	CategoriesIDs  []string `json:"categoriesIds"`
	SubcategoryIDs []string `json:"subcategoriesIds"`
	Shelves        []Shelf  `json:"shelves"`
	ShelvesIDs     []string `json:"shelvesIds"`
}

// PromptDoc is a stored prompt template editable from the dashboard.
type PromptDoc struct {
	ID          surrealmodels.RecordID `json:"id"`
	Tool        string                 `json:"tool"`
	Prompt      string                 `json:"prompt"`
	Description string                 `json:"description,omitempty"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// DailyUsage aggregates token spend for one calendar day.
type DailyUsage struct {
	ID     surrealmodels.RecordID `json:"id"`
	Date   string                 `json:"date"`
	Tokens int64                  `json:"tokens"`
	Cost   float64                `json:"cost"`
	Calls  int64                  `json:"calls"`
}
