package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ecocycle/ewaste-api/internal/models"
)

// CatalogRepository reads the pricing category catalog.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListPricingCategories returns active categories in display order.
func (r *CatalogRepository) ListPricingCategories(ctx context.Context) ([]models.PricingCategory, error) {
	const query = `SELECT key, display_name, unit_price, description
	FROM pricing_categories WHERE active = TRUE ORDER BY sort_order, key`
	var categories []models.PricingCategory
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list pricing categories: %w", err)
	}
	return categories, nil
}
