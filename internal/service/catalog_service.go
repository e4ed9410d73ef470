package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ecocycle/ewaste-api/internal/dto"
	"github.com/ecocycle/ewaste-api/internal/models"
	appErrors "github.com/ecocycle/ewaste-api/pkg/errors"
)

const pricingCatalogCacheKey = "catalog:pricing_categories"

type catalogStore interface {
	ListPricingCategories(ctx context.Context) ([]models.PricingCategory, error)
}

// CatalogService serves the read-only pricing, time-slot and status catalogs.
type CatalogService struct {
	repo     catalogStore
	cache    *CacheService
	cacheTTL time.Duration
	pricing  *PricingCalculator
	logger   *zap.Logger
}

// NewCatalogService constructs the catalog service. Cache may be nil.
func NewCatalogService(repo catalogStore, cache *CacheService, cacheTTL time.Duration, pricing *PricingCalculator, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, cache: cache, cacheTTL: cacheTTL, pricing: pricing, logger: logger}
}

// PricingCategories returns the catalog, preferring the cache, then the
// database, then the built-in defaults.
func (s *CatalogService) PricingCategories(ctx context.Context) ([]models.PricingCategory, error) {
	var cached []models.PricingCategory
	if hit, err := s.cache.Get(ctx, pricingCatalogCacheKey, &cached); err == nil && hit && len(cached) > 0 {
		return cached, nil
	}

	var categories []models.PricingCategory
	if s.repo != nil {
		stored, err := s.repo.ListPricingCategories(ctx)
		if err != nil {
			s.logger.Warn("pricing catalog unavailable, serving defaults", zap.Error(err))
		} else {
			categories = stored
		}
	}
	if len(categories) == 0 {
		categories = append([]models.PricingCategory(nil), models.DefaultPricingCategories...)
	}

	_ = s.cache.Set(ctx, pricingCatalogCacheKey, categories, s.cacheTTL)
	return categories, nil
}

// TimeSlots returns the fixed pickup windows.
func (s *CatalogService) TimeSlots() []models.TimeSlot {
	return append([]models.TimeSlot(nil), models.TimeSlots...)
}

// StatusDisplays returns label and color mappings for every known status.
func (s *CatalogService) StatusDisplays() map[string]map[string]models.StatusDisplay {
	return models.StatusDisplays()
}

// PriceItems resolves unit prices for each line. Unknown categories are reported against the items field.
func (s *CatalogService) PriceItems(ctx context.Context, lines []dto.ItemLine) (models.RequestItems, error) {
	categories, err := s.PricingCategories(ctx)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]models.PricingCategory, len(categories))
	for _, category := range categories {
		byKey[category.Key] = category
	}

	items := make(models.RequestItems, 0, len(lines))
	for _, line := range lines {
		key := strings.TrimSpace(line.Category)
		category, ok := byKey[key]
		if !ok {
			return nil, appErrors.Field("items", fmt.Sprintf("unknown item category %q", line.Category))
		}
		items = append(items, models.RequestItem{Category: key, Quantity: line.Quantity, UnitPrice: category.UnitPrice})
	}
	return items, nil
}

// Quote prices an item list without persisting anything.
func (s *CatalogService) Quote(ctx context.Context, req dto.QuoteRequest) (*dto.QuoteResponse, error) {
	if len(req.Items) == 0 {
		return nil, appErrors.Field("items", "at least one item is required")
	}
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, appErrors.Field("items", "item quantity must be at least 1")
		}
	}
	items, err := s.PriceItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	return &dto.QuoteResponse{Items: items, Quote: s.pricing.Calculate(items)}, nil
}
