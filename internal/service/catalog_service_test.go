package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecocycle/ewaste-api/internal/dto"
	"github.com/ecocycle/ewaste-api/internal/models"
	appErrors "github.com/ecocycle/ewaste-api/pkg/errors"
)

type catalogStoreStub struct {
	categories []models.PricingCategory
	err        error
	calls      int
}

func (s *catalogStoreStub) ListPricingCategories(context.Context) ([]models.PricingCategory, error) {
	s.calls++
	return s.categories, s.err
}

type memoryCache struct {
	values map[string]interface{}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	v, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if out, ok := dest.(*[]models.PricingCategory); ok {
		*out = v.([]models.PricingCategory)
	}
	return nil
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if m.values == nil {
		m.values = map[string]interface{}{}
	}
	m.values[key] = value
	return nil
}

func (m *memoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func newTestCatalog(store catalogStore, cache *CacheService) *CatalogService {
	return NewCatalogService(store, cache, time.Minute, NewPricingCalculator(tenPercent(), tenPercent()), nil)
}

func TestCatalogServiceFallsBackToDefaults(t *testing.T) {
	svc := newTestCatalog(&catalogStoreStub{}, nil)
	categories, err := svc.PricingCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, categories, len(models.DefaultPricingCategories))

	svc = newTestCatalog(&catalogStoreStub{err: errors.New("db down")}, nil)
	categories, err = svc.PricingCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mobile_phone", categories[0].Key)
}

func TestCatalogServiceUsesCache(t *testing.T) {
	store := &catalogStoreStub{categories: []models.PricingCategory{{Key: "laptop", UnitPrice: decimal.NewFromInt(1200)}}}
	cache := NewCacheService(&memoryCache{}, nil, time.Minute, nil, true)
	svc := newTestCatalog(store, cache)

	for i := 0; i < 3; i++ {
		categories, err := svc.PricingCategories(context.Background())
		require.NoError(t, err)
		require.Len(t, categories, 1)
	}
	assert.Equal(t, 1, store.calls)
}

func TestCatalogServicePriceItems(t *testing.T) {
	svc := newTestCatalog(&catalogStoreStub{}, nil)

	items, err := svc.PriceItems(context.Background(), []dto.ItemLine{{Category: "mobile_phone", Quantity: 2}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].UnitPrice.Equal(decimal.NewFromInt(500)))

	_, err = svc.PriceItems(context.Background(), []dto.ItemLine{{Category: "spaceship", Quantity: 1}})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "items", appErr.Field)
}

func TestCatalogServiceQuote(t *testing.T) {
	svc := newTestCatalog(&catalogStoreStub{}, nil)

	quote, err := svc.Quote(context.Background(), dto.QuoteRequest{Items: []dto.ItemLine{{Category: "mobile_phone", Quantity: 2}}})
	require.NoError(t, err)
	assert.Equal(t, "1000", quote.Total.String())
	assert.Equal(t, "100", quote.CollectorCommission.String())
	assert.Equal(t, "100", quote.SustainabilityFund.String())

	_, err = svc.Quote(context.Background(), dto.QuoteRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
