package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogRepositoryListPricingCategories(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM pricing_categories WHERE active = TRUE ORDER BY sort_order, key")).
		WillReturnRows(sqlmock.NewRows([]string{"key", "display_name", "unit_price", "description"}).
			AddRow("laptop", "Laptops", "1500", "Notebooks").
			AddRow("battery", "Batteries", "100.50", "Household batteries"))

	categories, err := repo.ListPricingCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "100.5", categories[1].UnitPrice.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryListPricingCategoriesError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	mock.ExpectQuery("FROM pricing_categories").WillReturnError(errors.New("relation does not exist"))

	_, err := repo.ListPricingCategories(context.Background())
	assert.Error(t, err)
}
