package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecocycle/ewaste-api/internal/dto"
	"github.com/ecocycle/ewaste-api/internal/models"
	appErrors "github.com/ecocycle/ewaste-api/pkg/errors"
)

// memoryEarningStore mimics the ON CONFLICT upsert of the SQL repository.
type memoryEarningStore struct {
	mu      sync.Mutex
	rows    map[string]*models.CollectorEarning
	err     error
	lastFil models.EarningFilter
}

func (m *memoryEarningStore) Upsert(_ context.Context, earning *models.CollectorEarning) (*models.CollectorEarning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.rows == nil {
		m.rows = map[string]*models.CollectorEarning{}
	}
	key := earning.CollectorID + "|" + earning.CollectionRequestID
	existing, ok := m.rows[key]
	if !ok {
		row := *earning
		row.ID = uuid.NewString()
		m.rows[key] = &row
		out := row
		return &out, nil
	}
	if existing.Status != models.EarningStatusPaid {
		existing.Status = earning.Status
		existing.Amount = earning.Amount
	}
	if existing.PaidAt == nil {
		existing.PaidAt = earning.PaidAt
	}
	out := *existing
	return &out, nil
}

func (m *memoryEarningStore) DeletePending(_ context.Context, collectorID, requestID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	key := collectorID + "|" + requestID
	row, ok := m.rows[key]
	if !ok || row.Status == models.EarningStatusPaid {
		return false, nil
	}
	delete(m.rows, key)
	return true, nil
}

func (m *memoryEarningStore) List(_ context.Context, filter models.EarningFilter) ([]models.CollectorEarning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFil = filter
	out := make([]models.CollectorEarning, 0, len(m.rows))
	for _, row := range m.rows {
		if filter.CollectorID != "" && row.CollectorID != filter.CollectorID {
			continue
		}
		out = append(out, *row)
	}
	return out, nil
}

func (m *memoryEarningStore) Summary(ctx context.Context, filter models.EarningFilter) (*models.EarningsSummary, error) {
	rows, _ := m.List(ctx, filter)
	summary := &models.EarningsSummary{CollectorID: filter.CollectorID, PendingTotal: decimal.Zero, PaidTotal: decimal.Zero}
	for _, row := range rows {
		if row.Status == models.EarningStatusPaid {
			summary.PaidTotal = summary.PaidTotal.Add(row.Amount)
		} else {
			summary.PendingTotal = summary.PendingTotal.Add(row.Amount)
		}
		summary.Count++
	}
	return summary, nil
}

func (m *memoryEarningStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func TestEarningsServiceEnsureIsIdempotent(t *testing.T) {
	store := &memoryEarningStore{}
	svc := NewEarningsService(store, nil)
	ctx := context.Background()
	amount := decimal.NewFromInt(100)

	first := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	_, err := svc.Ensure(ctx, "col-1", "req-1", amount, models.EarningStatusPending, first)
	require.NoError(t, err)
	paid, err := svc.Ensure(ctx, "col-1", "req-1", amount, models.EarningStatusPaid, first)
	require.NoError(t, err)
	again, err := svc.Ensure(ctx, "col-1", "req-1", amount, models.EarningStatusPaid, first.Add(time.Hour))
	require.NoError(t, err)
	downgraded, err := svc.Ensure(ctx, "col-1", "req-1", amount, models.EarningStatusPending, first.Add(2*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 1, store.count())
	assert.Equal(t, models.EarningStatusPaid, paid.Status)
	assert.Equal(t, first, *again.PaidAt)
	assert.Equal(t, models.EarningStatusPaid, downgraded.Status)
}

func TestEarningsServiceEnsureRejectsInvalidInput(t *testing.T) {
	svc := NewEarningsService(&memoryEarningStore{}, nil)
	_, err := svc.Ensure(context.Background(), "", "req-1", decimal.NewFromInt(1), models.EarningStatusPending, time.Now())
	assert.Error(t, err)
	_, err = svc.Ensure(context.Background(), "col-1", "req-1", decimal.Zero, models.EarningStatusPending, time.Now())
	assert.Error(t, err)
}

func TestEarningsServiceOverviewScopesCollector(t *testing.T) {
	store := &memoryEarningStore{}
	svc := NewEarningsService(store, nil)
	ctx := context.Background()
	_, _ = svc.Ensure(ctx, "col-1", "req-1", decimal.NewFromInt(100), models.EarningStatusPaid, time.Now())
	_, _ = svc.Ensure(ctx, "col-1", "req-2", decimal.NewFromInt(40), models.EarningStatusPending, time.Now())
	_, _ = svc.Ensure(ctx, "col-2", "req-3", decimal.NewFromInt(70), models.EarningStatusPending, time.Now())

	collector := &models.JWTClaims{UserID: "col-1", Role: models.RoleCollector}
	overview, err := svc.Overview(ctx, dto.EarningsQuery{}, collector)
	require.NoError(t, err)
	assert.Len(t, overview.Earnings, 2)
	assert.Equal(t, "100", overview.Summary.PaidTotal.String())
	assert.Equal(t, "40", overview.Summary.PendingTotal.String())

	_, err = svc.Overview(ctx, dto.EarningsQuery{CollectorID: "col-2"}, collector)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	overview, err = svc.Overview(ctx, dto.EarningsQuery{CollectorID: "col-2"}, admin)
	require.NoError(t, err)
	assert.Len(t, overview.Earnings, 1)

	_, err = svc.Overview(ctx, dto.EarningsQuery{Status: "void"}, admin)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Overview(ctx, dto.EarningsQuery{}, &models.JWTClaims{UserID: "u", Role: models.RolePublic})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestEarningsServiceOverviewIncludesWholeToDay(t *testing.T) {
	store := &memoryEarningStore{}
	svc := NewEarningsService(store, nil)
	day := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	_, err := svc.Overview(context.Background(), dto.EarningsQuery{From: &day, To: &day}, admin)
	require.NoError(t, err)

	require.NotNil(t, store.lastFil.From)
	require.NotNil(t, store.lastFil.Before)
	assert.Equal(t, day, *store.lastFil.From)
	assert.Equal(t, time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC), *store.lastFil.Before)

	earlier := day.AddDate(0, 0, -1)
	_, err = svc.Overview(context.Background(), dto.EarningsQuery{From: &day, To: &earlier}, admin)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
