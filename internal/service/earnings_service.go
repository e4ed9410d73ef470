package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ecocycle/ewaste-api/internal/dto"
	"github.com/ecocycle/ewaste-api/internal/models"
	appErrors "github.com/ecocycle/ewaste-api/pkg/errors"
)

type earningStore interface {
	Upsert(ctx context.Context, earning *models.CollectorEarning) (*models.CollectorEarning, error)
	DeletePending(ctx context.Context, collectorID, requestID string) (bool, error)
	List(ctx context.Context, filter models.EarningFilter) ([]models.CollectorEarning, error)
	Summary(ctx context.Context, filter models.EarningFilter) (*models.EarningsSummary, error)
}

// EarningsLedger keeps exactly one earnings row per (collector, request).
type EarningsLedger interface {
	Ensure(ctx context.Context, collectorID, requestID string, amount decimal.Decimal, status models.EarningStatus, at time.Time) (*models.CollectorEarning, error)
	Release(ctx context.Context, collectorID, requestID string) error
}

// EarningsService implements the ledger and collector-facing earnings views.
type EarningsService struct {
	repo   earningStore
	logger *zap.Logger
}

// NewEarningsService constructs the service.
func NewEarningsService(repo earningStore, logger *zap.Logger) *EarningsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EarningsService{repo: repo, logger: logger}
}

// Ensure creates the ledger row or moves it forward. The store never
// downgrades a paid row, so repeated calls are safe.
func (s *EarningsService) Ensure(ctx context.Context, collectorID, requestID string, amount decimal.Decimal, status models.EarningStatus, at time.Time) (*models.CollectorEarning, error) {
	if collectorID == "" || requestID == "" {
		return nil, fmt.Errorf("ensure earning: collector and request required")
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("ensure earning: amount must be positive")
	}
	earning := &models.CollectorEarning{
		CollectorID:         collectorID,
		CollectionRequestID: requestID,
		Amount:              amount,
		Status:              status,
	}
	if status == models.EarningStatusPaid {
		paidAt := at.UTC()
		earning.PaidAt = &paidAt
	}
	stored, err := s.repo.Upsert(ctx, earning)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("earning ensured",
		zap.String("collector_id", collectorID),
		zap.String("request_id", requestID),
		zap.String("status", string(stored.Status)),
	)
	return stored, nil
}

// Release drops the pending row a collector held for a request after it was
// reassigned. A paid row is left in place.
func (s *EarningsService) Release(ctx context.Context, collectorID, requestID string) error {
	if collectorID == "" || requestID == "" {
		return fmt.Errorf("release earning: collector and request required")
	}
	deleted, err := s.repo.DeletePending(ctx, collectorID, requestID)
	if err != nil {
		return err
	}
	if deleted {
		s.logger.Info("pending earning released",
			zap.String("collector_id", collectorID),
			zap.String("request_id", requestID),
		)
	}
	return nil
}

// Overview lists earnings with pending and paid totals. Collectors only see their own ledger.
func (s *EarningsService) Overview(ctx context.Context, query dto.EarningsQuery, actor *models.JWTClaims) (*models.EarningsOverview, error) {
	filter, err := s.scopedFilter(query, actor)
	if err != nil {
		return nil, err
	}
	earnings, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to list earnings")
	}
	summary, err := s.repo.Summary(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to summarize earnings")
	}
	if earnings == nil {
		earnings = []models.CollectorEarning{}
	}
	return &models.EarningsOverview{Earnings: earnings, Summary: *summary}, nil
}

func (s *EarningsService) scopedFilter(query dto.EarningsQuery, actor *models.JWTClaims) (models.EarningFilter, error) {
	if err := requireActor(actor); err != nil {
		return models.EarningFilter{}, err
	}
	filter := models.EarningFilter{CollectorID: query.CollectorID, From: query.From}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleCollector:
		if query.CollectorID != "" && query.CollectorID != actor.UserID {
			return filter, appErrors.Clone(appErrors.ErrForbidden, "collectors can only view their own earnings")
		}
		filter.CollectorID = actor.UserID
	default:
		return filter, appErrors.ErrForbidden
	}
	if query.Status != "" {
		status := models.EarningStatus(query.Status)
		if status != models.EarningStatusPending && status != models.EarningStatusPaid {
			return filter, appErrors.Field("status", "status must be pending or paid")
		}
		filter.Status = &status
	}
	if query.From != nil && query.To != nil && query.To.Before(*query.From) {
		return filter, appErrors.Field("to", "to must not be before from")
	}
	if query.To != nil {
		// to is a calendar day and includes all of it
		y, m, d := query.To.Date()
		before := time.Date(y, m, d, 0, 0, 0, 0, query.To.Location()).AddDate(0, 0, 1)
		filter.Before = &before
	}
	return filter, nil
}
