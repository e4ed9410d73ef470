package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ecocycle/ewaste-api/internal/dto"
	"github.com/ecocycle/ewaste-api/internal/models"
	"github.com/ecocycle/ewaste-api/pkg/events"
	appErrors "github.com/ecocycle/ewaste-api/pkg/errors"
)

type deliveryProcessor interface {
	FindWithRequest(ctx context.Context, id string) (*models.DeliveryWithRequest, error)
	MarkProcessed(ctx context.Context, id string, notes *string, processedAt time.Time) (*models.Delivery, error)
}

type requestConfirmer interface {
	MarkConfirmed(ctx context.Context, id string, paidAt time.Time) (*models.CollectionRequest, error)
}

// ConfirmationService closes a delivery and pays out the collector commission.
type ConfirmationService struct {
	deliveries deliveryProcessor
	requests   requestConfirmer
	ledger     EarningsLedger
	publisher  eventPublisher
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
}

// ConfirmationServiceOption configures the service.
type ConfirmationServiceOption func(*ConfirmationService)

// WithConfirmationClock overrides the timestamp source.
func WithConfirmationClock(now func() time.Time) ConfirmationServiceOption {
	return func(s *ConfirmationService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewConfirmationService constructs the service.
func NewConfirmationService(deliveries deliveryProcessor, requests requestConfirmer, ledger EarningsLedger, publisher eventPublisher, metrics *MetricsService, logger *zap.Logger, opts ...ConfirmationServiceOption) *ConfirmationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ConfirmationService{
		deliveries: deliveries,
		requests:   requests,
		ledger:     ledger,
		publisher:  publisher,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Confirm marks the delivery processed and its request confirmed, then
// ensures a paid earnings row. Repeating a confirmation is harmless.
func (s *ConfirmationService) Confirm(ctx context.Context, deliveryID string, req dto.ConfirmDeliveryRequest, actor *models.JWTClaims) (*models.ConfirmationResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.Role != models.RoleRecyclingCenter && actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	notes := strings.TrimSpace(req.Notes)
	if len(notes) > 1000 {
		return nil, appErrors.Field("notes", "notes must be at most 1000 characters")
	}

	delivery, err := s.deliveries.FindWithRequest(ctx, deliveryID)
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "delivery not found")
		}
		return nil, internalError(err, "failed to load delivery")
	}
	if !delivery.HasRequest() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "delivery has no collection request")
	}
	if actor.Role == models.RoleRecyclingCenter && deref(delivery.RecyclingCenterID) != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "delivery is addressed to another recycling center")
	}

	now := s.now().UTC()
	processed, err := s.deliveries.MarkProcessed(ctx, deliveryID, stringPtr(notes), now)
	if err != nil {
		return nil, internalError(err, "failed to mark delivery processed")
	}
	requestID := *delivery.RequestID
	confirmed, err := s.requests.MarkConfirmed(ctx, requestID, now)
	if err != nil {
		return nil, internalError(err, "failed to confirm collection request")
	}

	result := &models.ConfirmationResult{Delivery: processed, CollectionRequest: confirmed}
	collectorID := deref(delivery.CollectorID)
	if collectorID == "" {
		collectorID = deref(delivery.RequestCollectorID)
	}
	commission := delivery.Commission()
	if collectorID != "" && commission.IsPositive() {
		result.CommissionProcessed = true
		result.Bookkeeping.Attempted = true
		earning, err := s.ledger.Ensure(ctx, collectorID, requestID, commission, models.EarningStatusPaid, now)
		if err != nil {
			result.Bookkeeping.Err = err
			result.Bookkeeping.Error = err.Error()
			s.metrics.RecordBookkeepingFailure("confirmation")
			s.logger.Warn("failed to record paid earning",
				zap.String("delivery_id", deliveryID),
				zap.String("request_id", requestID),
				zap.String("collector_id", collectorID),
				zap.Error(err),
			)
		} else {
			result.Bookkeeping.Succeeded = true
			result.Bookkeeping.Earning = earning
		}
	}
	s.metrics.RecordConfirmation(result.CommissionProcessed)

	publishEvent(ctx, s.publisher, s.logger, events.DeliveryConfirmed, map[string]interface{}{
		"delivery_id":          deliveryID,
		"request_id":           requestID,
		"collector_id":         collectorID,
		"commission_processed": result.CommissionProcessed,
	})
	return result, nil
}
