package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ecocycle/ewaste-api/internal/dto"
	"github.com/ecocycle/ewaste-api/internal/models"
	"github.com/ecocycle/ewaste-api/pkg/events"
	appErrors "github.com/ecocycle/ewaste-api/pkg/errors"
)

type profileReader interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
}

type requestAssigner interface {
	FindByID(ctx context.Context, id string) (*models.CollectionRequest, error)
	Assign(ctx context.Context, id, recyclingCenterID, collectorID string) (*models.CollectionRequest, error)
}

// AssignmentService attaches a recycling center and collector to a request.
type AssignmentService struct {
	profiles  profileReader
	requests  requestAssigner
	ledger    EarningsLedger
	publisher eventPublisher
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewAssignmentService constructs the service.
func NewAssignmentService(profiles profileReader, requests requestAssigner, ledger EarningsLedger, publisher eventPublisher, metrics *MetricsService, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		profiles:  profiles,
		requests:  requests,
		ledger:    ledger,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Assign validates the center first so an invalid center never touches the
// request. The earnings step runs after the update and only reports failure.
func (s *AssignmentService) Assign(ctx context.Context, requestID string, req dto.AssignCollectorRequest, actor *models.JWTClaims) (*models.AssignmentResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	centerID := strings.TrimSpace(req.RecyclingCenterID)
	collectorID := strings.TrimSpace(req.CollectorID)
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleRecyclingCenter:
		if centerID == "" {
			centerID = actor.UserID
		}
		if centerID != actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "recycling centers can only assign requests to themselves")
		}
	default:
		return nil, appErrors.ErrForbidden
	}
	if centerID == "" {
		return nil, appErrors.Field("recycling_center_id", "recycling center is required")
	}
	if collectorID == "" {
		return nil, appErrors.Field("collector_id", "collector is required")
	}

	if err := s.ensureProfile(ctx, centerID, models.RoleRecyclingCenter, appErrors.ErrInvalidCenter); err != nil {
		return nil, err
	}

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "collection request not found")
		}
		return nil, internalError(err, "failed to load collection request")
	}
	commission := request.CollectorCommission
	previousCollector := deref(request.CollectorID)

	if err := s.ensureProfile(ctx, collectorID, models.RoleCollector, appErrors.ErrInvalidCollector); err != nil {
		return nil, err
	}
	if request.Status == models.RequestStatusConfirmed || request.Status == models.RequestStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "collection request is already "+string(request.Status))
	}

	updated, err := s.requests.Assign(ctx, requestID, centerID, collectorID)
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "collection request can no longer be assigned")
		}
		return nil, internalError(err, "failed to assign collection request")
	}
	s.metrics.RecordAssignment()

	result := &models.AssignmentResult{Request: updated}
	if commission.IsPositive() {
		result.Bookkeeping = s.bookPendingEarning(ctx, requestID, previousCollector, collectorID, commission)
	}

	publishEvent(ctx, s.publisher, s.logger, events.RequestAssigned, map[string]interface{}{
		"request_id":          requestID,
		"recycling_center_id": centerID,
		"collector_id":        collectorID,
	})
	return result, nil
}

// bookPendingEarning moves the pending commission to the new collector. The
// previous collector's pending row is released first so a reassigned request
// never carries two rows.
func (s *AssignmentService) bookPendingEarning(ctx context.Context, requestID, previousCollector, collectorID string, commission decimal.Decimal) models.Bookkeeping {
	bookkeeping := models.Bookkeeping{Attempted: true}
	fail := func(err error, msg, collector string) models.Bookkeeping {
		bookkeeping.Err = err
		bookkeeping.Error = err.Error()
		s.metrics.RecordBookkeepingFailure("assignment")
		s.logger.Warn(msg,
			zap.String("request_id", requestID),
			zap.String("collector_id", collector),
			zap.Error(err),
		)
		return bookkeeping
	}

	if previousCollector != "" && previousCollector != collectorID {
		if err := s.ledger.Release(ctx, previousCollector, requestID); err != nil {
			return fail(err, "failed to release previous collector earning", previousCollector)
		}
	}
	earning, err := s.ledger.Ensure(ctx, collectorID, requestID, commission, models.EarningStatusPending, s.now())
	if err != nil {
		return fail(err, "failed to record pending earning", collectorID)
	}
	bookkeeping.Succeeded = true
	bookkeeping.Earning = earning
	return bookkeeping
}

func (s *AssignmentService) ensureProfile(ctx context.Context, id string, role models.UserRole, invalid *appErrors.Error) error {
	profile, err := s.profiles.FindByID(ctx, id)
	if err != nil && !isNotFound(err) {
		return internalError(err, "failed to load profile")
	}
	if err == nil && profile.IsActiveRole(role) {
		return nil
	}
	return invalid
}
