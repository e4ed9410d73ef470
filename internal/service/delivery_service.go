package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ecocycle/ewaste-api/internal/dto"
	"github.com/ecocycle/ewaste-api/internal/models"
	"github.com/ecocycle/ewaste-api/pkg/events"
	appErrors "github.com/ecocycle/ewaste-api/pkg/errors"
)

type deliveryStore interface {
	Create(ctx context.Context, delivery *models.Delivery) error
	FindByID(ctx context.Context, id string) (*models.Delivery, error)
	List(ctx context.Context, filter models.DeliveryFilter) ([]models.Delivery, error)
	UpdateStatus(ctx context.Context, id string, from, to models.DeliveryStatus) (*models.Delivery, error)
}

type requestReader interface {
	FindByID(ctx context.Context, id string) (*models.CollectionRequest, error)
}

type deliveryTransition struct {
	from models.DeliveryStatus
	by   []models.UserRole
}

// Processed is deliberately absent; it is only reachable through confirmation.
var deliveryTransitions = map[models.DeliveryStatus]deliveryTransition{
	models.DeliveryStatusDelivered:      {from: models.DeliveryStatusPendingDelivery, by: []models.UserRole{models.RoleCollector, models.RoleAdmin}},
	models.DeliveryStatusReceived:       {from: models.DeliveryStatusDelivered, by: []models.UserRole{models.RoleRecyclingCenter, models.RoleAdmin}},
	models.DeliveryStatusQualityChecked: {from: models.DeliveryStatusReceived, by: []models.UserRole{models.RoleRecyclingCenter, models.RoleAdmin}},
	models.DeliveryStatusProcessing:     {from: models.DeliveryStatusQualityChecked, by: []models.UserRole{models.RoleRecyclingCenter, models.RoleAdmin}},
}

// DeliveryService manages the hand-off from collector to recycling center.
type DeliveryService struct {
	repo      deliveryStore
	requests  requestReader
	publisher eventPublisher
	logger    *zap.Logger
}

// NewDeliveryService constructs the service.
func NewDeliveryService(repo deliveryStore, requests requestReader, publisher eventPublisher, logger *zap.Logger) *DeliveryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeliveryService{repo: repo, requests: requests, publisher: publisher, logger: logger}
}

// Create opens a delivery for a request assigned to the calling collector.
func (s *DeliveryService) Create(ctx context.Context, req dto.CreateDeliveryRequest, actor *models.JWTClaims) (*models.Delivery, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.Role != models.RoleCollector {
		return nil, appErrors.ErrForbidden
	}
	requestID := strings.TrimSpace(req.CollectionRequestID)
	if requestID == "" {
		return nil, appErrors.Field("collection_request_id", "collection request is required")
	}

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "collection request not found")
		}
		return nil, internalError(err, "failed to load collection request")
	}
	if deref(request.CollectorID) != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "collection request is not assigned to you")
	}
	if request.Status != models.RequestStatusAssigned {
		return nil, appErrors.Clone(appErrors.ErrConflict, "collection request is not awaiting delivery")
	}

	delivery := &models.Delivery{
		CollectionRequestID: request.ID,
		CollectorID:         request.CollectorID,
		RecyclingCenterID:   request.RecyclingCenterID,
		Status:              models.DeliveryStatusPendingDelivery,
	}
	if err := s.repo.Create(ctx, delivery); err != nil {
		if models.StoreErrorKindOf(err) == models.StoreErrorConflict {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a delivery already exists for this request")
		}
		return nil, internalError(err, "failed to create delivery")
	}

	publishEvent(ctx, s.publisher, s.logger, events.DeliveryCreated, map[string]interface{}{
		"delivery_id": delivery.ID,
		"request_id":  request.ID,
	})
	return delivery, nil
}

// List returns deliveries visible to the actor.
func (s *DeliveryService) List(ctx context.Context, query dto.DeliveryQuery, actor *models.JWTClaims) ([]models.Delivery, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	filter := models.DeliveryFilter{Status: query.Status, Limit: query.Limit, Offset: query.Offset}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleCollector:
		filter.CollectorID = actor.UserID
	case models.RoleRecyclingCenter:
		filter.RecyclingCenterID = actor.UserID
	default:
		return nil, appErrors.ErrForbidden
	}
	deliveries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to list deliveries")
	}
	if deliveries == nil {
		deliveries = []models.Delivery{}
	}
	return deliveries, nil
}

// UpdateStatus applies one forward, non-terminal transition.
func (s *DeliveryService) UpdateStatus(ctx context.Context, id string, req dto.UpdateDeliveryStatusRequest, actor *models.JWTClaims) (*models.Delivery, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	target := models.DeliveryStatus(strings.ToLower(strings.TrimSpace(string(req.Status))))
	if target == "" {
		return nil, appErrors.Field("status", "status is required")
	}

	delivery, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "delivery not found")
		}
		return nil, internalError(err, "failed to load delivery")
	}
	if !ownsDelivery(delivery, actor) {
		return nil, appErrors.ErrForbidden
	}

	transition, ok := deliveryTransitions[target]
	if !ok || transition.from != delivery.Status {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot move delivery from "+string(delivery.Status)+" to "+string(target))
	}
	if !roleAllowed(actor.Role, transition.by) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "your role cannot move a delivery to "+string(target))
	}

	updated, err := s.repo.UpdateStatus(ctx, id, transition.from, target)
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "delivery status changed concurrently")
		}
		return nil, internalError(err, "failed to update delivery status")
	}

	publishEvent(ctx, s.publisher, s.logger, events.DeliveryStatusChanged, map[string]interface{}{
		"delivery_id": id,
		"from":        transition.from,
		"to":          target,
	})
	return updated, nil
}

func ownsDelivery(delivery *models.Delivery, actor *models.JWTClaims) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCollector:
		return deref(delivery.CollectorID) == actor.UserID
	case models.RoleRecyclingCenter:
		return deref(delivery.RecyclingCenterID) == actor.UserID
	default:
		return false
	}
}

func roleAllowed(role models.UserRole, allowed []models.UserRole) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
