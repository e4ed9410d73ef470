package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/ecocycle/ewaste-api/internal/dto"
	"github.com/ecocycle/ewaste-api/internal/models"
	"github.com/ecocycle/ewaste-api/pkg/events"
	appErrors "github.com/ecocycle/ewaste-api/pkg/errors"
)

type collectionRequestStore interface {
	Create(ctx context.Context, req *models.CollectionRequest) error
	FindByID(ctx context.Context, id string) (*models.CollectionRequest, error)
	List(ctx context.Context, filter models.CollectionRequestFilter) ([]models.CollectionRequest, error)
}

type itemPricer interface {
	PriceItems(ctx context.Context, lines []dto.ItemLine) (models.RequestItems, error)
}

type photoUploader interface {
	Validate(photos []dto.PhotoUpload) error
	Upload(ctx context.Context, ownerID string, photos []dto.PhotoUpload) ([]string, error)
	Remove(ctx context.Context, urls []string) error
}

type settlementScheduler interface {
	Schedule(ctx context.Context, requestID string) error
}

// CollectionRequestService runs the submission flow and scoped request reads.
type CollectionRequestService struct {
	repo       collectionRequestStore
	pricer     itemPricer
	calculator *PricingCalculator
	photos     photoUploader
	settlement settlementScheduler
	publisher  eventPublisher
	metrics    *MetricsService
	logger     *zap.Logger
	validator  *validator.Validate
	now        func() time.Time
}

// CollectionRequestServiceOption configures the service.
type CollectionRequestServiceOption func(*CollectionRequestService)

// WithRequestClock overrides the clock used for date validation and timestamps.
func WithRequestClock(now func() time.Time) CollectionRequestServiceOption {
	return func(s *CollectionRequestService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSettlementScheduler wires the payment settlement worker.
func WithSettlementScheduler(scheduler settlementScheduler) CollectionRequestServiceOption {
	return func(s *CollectionRequestService) {
		s.settlement = scheduler
	}
}

// WithRequestEvents wires the workflow event publisher.
func WithRequestEvents(publisher eventPublisher) CollectionRequestServiceOption {
	return func(s *CollectionRequestService) {
		s.publisher = publisher
	}
}

// NewCollectionRequestService constructs the service with defaults.
func NewCollectionRequestService(repo collectionRequestStore, pricer itemPricer, calculator *PricingCalculator, photos photoUploader, metrics *MetricsService, logger *zap.Logger, opts ...CollectionRequestServiceOption) *CollectionRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &CollectionRequestService{
		repo:       repo,
		pricer:     pricer,
		calculator: calculator,
		photos:     photos,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	svc.validator = newRequestValidator(func() time.Time { return svc.now() })
	return svc
}

// Submit validates, uploads photos, stores the request, then schedules the
// payment settlement. Photos are removed again when the insert fails.
func (s *CollectionRequestService) Submit(ctx context.Context, req dto.SubmitCollectionRequest, actor *models.JWTClaims) (*models.CollectionRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	normalizeSubmission(&req)

	items, quote, err := s.validateSubmission(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.photos.Validate(req.Photos); err != nil {
		return nil, err
	}

	photoURLs, err := s.photos.Upload(ctx, actor.UserID, req.Photos)
	if err != nil {
		s.logger.Warn("pickup photo upload failed", zap.String("requester_id", actor.UserID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPhotoUpload.Code, appErrors.ErrPhotoUpload.Status, appErrors.ErrPhotoUpload.Message)
	}

	preferredDate, _ := time.ParseInLocation(pickupDateLayout, req.PreferredDate, s.now().Location())
	request := &models.CollectionRequest{
		RequesterID:         actor.UserID,
		Items:               items,
		TotalAmount:         quote.Total,
		CollectorCommission: quote.CollectorCommission,
		SustainabilityFund:  quote.SustainabilityFund,
		PaymentStatus:       models.PaymentStatusPending,
		Status:              models.RequestStatusPending,
		PreferredDate:       preferredDate,
		TimeSlot:            req.TimeSlot,
		ContactName:         req.ContactName,
		ContactPhone:        req.ContactPhone,
		Address:             req.Address,
		Notes:               stringPtr(req.Notes),
		PhotoURLs:           pq.StringArray(photoURLs),
	}
	if request.PhotoURLs == nil {
		request.PhotoURLs = pq.StringArray{}
	}

	if err := s.repo.Create(ctx, request); err != nil {
		if len(photoURLs) > 0 {
			if rmErr := s.photos.Remove(ctx, photoURLs); rmErr != nil {
				s.logger.Warn("failed to remove photos of rejected request", zap.Strings("photos", photoURLs), zap.Error(rmErr))
			}
		}
		return nil, creationError(err)
	}
	s.metrics.RecordSubmission()

	if s.settlement != nil {
		if err := s.settlement.Schedule(ctx, request.ID); err != nil {
			s.logger.Warn("failed to schedule payment settlement", zap.String("request_id", request.ID), zap.Error(err))
		}
	}
	publishEvent(ctx, s.publisher, s.logger, events.RequestSubmitted, map[string]interface{}{
		"request_id":   request.ID,
		"requester_id": request.RequesterID,
		"total_amount": request.TotalAmount,
	})
	return request, nil
}

// validateSubmission reports the first failing field in order: items,
// preferred date, time slot, contact name, contact phone, address, total.
func (s *CollectionRequestService) validateSubmission(ctx context.Context, req dto.SubmitCollectionRequest) (models.RequestItems, models.Quote, error) {
	first, err := firstValidationError(s.validator.Struct(req))
	if err != nil {
		return nil, models.Quote{}, err
	}
	if first != nil && topLevelField(first) == "items" {
		return nil, models.Quote{}, fieldErrorMessage(first)
	}

	items, err := s.pricer.PriceItems(ctx, req.Items)
	if err != nil {
		return nil, models.Quote{}, err
	}
	if first != nil {
		return nil, models.Quote{}, fieldErrorMessage(first)
	}

	quote := s.calculator.Calculate(items)
	if !quote.Total.IsPositive() {
		return nil, models.Quote{}, appErrors.Field("total_amount", "total amount must be greater than zero")
	}
	return items, quote, nil
}

func creationError(err error) error {
	switch models.StoreErrorKindOf(err) {
	case models.StoreErrorPermission:
		return appErrors.Wrap(err, appErrors.ErrRequestPermission.Code, appErrors.ErrRequestPermission.Status, appErrors.ErrRequestPermission.Message)
	case models.StoreErrorReference:
		return appErrors.Wrap(err, appErrors.ErrRequestInvalidRef.Code, appErrors.ErrRequestInvalidRef.Status, appErrors.ErrRequestInvalidRef.Message)
	default:
		return appErrors.Wrap(err, appErrors.ErrRequestCreation.Code, appErrors.ErrRequestCreation.Status, appErrors.ErrRequestCreation.Message)
	}
}

func normalizeSubmission(req *dto.SubmitCollectionRequest) {
	req.PreferredDate = strings.TrimSpace(req.PreferredDate)
	req.TimeSlot = strings.ToLower(strings.TrimSpace(req.TimeSlot))
	req.ContactName = strings.TrimSpace(req.ContactName)
	req.ContactPhone = strings.TrimSpace(req.ContactPhone)
	req.Address = strings.TrimSpace(req.Address)
	req.Notes = strings.TrimSpace(req.Notes)
	for i := range req.Items {
		req.Items[i].Category = strings.TrimSpace(req.Items[i].Category)
	}
}

// List returns requests visible to the actor. Recycling centers asking for
// pending requests see the open pool; otherwise they see their own.
func (s *CollectionRequestService) List(ctx context.Context, query dto.CollectionRequestQuery, actor *models.JWTClaims) ([]models.CollectionRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	filter := models.CollectionRequestFilter{Status: query.Status, Limit: query.Limit, Offset: query.Offset}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RolePublic:
		filter.RequesterID = actor.UserID
	case models.RoleCollector:
		filter.CollectorID = actor.UserID
	case models.RoleRecyclingCenter:
		if !(len(query.Status) == 1 && query.Status[0] == models.RequestStatusPending) {
			filter.RecyclingCenterID = actor.UserID
		}
	default:
		return nil, appErrors.ErrForbidden
	}
	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to list collection requests")
	}
	if requests == nil {
		requests = []models.CollectionRequest{}
	}
	return requests, nil
}

// Get returns a request if the actor may see it.
func (s *CollectionRequestService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.CollectionRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "collection request not found")
		}
		return nil, internalError(err, "failed to load collection request")
	}
	if !canViewRequest(request, actor) {
		return nil, appErrors.ErrForbidden
	}
	return request, nil
}

func canViewRequest(request *models.CollectionRequest, actor *models.JWTClaims) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RolePublic:
		return request.RequesterID == actor.UserID
	case models.RoleCollector:
		return deref(request.CollectorID) == actor.UserID
	case models.RoleRecyclingCenter:
		return request.Status == models.RequestStatusPending || deref(request.RecyclingCenterID) == actor.UserID
	default:
		return false
	}
}
