package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ecocycle/ewaste-api/internal/dto"
	"github.com/ecocycle/ewaste-api/internal/models"
	"github.com/ecocycle/ewaste-api/pkg/events"
	appErrors "github.com/ecocycle/ewaste-api/pkg/errors"
)

type profileStore interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	List(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, int, error)
	UpdateStatus(ctx context.Context, id string, status models.ProfileStatus) (*models.Profile, error)
}

// ProfileService lets administrators browse and approve accounts.
type ProfileService struct {
	repo      profileStore
	publisher eventPublisher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs the service.
func NewProfileService(repo profileStore, publisher eventPublisher, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProfileService{repo: repo, publisher: publisher, validator: validate, logger: logger}
}

// List returns a page of profiles.
func (s *ProfileService) List(ctx context.Context, query dto.ProfileQuery) ([]models.Profile, *models.Pagination, error) {
	filter := models.ProfileFilter{Page: query.Page, PageSize: query.PageSize}
	if query.Role != "" {
		role := models.UserRole(strings.ToUpper(query.Role))
		switch role {
		case models.RolePublic, models.RoleCollector, models.RoleRecyclingCenter, models.RoleAdmin:
		default:
			return nil, nil, appErrors.Field("role", "unknown role")
		}
		filter.Role = &role
	}
	if query.Status != "" {
		status := models.ProfileStatus(strings.ToLower(query.Status))
		switch status {
		case models.ProfileStatusPendingApproval, models.ProfileStatusActive, models.ProfileStatusRejected:
		default:
			return nil, nil, appErrors.Field("status", "unknown status")
		}
		filter.Status = &status
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	profiles, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list profiles")
	}
	if profiles == nil {
		profiles = []models.Profile{}
	}
	return profiles, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Review approves or rejects a collector or recycling center awaiting approval.
func (s *ProfileService) Review(ctx context.Context, id string, req dto.ReviewProfileRequest, actor *models.JWTClaims) (*models.Profile, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	req.Decision = strings.ToLower(strings.TrimSpace(req.Decision))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Field("decision", "decision must be approve or reject")
	}

	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, internalError(err, "failed to load profile")
	}
	if profile.Role != models.RoleCollector && profile.Role != models.RoleRecyclingCenter {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only collectors and recycling centers require approval")
	}
	if profile.Status != models.ProfileStatusPendingApproval {
		return nil, appErrors.Clone(appErrors.ErrConflict, "profile is not awaiting approval")
	}

	next := models.ProfileStatusActive
	if req.Decision == "reject" {
		next = models.ProfileStatusRejected
	}
	updated, err := s.repo.UpdateStatus(ctx, id, next)
	if err != nil {
		return nil, internalError(err, "failed to update profile status")
	}

	s.logger.Info("profile reviewed",
		zap.String("profile_id", id),
		zap.String("decision", req.Decision),
		zap.String("reviewer_id", actor.UserID),
	)
	publishEvent(ctx, s.publisher, s.logger, events.ProfileReviewed, map[string]interface{}{
		"profile_id":  id,
		"role":        updated.Role,
		"status":      updated.Status,
		"reviewer_id": actor.UserID,
	})
	return updated, nil
}
