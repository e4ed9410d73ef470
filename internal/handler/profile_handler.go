package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecocycle/ewaste-api/internal/dto"
	"github.com/ecocycle/ewaste-api/internal/models"
	"github.com/ecocycle/ewaste-api/pkg/response"
)

type profileService interface {
	List(ctx context.Context, query dto.ProfileQuery) ([]models.Profile, *models.Pagination, error)
	Review(ctx context.Context, id string, req dto.ReviewProfileRequest, actor *models.JWTClaims) (*models.Profile, error)
}

// ProfileHandler exposes account administration.
type ProfileHandler struct {
	service profileService
}

// NewProfileHandler constructs the handler.
func NewProfileHandler(svc profileService) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

// List godoc
// @Summary List profiles
// @Tags Profiles
// @Produce json
// @Security BearerAuth
// @Param role query string false "Role"
// @Param status query string false "Status"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /profiles [get]
func (h *ProfileHandler) List(c *gin.Context) {
	page, err := intQuery(c, "page")
	if err != nil {
		response.Error(c, err)
		return
	}
	pageSize, err := intQuery(c, "page_size")
	if err != nil {
		response.Error(c, err)
		return
	}
	query := dto.ProfileQuery{Role: c.Query("role"), Status: c.Query("status"), Page: page, PageSize: pageSize}
	profiles, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profiles, pagination)
}

// Review godoc
// @Summary Approve or reject a profile
// @Tags Profiles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Profile ID"
// @Param payload body dto.ReviewProfileRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /profiles/{id}/review [post]
func (h *ProfileHandler) Review(c *gin.Context) {
	var req dto.ReviewProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid review payload"))
		return
	}
	profile, err := h.service.Review(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}
