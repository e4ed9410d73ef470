package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecocycle/ewaste-api/internal/dto"
	"github.com/ecocycle/ewaste-api/internal/models"
	"github.com/ecocycle/ewaste-api/pkg/response"
)

type catalogService interface {
	PricingCategories(ctx context.Context) ([]models.PricingCategory, error)
	TimeSlots() []models.TimeSlot
	StatusDisplays() map[string]map[string]models.StatusDisplay
	Quote(ctx context.Context, req dto.QuoteRequest) (*dto.QuoteResponse, error)
}

// CatalogHandler serves the read-only catalogs and the price calculator.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(svc catalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// PricingCategories godoc
// @Summary Pricing catalog
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /catalog/pricing [get]
func (h *CatalogHandler) PricingCategories(c *gin.Context) {
	categories, err := h.service.PricingCategories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}

// TimeSlots godoc
// @Summary Pickup time slots
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /catalog/time-slots [get]
func (h *CatalogHandler) TimeSlots(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.TimeSlots(), nil)
}

// Statuses godoc
// @Summary Status labels and colors
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /catalog/statuses [get]
func (h *CatalogHandler) Statuses(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.StatusDisplays(), nil)
}

// Quote godoc
// @Summary Price an item list
// @Description Runs the pricing calculator without storing anything
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.QuoteRequest true "Items"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /pricing/quote [post]
func (h *CatalogHandler) Quote(c *gin.Context) {
	var req dto.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid quote payload"))
		return
	}
	quote, err := h.service.Quote(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quote, nil)
}
