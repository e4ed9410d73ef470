package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecocycle/ewaste-api/internal/dto"
	"github.com/ecocycle/ewaste-api/internal/models"
	"github.com/ecocycle/ewaste-api/pkg/response"
)

type deliveryService interface {
	Create(ctx context.Context, req dto.CreateDeliveryRequest, actor *models.JWTClaims) (*models.Delivery, error)
	List(ctx context.Context, query dto.DeliveryQuery, actor *models.JWTClaims) ([]models.Delivery, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateDeliveryStatusRequest, actor *models.JWTClaims) (*models.Delivery, error)
}

type confirmationService interface {
	Confirm(ctx context.Context, deliveryID string, req dto.ConfirmDeliveryRequest, actor *models.JWTClaims) (*models.ConfirmationResult, error)
}

// DeliveryHandler exposes the delivery lifecycle.
type DeliveryHandler struct {
	deliveries    deliveryService
	confirmations confirmationService
}

// NewDeliveryHandler constructs the handler.
func NewDeliveryHandler(deliveries deliveryService, confirmations confirmationService) *DeliveryHandler {
	return &DeliveryHandler{deliveries: deliveries, confirmations: confirmations}
}

// Create godoc
// @Summary Start a delivery
// @Tags Deliveries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateDeliveryRequest true "Delivery"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /deliveries [post]
func (h *DeliveryHandler) Create(c *gin.Context) {
	var req dto.CreateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid delivery payload"))
		return
	}
	delivery, err := h.deliveries.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, delivery)
}

// List godoc
// @Summary List deliveries
// @Tags Deliveries
// @Produce json
// @Security BearerAuth
// @Param status query string false "Comma separated statuses"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /deliveries [get]
func (h *DeliveryHandler) List(c *gin.Context) {
	limit, offset, err := pageParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	query := dto.DeliveryQuery{Limit: limit, Offset: offset}
	for _, status := range csvQuery(c, "status") {
		query.Status = append(query.Status, models.DeliveryStatus(status))
	}
	deliveries, err := h.deliveries.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, deliveries, nil)
}

// UpdateStatus godoc
// @Summary Advance a delivery
// @Description Moves a delivery one step forward; processed is only reachable through confirm
// @Tags Deliveries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Delivery ID"
// @Param payload body dto.UpdateDeliveryStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /deliveries/{id}/status [patch]
func (h *DeliveryHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateDeliveryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid status payload"))
		return
	}
	delivery, err := h.deliveries.UpdateStatus(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, delivery, nil)
}

// Confirm godoc
// @Summary Confirm a delivery
// @Description Marks the delivery processed, confirms the request and pays the collector commission
// @Tags Deliveries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Delivery ID"
// @Param payload body dto.ConfirmDeliveryRequest false "Processing notes"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /deliveries/{id}/confirm [post]
func (h *DeliveryHandler) Confirm(c *gin.Context) {
	var req dto.ConfirmDeliveryRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, invalidPayload(err, "invalid confirmation payload"))
			return
		}
	}
	result, err := h.confirmations.Confirm(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusOK, result, bookkeepingWarnings(result.Bookkeeping))
}
