package dto

import "github.com/ecocycle/ewaste-api/internal/models"

// CreateDeliveryRequest starts the hand-off of an assigned request.
type CreateDeliveryRequest struct {
	CollectionRequestID string `json:"collection_request_id" validate:"required"`
}

// UpdateDeliveryStatusRequest moves a delivery to its next status.
type UpdateDeliveryStatusRequest struct {
	Status models.DeliveryStatus `json:"status" validate:"required"`
}

// ConfirmDeliveryRequest carries the recycling center's processing notes.
type ConfirmDeliveryRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

// DeliveryQuery mirrors supported listing filters.
type DeliveryQuery struct {
	Status []models.DeliveryStatus
	Limit  int
	Offset int
}
