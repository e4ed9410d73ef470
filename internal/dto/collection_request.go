package dto

import "github.com/ecocycle/ewaste-api/internal/models"

// ItemLine is one category and quantity chosen by the requester. Unit prices
// come from the pricing catalog.
type ItemLine struct {
	Category string `json:"category" form:"category" validate:"required"`
	Quantity int    `json:"quantity" form:"quantity" validate:"gt=0"`
}

// PhotoUpload carries one pickup photo read from a multipart form.
type PhotoUpload struct {
	Filename string
	Size     int64
	Data     []byte
}

// SubmitCollectionRequest is the pickup submission payload. Field order is the
// order in which validation failures are reported.
type SubmitCollectionRequest struct {
	Items         []ItemLine    `json:"items" validate:"required,min=1,dive"`
	PreferredDate string        `json:"preferred_date" validate:"required,datetime=2006-01-02,pickup_weekday,not_past"`
	TimeSlot      string        `json:"time_slot" validate:"required,time_slot"`
	ContactName   string        `json:"contact_name" validate:"required,max=120"`
	ContactPhone  string        `json:"contact_phone" validate:"required,phone"`
	Address       string        `json:"address" validate:"required,max=500"`
	Notes         string        `json:"notes" validate:"max=1000"`
	Photos        []PhotoUpload `json:"-" validate:"-"`
}

// QuoteRequest prices an item list without storing anything.
type QuoteRequest struct {
	Items []ItemLine `json:"items" validate:"required,min=1,dive"`
}

// QuoteResponse is the priced item list and its totals.
type QuoteResponse struct {
	Items models.RequestItems `json:"items"`
	models.Quote
}

// AssignCollectorRequest assigns a collector and recycling center to a request.
// Recycling centers may omit recycling_center_id to assign themselves.
type AssignCollectorRequest struct {
	RecyclingCenterID string `json:"recycling_center_id"`
	CollectorID       string `json:"collector_id" validate:"required"`
}

// CollectionRequestQuery mirrors supported listing filters.
type CollectionRequestQuery struct {
	Status []models.RequestStatus
	Limit  int
	Offset int
}
