package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryStatus tracks the hand-off of collected items to a recycling center.
type DeliveryStatus string

const (
	DeliveryStatusPendingDelivery DeliveryStatus = "pending_delivery"
	DeliveryStatusDelivered       DeliveryStatus = "delivered"
	DeliveryStatusReceived        DeliveryStatus = "received"
	DeliveryStatusQualityChecked  DeliveryStatus = "quality_checked"
	DeliveryStatusProcessing      DeliveryStatus = "processing"
	DeliveryStatusProcessed       DeliveryStatus = "processed"
)

// Delivery is owned by exactly one collection request.
type Delivery struct {
	ID                  string         `db:"id" json:"id"`
	CollectionRequestID string         `db:"collection_request_id" json:"collection_request_id"`
	CollectorID         *string        `db:"collector_id" json:"collector_id,omitempty"`
	RecyclingCenterID   *string        `db:"recycling_center_id" json:"recycling_center_id,omitempty"`
	Status              DeliveryStatus `db:"status" json:"status"`
	ProcessingNotes     *string        `db:"processing_notes" json:"processing_notes,omitempty"`
	ProcessedAt         *time.Time     `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
}

// DeliveryWithRequest joins a delivery to the commission fields of its parent request.
type DeliveryWithRequest struct {
	Delivery
	RequestID           *string          `db:"request_id" json:"-"`
	RequestCollectorID  *string          `db:"request_collector_id" json:"-"`
	TotalAmount         *decimal.Decimal `db:"total_amount" json:"-"`
	CollectorCommission *decimal.Decimal `db:"collector_commission" json:"-"`
	CommissionPaid      *bool            `db:"commission_paid" json:"-"`
}

// HasRequest reports whether the join yielded a linked collection request.
func (d *DeliveryWithRequest) HasRequest() bool {
	return d != nil && d.RequestID != nil && *d.RequestID != ""
}

// Commission returns the parent request's commission or zero when unset.
func (d *DeliveryWithRequest) Commission() decimal.Decimal {
	if d == nil || d.CollectorCommission == nil {
		return decimal.Zero
	}
	return *d.CollectorCommission
}

// DeliveryFilter constrains listing queries.
type DeliveryFilter struct {
	CollectorID       string
	RecyclingCenterID string
	Status            []DeliveryStatus
	Limit             int
	Offset            int
}
