package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// RequestStatus captures the lifecycle of a collection request.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusAssigned  RequestStatus = "assigned"
	RequestStatusConfirmed RequestStatus = "confirmed"
	RequestStatusCompleted RequestStatus = "completed"
)

// PaymentStatus tracks settlement of the requester's payment.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// RequestItem is one priced line of a collection request.
type RequestItem struct {
	Category  string          `json:"category"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// RequestItems is stored as a JSONB column.
type RequestItems []RequestItem

// Value implements driver.Valuer.
func (items RequestItems) Value() (driver.Value, error) {
	if items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(items)
}

// Scan implements sql.Scanner.
func (items *RequestItems) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*items = RequestItems{}
		return nil
	case []byte:
		return json.Unmarshal(v, items)
	case string:
		return json.Unmarshal([]byte(v), items)
	default:
		return fmt.Errorf("unsupported request items type %T", src)
	}
}

// CollectionRequest is a requester's pickup job.
type CollectionRequest struct {
	ID                  string          `db:"id" json:"id"`
	RequesterID         string          `db:"requester_id" json:"requester_id"`
	Items               RequestItems    `db:"items" json:"items"`
	TotalAmount         decimal.Decimal `db:"total_amount" json:"total_amount"`
	CollectorCommission decimal.Decimal `db:"collector_commission" json:"collector_commission"`
	SustainabilityFund  decimal.Decimal `db:"sustainability_fund" json:"sustainability_fund"`
	PaymentStatus       PaymentStatus   `db:"payment_status" json:"payment_status"`
	Status              RequestStatus   `db:"status" json:"status"`
	CollectorID         *string         `db:"collector_id" json:"collector_id,omitempty"`
	RecyclingCenterID   *string         `db:"recycling_center_id" json:"recycling_center_id,omitempty"`
	PreferredDate       time.Time       `db:"preferred_date" json:"preferred_date"`
	TimeSlot            string          `db:"time_slot" json:"time_slot"`
	ContactName         string          `db:"contact_name" json:"contact_name"`
	ContactPhone        string          `db:"contact_phone" json:"contact_phone"`
	Address             string          `db:"address" json:"address"`
	Notes               *string         `db:"notes" json:"notes,omitempty"`
	PhotoURLs           pq.StringArray  `db:"photo_urls" json:"photo_urls"`
	CommissionPaid      bool            `db:"commission_paid" json:"commission_paid"`
	CommissionPaidAt    *time.Time      `db:"commission_paid_at" json:"commission_paid_at,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

// CollectionRequestFilter constrains listing queries.
type CollectionRequestFilter struct {
	RequesterID       string
	CollectorID       string
	RecyclingCenterID string
	Status            []RequestStatus
	Limit             int
	Offset            int
}
