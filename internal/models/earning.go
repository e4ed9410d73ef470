package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EarningStatus tracks whether a collector's commission has been paid out.
type EarningStatus string

const (
	EarningStatusPending EarningStatus = "pending"
	EarningStatusPaid    EarningStatus = "paid"
)

// CollectorEarning is the ledger entry for one (collector, request) pair.
type CollectorEarning struct {
	ID                  string          `db:"id" json:"id"`
	CollectorID         string          `db:"collector_id" json:"collector_id"`
	CollectionRequestID string          `db:"collection_request_id" json:"collection_request_id"`
	Amount              decimal.Decimal `db:"amount" json:"amount"`
	Status              EarningStatus   `db:"status" json:"status"`
	PaidAt              *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

// EarningFilter constrains ledger listings.
type EarningFilter struct {
	CollectorID string
	Status      *EarningStatus
	From        *time.Time // inclusive
	Before      *time.Time // exclusive
}

// EarningsSummary aggregates a collector's ledger.
type EarningsSummary struct {
	CollectorID  string          `json:"collector_id"`
	PendingTotal decimal.Decimal `json:"pending_total"`
	PaidTotal    decimal.Decimal `json:"paid_total"`
	Count        int             `json:"count"`
}
