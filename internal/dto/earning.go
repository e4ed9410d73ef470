package dto

import "time"

// EarningsQuery filters a collector's ledger. Admins may name any collector.
type EarningsQuery struct {
	CollectorID string
	Status      string
	From        *time.Time
	To          *time.Time
}

// StatementRequest asks for a rendered earnings statement.
type StatementRequest struct {
	CollectorID string `json:"collector_id"`
	From        string `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To          string `json:"to" validate:"omitempty,datetime=2006-01-02"`
	Format      string `json:"format" validate:"omitempty,oneof=csv pdf"`
}

// StatementResponse points at the stored statement.
type StatementResponse struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	Format    string    `json:"format"`
	ExpiresAt time.Time `json:"expires_at"`
}
