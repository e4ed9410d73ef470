package models

import "github.com/shopspring/decimal"

// Quote is the priced breakdown of a set of items.
type Quote struct {
	Total               decimal.Decimal `json:"total_amount"`
	CollectorCommission decimal.Decimal `json:"collector_commission"`
	SustainabilityFund  decimal.Decimal `json:"sustainability_fund"`
}

// Bookkeeping reports the outcome of the earnings ledger step that follows a
// primary mutation. A failure here never rolls back the primary change.
type Bookkeeping struct {
	Attempted bool              `json:"attempted"`
	Succeeded bool              `json:"succeeded"`
	Error     string            `json:"error,omitempty"`
	Earning   *CollectorEarning `json:"earning,omitempty"`
	Err       error             `json:"-"`
}

// Failed reports whether the step ran and did not complete.
func (b Bookkeeping) Failed() bool {
	return b.Attempted && !b.Succeeded
}

// AssignmentResult is returned by the assignment flow.
type AssignmentResult struct {
	Request     *CollectionRequest `json:"request"`
	Bookkeeping Bookkeeping        `json:"bookkeeping"`
}

// ConfirmationResult is returned by the confirmation flow.
type ConfirmationResult struct {
	Delivery            *Delivery          `json:"delivery"`
	CollectionRequest   *CollectionRequest `json:"collection_request"`
	CommissionProcessed bool               `json:"commission_processed"`
	Bookkeeping         Bookkeeping        `json:"bookkeeping"`
}

// EarningsOverview pairs ledger rows with their totals.
type EarningsOverview struct {
	Earnings []CollectorEarning `json:"earnings"`
	Summary  EarningsSummary    `json:"summary"`
}
