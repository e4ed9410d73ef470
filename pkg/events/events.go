package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Routing keys for workflow events.
const (
	RequestSubmitted      = "request.submitted"
	RequestPaymentSettled = "request.payment_settled"
	RequestAssigned       = "request.assigned"
	DeliveryCreated       = "delivery.created"
	DeliveryStatusChanged = "delivery.status_changed"
	DeliveryConfirmed     = "delivery.confirmed"
	ProfileReviewed       = "profile.reviewed"
)

// Event is the envelope published for every workflow change.
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// NewEvent builds an envelope with a fresh id.
func NewEvent(eventType string, data interface{}) Event {
	return Event{ID: uuid.NewString(), Type: eventType, OccurredAt: time.Now().UTC(), Data: data}
}

// Publisher is implemented by types that can publish workflow events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

// NopPublisher logs and drops events. Used when no broker is configured.
type NopPublisher struct {
	logger *zap.Logger
}

// NewNopPublisher returns a publisher that only logs.
func NewNopPublisher(logger *zap.Logger) *NopPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NopPublisher{logger: logger}
}

func (p *NopPublisher) Publish(_ context.Context, event Event) error {
	p.logger.Debug("event publish skipped", zap.String("type", event.Type), zap.String("event_id", event.ID))
	return nil
}

func (p *NopPublisher) Close() {}
