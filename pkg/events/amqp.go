package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/ecocycle/ewaste-api/pkg/middleware/requestid"
)

// AMQPPublisher publishes events to a durable topic exchange.
type AMQPPublisher struct {
	exchange string
	logger   *zap.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(rawURL, exchange string, logger *zap.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cleanURL, err := sanitizeAMQPURL(rawURL)
	if err != nil {
		return nil, err
	}
	if exchange == "" {
		return nil, errors.New("events exchange required")
	}

	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	p := &AMQPPublisher{exchange: exchange, logger: logger, conn: conn, channel: channel}
	if err := p.declare(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// Publish sends the event using its type as routing key. A failed publish
// reopens the channel and retries once.
func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     event.ID,
		CorrelationId: requestid.FromContext(ctx),
		Type:          event.Type,
		Timestamp:     event.OccurredAt,
		Body:          body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg)
	if err == nil {
		return nil
	}
	p.logger.Warn("publish failed, reopening channel", zap.String("type", event.Type), zap.Error(err))
	if reopenErr := p.reopen(); reopenErr != nil {
		return fmt.Errorf("publish %s: %w", event.Type, errors.Join(err, reopenErr))
	}
	if err := p.channel.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

func (p *AMQPPublisher) declare() error {
	if err := p.channel.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	return nil
}

func (p *AMQPPublisher) reopen() error {
	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("amqp connection closed")
	}
	channel, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("reopen amqp channel: %w", err)
	}
	p.channel = channel
	return p.declare()
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	parsed, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewPublisher connects to the broker when a URL is configured and falls back
// to a logging no-op publisher otherwise or when the broker is unreachable.
func NewPublisher(rawURL, exchange string, logger *zap.Logger) Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(rawURL) == "" {
		logger.Info("event publishing disabled")
		return NewNopPublisher(logger)
	}
	publisher, err := NewAMQPPublisher(rawURL, exchange, logger)
	if err != nil {
		logger.Warn("event broker unavailable, using no-op publisher", zap.Error(err))
		return NewNopPublisher(logger)
	}
	return publisher
}
