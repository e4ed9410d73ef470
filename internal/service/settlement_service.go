package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecocycle/ewaste-api/pkg/events"
	"github.com/ecocycle/ewaste-api/pkg/jobs"
)

const settlementJobType = "payment_settlement"

type settlementStore interface {
	MarkPaymentSettled(ctx context.Context, id string) (bool, error)
	ListPendingPayment(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

const settlementSweepBatch = 200

// SettlementConfig tunes the settlement worker pool.
type SettlementConfig struct {
	Delay   time.Duration
	Workers int
	Retries int
}

// SettlementService simulates payment processing: a request's payment is
// marked paid a fixed delay after submission.
type SettlementService struct {
	repo      settlementStore
	publisher eventPublisher
	metrics   *MetricsService
	logger    *zap.Logger
	delay     time.Duration
	queue     *jobs.Queue
	now       func() time.Time
}

// NewSettlementService builds the service and its worker queue.
func NewSettlementService(repo settlementStore, publisher eventPublisher, metrics *MetricsService, cfg SettlementConfig, logger *zap.Logger) *SettlementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	svc := &SettlementService{repo: repo, publisher: publisher, metrics: metrics, logger: logger, delay: cfg.Delay, now: time.Now}
	svc.queue = jobs.NewQueue("payment-settlement", svc.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		Logger:     logger,
	})
	return svc
}

// Start launches the workers.
func (s *SettlementService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers. Settlements not yet due are dropped and stay
// pending until the next Sweep.
func (s *SettlementService) Stop() {
	s.queue.Stop()
}

// Schedule queues settlement of the request after the configured delay.
func (s *SettlementService) Schedule(_ context.Context, requestID string) error {
	if requestID == "" {
		return fmt.Errorf("schedule settlement: request id required")
	}
	return s.queue.EnqueueAfter(jobs.Job{
		ID:      uuid.NewString(),
		Type:    settlementJobType,
		Payload: requestID,
	}, s.delay)
}

// Sweep queues settlement for requests whose payment is still pending although
// the delay has passed, e.g. after a restart dropped their timers. Settlement
// is idempotent, so a request that also has a live timer is settled once.
func (s *SettlementService) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.delay)
	ids, err := s.repo.ListPendingPayment(ctx, cutoff, settlementSweepBatch)
	if err != nil {
		return 0, fmt.Errorf("sweep settlements: %w", err)
	}
	queued := 0
	for _, id := range ids {
		if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: settlementJobType, Payload: id}); err != nil {
			return queued, fmt.Errorf("sweep settlements: %w", err)
		}
		queued++
	}
	if queued > 0 {
		s.logger.Info("overdue settlements queued", zap.Int("count", queued))
	}
	return queued, nil
}

func (s *SettlementService) handle(ctx context.Context, job jobs.Job) error {
	requestID, ok := job.Payload.(string)
	if !ok || requestID == "" {
		s.logger.Error("settlement job without request id", zap.String("job_id", job.ID))
		s.metrics.RecordSettlement("invalid")
		return nil
	}
	settled, err := s.repo.MarkPaymentSettled(ctx, requestID)
	if err != nil {
		s.metrics.RecordSettlement("failed")
		return fmt.Errorf("settle request %s: %w", requestID, err)
	}
	if !settled {
		s.metrics.RecordSettlement("skipped")
		return nil
	}
	s.metrics.RecordSettlement("settled")
	s.logger.Info("payment settled", zap.String("request_id", requestID))
	publishEvent(ctx, s.publisher, s.logger, events.RequestPaymentSettled, map[string]string{"request_id": requestID})
	return nil
}
