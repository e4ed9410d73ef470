package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ecocycle/ewaste-api/internal/models"
)

const deliveryColumns = `id, collection_request_id, collector_id, recycling_center_id, status, processing_notes, processed_at, created_at, updated_at`

// DeliveryRepository persists deliveries to recycling centers.
type DeliveryRepository struct {
	db *sqlx.DB
}

// NewDeliveryRepository constructs the repository.
func NewDeliveryRepository(db *sqlx.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// Create inserts a delivery. A second delivery for the same request yields a conflict store error.
func (r *DeliveryRepository) Create(ctx context.Context, delivery *models.Delivery) error {
	if delivery.ID == "" {
		delivery.ID = uuid.NewString()
	}
	if delivery.Status == "" {
		delivery.Status = models.DeliveryStatusPendingDelivery
	}
	now := time.Now().UTC()
	if delivery.CreatedAt.IsZero() {
		delivery.CreatedAt = now
	}
	delivery.UpdatedAt = now

	const query = `INSERT INTO deliveries (id, collection_request_id, collector_id, recycling_center_id, status, processing_notes, created_at, updated_at)
	VALUES (:id, :collection_request_id, :collector_id, :recycling_center_id, :status, :processing_notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, delivery); err != nil {
		return classifyStoreError("create delivery", err)
	}
	return nil
}

// FindByID fetches a delivery.
func (r *DeliveryRepository) FindByID(ctx context.Context, id string) (*models.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE id = $1`
	var delivery models.Delivery
	if err := r.db.GetContext(ctx, &delivery, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find delivery: %w", err)
	}
	return &delivery, nil
}

// FindWithRequest loads a delivery together with the commission fields of its
// parent request. Request columns are NULL when the link is dangling.
func (r *DeliveryRepository) FindWithRequest(ctx context.Context, id string) (*models.DeliveryWithRequest, error) {
	const query = `SELECT d.id, d.collection_request_id, d.collector_id, d.recycling_center_id, d.status,
       d.processing_notes, d.processed_at, d.created_at, d.updated_at,
       cr.id AS request_id, cr.collector_id AS request_collector_id, cr.total_amount,
       cr.collector_commission, cr.commission_paid
	FROM deliveries d
	LEFT JOIN collection_requests cr ON cr.id = d.collection_request_id
	WHERE d.id = $1`
	var delivery models.DeliveryWithRequest
	if err := r.db.GetContext(ctx, &delivery, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find delivery with request: %w", err)
	}
	return &delivery, nil
}

// List returns deliveries matching the filter, newest first.
func (r *DeliveryRepository) List(ctx context.Context, filter models.DeliveryFilter) ([]models.Delivery, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT ` + deliveryColumns + ` FROM deliveries`)

	conditions := make([]string, 0, 3)
	if filter.CollectorID != "" {
		args = append(args, filter.CollectorID)
		conditions = append(conditions, fmt.Sprintf("collector_id = $%d", len(args)))
	}
	if filter.RecyclingCenterID != "" {
		args = append(args, filter.RecyclingCenterID)
		conditions = append(conditions, fmt.Sprintf("recycling_center_id = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, string(status))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit, offset := clampLimit(filter.Limit, filter.Offset)
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var deliveries []models.Delivery
	if err := r.db.SelectContext(ctx, &deliveries, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return deliveries, nil
}

// UpdateStatus moves a delivery from one status to the next. sql.ErrNoRows is
// returned when the delivery is missing or no longer in the expected status.
func (r *DeliveryRepository) UpdateStatus(ctx context.Context, id string, from, to models.DeliveryStatus) (*models.Delivery, error) {
	query := `UPDATE deliveries SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2 RETURNING ` + deliveryColumns
	var delivery models.Delivery
	if err := r.db.GetContext(ctx, &delivery, query, id, string(from), string(to), time.Now().UTC()); err != nil {
		return nil, classifyStoreError("update delivery status", err)
	}
	return &delivery, nil
}

// MarkProcessed sets the processed status. A repeated call keeps the first
// processed timestamp, and keeps the stored notes unless new ones are given.
func (r *DeliveryRepository) MarkProcessed(ctx context.Context, id string, notes *string, processedAt time.Time) (*models.Delivery, error) {
	query := `UPDATE deliveries SET status = $2,
		processing_notes = COALESCE(NULLIF($3::text, ''), processing_notes),
		processed_at = COALESCE(processed_at, $4),
		updated_at = $4
	WHERE id = $1 RETURNING ` + deliveryColumns
	var delivery models.Delivery
	if err := r.db.GetContext(ctx, &delivery, query, id, string(models.DeliveryStatusProcessed), notes, processedAt); err != nil {
		return nil, classifyStoreError("mark delivery processed", err)
	}
	return &delivery, nil
}
