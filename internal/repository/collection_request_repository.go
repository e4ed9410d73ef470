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

const collectionRequestColumns = `id, requester_id, items, total_amount, collector_commission, sustainability_fund,
       payment_status, status, collector_id, recycling_center_id, preferred_date, time_slot, contact_name,
       contact_phone, address, notes, photo_urls, commission_paid, commission_paid_at, created_at, updated_at`

// CollectionRequestRepository persists pickup requests.
type CollectionRequestRepository struct {
	db *sqlx.DB
}

// NewCollectionRequestRepository constructs the repository.
func NewCollectionRequestRepository(db *sqlx.DB) *CollectionRequestRepository {
	return &CollectionRequestRepository{db: db}
}

// Create inserts a new request. Database rejections are returned as *models.StoreError.
func (r *CollectionRequestRepository) Create(ctx context.Context, req *models.CollectionRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.RequestStatusPending
	}
	if req.PaymentStatus == "" {
		req.PaymentStatus = models.PaymentStatusPending
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now

	const query = `INSERT INTO collection_requests
	(id, requester_id, items, total_amount, collector_commission, sustainability_fund, payment_status, status,
	 preferred_date, time_slot, contact_name, contact_phone, address, notes, photo_urls, commission_paid, created_at, updated_at)
	VALUES (:id, :requester_id, :items, :total_amount, :collector_commission, :sustainability_fund, :payment_status, :status,
	 :preferred_date, :time_slot, :contact_name, :contact_phone, :address, :notes, :photo_urls, :commission_paid, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return classifyStoreError("create collection request", err)
	}
	return nil
}

// FindByID fetches a request by identifier.
func (r *CollectionRequestRepository) FindByID(ctx context.Context, id string) (*models.CollectionRequest, error) {
	query := `SELECT ` + collectionRequestColumns + ` FROM collection_requests WHERE id = $1`
	var req models.CollectionRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find collection request: %w", err)
	}
	return &req, nil
}

// List returns requests matching the filter, newest first.
func (r *CollectionRequestRepository) List(ctx context.Context, filter models.CollectionRequestFilter) ([]models.CollectionRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString(`SELECT ` + collectionRequestColumns + ` FROM collection_requests`)

	conditions := make([]string, 0, 4)
	if filter.RequesterID != "" {
		args = append(args, filter.RequesterID)
		conditions = append(conditions, fmt.Sprintf("requester_id = $%d", len(args)))
	}
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

	var requests []models.CollectionRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list collection requests: %w", err)
	}
	return requests, nil
}

// Assign sets the recycling center, the collector and the assigned status in one
// statement. Requests already confirmed or completed, and requests whose delivery
// belongs to another collector, are left untouched and sql.ErrNoRows is returned.
func (r *CollectionRequestRepository) Assign(ctx context.Context, id, recyclingCenterID, collectorID string) (*models.CollectionRequest, error) {
	query := `UPDATE collection_requests
	SET recycling_center_id = $2, collector_id = $3, status = $4, updated_at = $5
	WHERE id = $1 AND status IN ($6, $7)
	  AND NOT EXISTS (
		SELECT 1 FROM deliveries d
		WHERE d.collection_request_id = $1 AND d.collector_id IS DISTINCT FROM $3
	  )
	RETURNING ` + collectionRequestColumns
	var req models.CollectionRequest
	err := r.db.GetContext(ctx, &req, query,
		id, recyclingCenterID, collectorID, string(models.RequestStatusAssigned), time.Now().UTC(),
		string(models.RequestStatusPending), string(models.RequestStatusAssigned),
	)
	if err != nil {
		return nil, classifyStoreError("assign collection request", err)
	}
	return &req, nil
}

// MarkConfirmed moves the request to confirmed and flags the commission as paid.
// The first paid timestamp is kept on repeated calls.
func (r *CollectionRequestRepository) MarkConfirmed(ctx context.Context, id string, paidAt time.Time) (*models.CollectionRequest, error) {
	query := `UPDATE collection_requests
	SET status = $2, commission_paid = TRUE, commission_paid_at = COALESCE(commission_paid_at, $3), updated_at = $3
	WHERE id = $1
	RETURNING ` + collectionRequestColumns
	var req models.CollectionRequest
	if err := r.db.GetContext(ctx, &req, query, id, string(models.RequestStatusConfirmed), paidAt); err != nil {
		return nil, classifyStoreError("confirm collection request", err)
	}
	return &req, nil
}

// ListPendingPayment returns ids of requests created at or before cutoff whose
// payment is still pending, oldest first.
func (r *CollectionRequestRepository) ListPendingPayment(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `SELECT id FROM collection_requests
	WHERE payment_status = $1 AND created_at <= $2
	ORDER BY created_at
	LIMIT $3`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, string(models.PaymentStatusPending), cutoff, limit); err != nil {
		return nil, fmt.Errorf("list requests pending payment: %w", err)
	}
	return ids, nil
}

// MarkPaymentSettled flips payment_status to paid. It reports false when the
// request was already settled.
func (r *CollectionRequestRepository) MarkPaymentSettled(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE collection_requests SET payment_status = $2, updated_at = $3 WHERE id = $1 AND payment_status = $4`
	result, err := r.db.ExecContext(ctx, query, id, string(models.PaymentStatusPaid), time.Now().UTC(), string(models.PaymentStatusPending))
	if err != nil {
		return false, classifyStoreError("settle collection request payment", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check settlement rows: %w", err)
	}
	return rows > 0, nil
}
