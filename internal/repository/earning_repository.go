package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ecocycle/ewaste-api/internal/models"
)

const earningColumns = `id, collector_id, collection_request_id, amount, status, paid_at, created_at, updated_at`

// EarningRepository persists the collector earnings ledger.
type EarningRepository struct {
	db *sqlx.DB
}

// NewEarningRepository constructs the repository.
func NewEarningRepository(db *sqlx.DB) *EarningRepository {
	return &EarningRepository{db: db}
}

// Upsert creates or updates the single ledger row for (collector, request).
// A paid row keeps its status, amount and first paid_at whatever is passed in.
func (r *EarningRepository) Upsert(ctx context.Context, earning *models.CollectorEarning) (*models.CollectorEarning, error) {
	if earning.ID == "" {
		earning.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	query := `INSERT INTO collector_earnings (id, collector_id, collection_request_id, amount, status, paid_at, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	ON CONFLICT (collector_id, collection_request_id) DO UPDATE SET
		amount = CASE WHEN collector_earnings.status = 'paid' THEN collector_earnings.amount ELSE EXCLUDED.amount END,
		status = CASE WHEN collector_earnings.status = 'paid' THEN collector_earnings.status ELSE EXCLUDED.status END,
		paid_at = COALESCE(collector_earnings.paid_at, EXCLUDED.paid_at),
		updated_at = EXCLUDED.updated_at
	RETURNING ` + earningColumns
	var stored models.CollectorEarning
	err := r.db.GetContext(ctx, &stored, query,
		earning.ID, earning.CollectorID, earning.CollectionRequestID, earning.Amount,
		string(earning.Status), earning.PaidAt, now,
	)
	if err != nil {
		return nil, classifyStoreError("upsert collector earning", err)
	}
	return &stored, nil
}

// DeletePending removes an unpaid ledger row. Paid rows are never removed; the
// return value reports whether a row was deleted.
func (r *EarningRepository) DeletePending(ctx context.Context, collectorID, requestID string) (bool, error) {
	const query = `DELETE FROM collector_earnings
	WHERE collector_id = $1 AND collection_request_id = $2 AND status = $3`
	result, err := r.db.ExecContext(ctx, query, collectorID, requestID, string(models.EarningStatusPending))
	if err != nil {
		return false, classifyStoreError("delete pending collector earning", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check deleted earning rows: %w", err)
	}
	return rows > 0, nil
}

// List returns ledger rows for the filter, newest first.
func (r *EarningRepository) List(ctx context.Context, filter models.EarningFilter) ([]models.CollectorEarning, error) {
	where, args := earningConditions(filter)
	query := `SELECT ` + earningColumns + ` FROM collector_earnings` + where + ` ORDER BY created_at DESC`
	var earnings []models.CollectorEarning
	if err := r.db.SelectContext(ctx, &earnings, query, args...); err != nil {
		return nil, fmt.Errorf("list collector earnings: %w", err)
	}
	return earnings, nil
}

// Summary totals pending and paid amounts for the filter.
func (r *EarningRepository) Summary(ctx context.Context, filter models.EarningFilter) (*models.EarningsSummary, error) {
	where, args := earningConditions(filter)
	query := `SELECT
		COALESCE(SUM(amount) FILTER (WHERE status = 'pending'), 0) AS pending_total,
		COALESCE(SUM(amount) FILTER (WHERE status = 'paid'), 0) AS paid_total,
		COUNT(*) AS count
	FROM collector_earnings` + where
	var row struct {
		PendingTotal decimal.Decimal `db:"pending_total"`
		PaidTotal    decimal.Decimal `db:"paid_total"`
		Count        int             `db:"count"`
	}
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, fmt.Errorf("summarize collector earnings: %w", err)
	}
	return &models.EarningsSummary{
		CollectorID:  filter.CollectorID,
		PendingTotal: row.PendingTotal,
		PaidTotal:    row.PaidTotal,
		Count:        row.Count,
	}, nil
}

func earningConditions(filter models.EarningFilter) (string, []interface{}) {
	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)
	if filter.CollectorID != "" {
		args = append(args, filter.CollectorID)
		conditions = append(conditions, fmt.Sprintf("collector_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.Before != nil {
		args = append(args, *filter.Before)
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", len(args)))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
