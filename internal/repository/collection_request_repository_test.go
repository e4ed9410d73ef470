package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecocycle/ewaste-api/internal/models"
)

var collectionRequestRowColumns = []string{"id", "requester_id", "items", "total_amount", "collector_commission", "sustainability_fund",
	"payment_status", "status", "collector_id", "recycling_center_id", "preferred_date", "time_slot", "contact_name",
	"contact_phone", "address", "notes", "photo_urls", "commission_paid", "commission_paid_at", "created_at", "updated_at"}

func collectionRequestRow(id, status string, collectorID, centerID interface{}) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(collectionRequestRowColumns).
		AddRow(id, "user-1", `[{"category":"mobile_phone","quantity":2,"unit_price":"500"}]`, "1000", "100", "100",
			"pending", status, collectorID, centerID, now, "morning", "Jane", "555-0100",
			"1 Main St", nil, "{https://cdn.example.com/a.jpg}", false, nil, now, now)
}

func TestCollectionRequestRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCollectionRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO collection_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.CollectionRequest{
		RequesterID: "user-1",
		Items:       models.RequestItems{{Category: "laptop", Quantity: 1, UnitPrice: decimal.NewFromInt(1500)}},
		TotalAmount: decimal.NewFromInt(1500),
	}
	require.NoError(t, repo.Create(context.Background(), req))
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.Equal(t, models.PaymentStatusPending, req.PaymentStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionRequestRepositoryCreateClassifiesErrors(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCollectionRequestRepository(db)

	mock.ExpectExec("INSERT INTO collection_requests").WillReturnError(&pq.Error{Code: "42501", Message: "row-level security"})
	err := repo.Create(context.Background(), &models.CollectionRequest{RequesterID: "user-1"})
	assert.Equal(t, models.StoreErrorPermission, models.StoreErrorKindOf(err))

	mock.ExpectExec("INSERT INTO collection_requests").WillReturnError(&pq.Error{Code: "23503"})
	err = repo.Create(context.Background(), &models.CollectionRequest{RequesterID: "ghost"})
	assert.Equal(t, models.StoreErrorReference, models.StoreErrorKindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionRequestRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCollectionRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM collection_requests WHERE id = $1")).
		WithArgs("req-1").
		WillReturnRows(collectionRequestRow("req-1", "pending", nil, nil))

	req, err := repo.FindByID(context.Background(), "req-1")
	require.NoError(t, err)
	require.Len(t, req.Items, 1)
	assert.Equal(t, 2, req.Items[0].Quantity)
	assert.True(t, req.CollectorCommission.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, []string{"https://cdn.example.com/a.jpg"}, []string(req.PhotoURLs))
	assert.Nil(t, req.CollectorID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionRequestRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCollectionRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM collection_requests WHERE collector_id = $1 AND status IN ($2,$3) ORDER BY created_at DESC LIMIT 50 OFFSET 0")).
		WithArgs("col-1", "assigned", "confirmed").
		WillReturnRows(collectionRequestRow("req-1", "assigned", "col-1", "center-1"))

	list, err := repo.List(context.Background(), models.CollectionRequestFilter{
		CollectorID: "col-1",
		Status:      []models.RequestStatus{models.RequestStatusAssigned, models.RequestStatusConfirmed},
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].RecyclingCenterID)
	assert.Equal(t, "center-1", *list[0].RecyclingCenterID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionRequestRepositoryAssignSingleUpdate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCollectionRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SET recycling_center_id = $2, collector_id = $3, status = $4")).
		WithArgs("req-1", "center-1", "col-1", "assigned", sqlmock.AnyArg(), "pending", "assigned").
		WillReturnRows(collectionRequestRow("req-1", "assigned", "col-1", "center-1"))

	req, err := repo.Assign(context.Background(), "req-1", "center-1", "col-1")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusAssigned, req.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionRequestRepositoryAssignLockedRequest(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCollectionRequestRepository(db)

	mock.ExpectQuery("UPDATE collection_requests").WillReturnError(sql.ErrNoRows)

	_, err := repo.Assign(context.Background(), "req-1", "center-1", "col-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCollectionRequestRepositoryAssignGuardsExistingDelivery(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCollectionRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("d.collection_request_id = $1 AND d.collector_id IS DISTINCT FROM $3")).
		WithArgs("req-1", "center-1", "col-2", "assigned", sqlmock.AnyArg(), "pending", "assigned").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Assign(context.Background(), "req-1", "center-1", "col-2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionRequestRepositoryMarkConfirmed(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCollectionRequestRepository(db)

	paidAt := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("commission_paid = TRUE, commission_paid_at = COALESCE(commission_paid_at, $3)")).
		WithArgs("req-1", "confirmed", paidAt).
		WillReturnRows(collectionRequestRow("req-1", "confirmed", "col-1", "center-1"))

	req, err := repo.MarkConfirmed(context.Background(), "req-1", paidAt)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusConfirmed, req.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionRequestRepositoryMarkPaymentSettled(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCollectionRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE collection_requests SET payment_status = $2")).
		WithArgs("req-1", "paid", sqlmock.AnyArg(), "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE collection_requests SET payment_status = $2")).
		WithArgs("req-1", "paid", sqlmock.AnyArg(), "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	settled, err := repo.MarkPaymentSettled(context.Background(), "req-1")
	require.NoError(t, err)
	assert.True(t, settled)

	settled, err = repo.MarkPaymentSettled(context.Background(), "req-1")
	require.NoError(t, err)
	assert.False(t, settled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionRequestRepositoryListPendingPayment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCollectionRequestRepository(db)

	cutoff := time.Now().UTC().Add(-2 * time.Second)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE payment_status = $1 AND created_at <= $2")).
		WithArgs("pending", cutoff, 100).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("req-1").AddRow("req-2"))

	ids, err := repo.ListPendingPayment(context.Background(), cutoff, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"req-1", "req-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
