package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecocycle/ewaste-api/internal/models"
)

var profileRowColumns = []string{"id", "email", "password_hash", "full_name", "role", "status", "phone", "address", "facility_name", "facility_capacity", "created_at", "updated_at"}

func TestProfileRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(profileRowColumns).
		AddRow("center-1", "center@example.com", "hash", "Green Center", "RECYCLING_CENTER", "active", nil, nil, "Green Facility", 500, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM profiles WHERE id = $1")).
		WithArgs("center-1").
		WillReturnRows(rows)

	profile, err := repo.FindByID(context.Background(), "center-1")
	require.NoError(t, err)
	assert.True(t, profile.IsActiveRole(models.RoleRecyclingCenter))
	require.NotNil(t, profile.FacilityCapacity)
	assert.Equal(t, 500, *profile.FacilityCapacity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectQuery("FROM profiles WHERE id").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestProfileRepositoryCreateDuplicateEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectExec("INSERT INTO profiles").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Profile{Email: "dup@example.com", Role: models.RolePublic, Status: models.ProfileStatusActive})
	require.Error(t, err)
	assert.Equal(t, models.StoreErrorConflict, models.StoreErrorKindOf(err))
}

func TestProfileRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	now := time.Now()
	role := models.RoleCollector
	status := models.ProfileStatusPendingApproval
	rows := sqlmock.NewRows(profileRowColumns).
		AddRow("col-1", "c@example.com", "hash", "Collector", "COLLECTOR", "pending_approval", nil, nil, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM profiles WHERE 1=1 AND role = $1 AND status = $2 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs(string(role), string(status)).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM profiles")).
		WithArgs(string(role), string(status)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	profiles, total, err := repo.List(context.Background(), models.ProfileFilter{Role: &role, Status: &status})
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
