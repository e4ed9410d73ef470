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

const profileColumns = `id, email, password_hash, full_name, role, status, phone, address, facility_name, facility_capacity, created_at, updated_at`

// ProfileRepository provides database access for profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new instance of ProfileRepository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByEmail returns a profile by email address.
func (r *ProfileRepository) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find profile by email: %w", err)
	}
	return &profile, nil
}

// FindByID returns a profile by identifier.
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1 LIMIT 1`
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find profile by id: %w", err)
	}
	return &profile, nil
}

// Create inserts a new profile.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	const query = `INSERT INTO profiles (id, email, password_hash, full_name, role, status, phone, address, facility_name, facility_capacity, created_at, updated_at)
	VALUES (:id, :email, :password_hash, :full_name, :role, :status, :phone, :address, :facility_name, :facility_capacity, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return classifyStoreError("create profile", err)
	}
	return nil
}

// List returns profiles matching the filter with the total count.
func (r *ProfileRepository) List(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, int, error) {
	baseQuery := `FROM profiles WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", profileColumns, baseQuery, pageSize, offset)
	var profiles []models.Profile
	if err := r.db.SelectContext(ctx, &profiles, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list profiles: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count profiles: %w", err)
	}
	return profiles, total, nil
}

// UpdateStatus changes the approval status of a profile and returns the updated row.
func (r *ProfileRepository) UpdateStatus(ctx context.Context, id string, status models.ProfileStatus) (*models.Profile, error) {
	query := `UPDATE profiles SET status = $2, updated_at = $3 WHERE id = $1 RETURNING ` + profileColumns
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, id, status, time.Now().UTC()); err != nil {
		return nil, classifyStoreError("update profile status", err)
	}
	return &profile, nil
}
