package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/ecocycle/ewaste-api/internal/models"
)

// PostgreSQL SQLSTATE codes surfaced as store error kinds.
const (
	sqlStateInsufficientPrivilege = "42501"
	sqlStateForeignKeyViolation   = "23503"
	sqlStateUniqueViolation       = "23505"
)

// classifyStoreError wraps a database failure with its store error kind.
// sql.ErrNoRows passes through untouched so callers can map it to not found.
func classifyStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return err
	}
	kind := models.StoreErrorGeneric
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case sqlStateInsufficientPrivilege:
			kind = models.StoreErrorPermission
		case sqlStateForeignKeyViolation:
			kind = models.StoreErrorReference
		case sqlStateUniqueViolation:
			kind = models.StoreErrorConflict
		}
	}
	return &models.StoreError{Kind: kind, Op: op, Err: err}
}

func clampLimit(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
