package models

import (
	"errors"
	"fmt"
)

// StoreErrorKind classifies a rejected store call.
type StoreErrorKind string

const (
	StoreErrorGeneric    StoreErrorKind = "generic"
	StoreErrorPermission StoreErrorKind = "permission"
	StoreErrorReference  StoreErrorKind = "reference"
	StoreErrorConflict   StoreErrorKind = "conflict"
)

// StoreError is returned by repositories when the database rejects a mutation.
type StoreError struct {
	Kind StoreErrorKind
	Op   string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// StoreErrorKindOf extracts the kind of a store error, defaulting to generic.
func StoreErrorKindOf(err error) StoreErrorKind {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Kind
	}
	return StoreErrorGeneric
}
