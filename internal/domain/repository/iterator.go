package repository

import (
	"fmt"

	"GridPulse/internal/domain/models"
)

// ReadingIterator streams stored records in ascending timestamp order.
// Callers must Close it and check Err after the loop.
type ReadingIterator interface {
	Next() bool
	Record() *models.MeterRecord
	Err() error
	Close() error
}

// StoreError wraps a failure from a storage collaborator. The store never
// retries; callers decide what a failed write or scan means.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err with the failing operation name.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}
