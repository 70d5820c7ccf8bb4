package apperrors

import (
	"errors"
	"fmt"
)

// Closed error taxonomy for the service. Callers branch on these with
// errors.As instead of string-matching messages. Mapping rejections are
// deliberately NOT an error type: a record without a resolvable customer is
// a counted skip, never a failure of the batch.

// SourceFetchError is an upstream commerce API non-2xx or network failure.
// Pagination loops stop emitting further pages when they hit one.
type SourceFetchError struct {
	Entity     string
	Page       int
	StatusCode int
	Err        error
}

func (e *SourceFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("jumpseller fetch failed: entity=%s page=%d status=%d", e.Entity, e.Page, e.StatusCode)
	}
	return fmt.Sprintf("jumpseller fetch failed: entity=%s page=%d: %v", e.Entity, e.Page, e.Err)
}

func (e *SourceFetchError) Unwrap() error { return e.Err }

// NotFoundError reports a document ID that is absent from the store.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document not found: %s/%s", e.Collection, e.ID)
}

// ValidationError is malformed input to a write endpoint, rejected before
// any store mutation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// StoreWriteError is a failed batch commit. The pipeline has no
// partial-batch rollback; BatchesCommitted reports how many earlier batches
// made it so the operator can resume manually.
type StoreWriteError struct {
	Collection       string
	BatchesCommitted int
	Err              error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("batch write failed: collection=%s committedBatches=%d: %v", e.Collection, e.BatchesCommitted, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a NotFoundError anywhere in its chain.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
