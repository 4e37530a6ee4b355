package quartz

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyExists is returned by store operations called with
	// replace=false against an existing document.
	ErrAlreadyExists = errors.New("object already exists")

	// ErrConsistency is returned when a trigger replace/update names a
	// different job than the trigger it overwrites. The write is aborted
	// before any mutation.
	ErrConsistency = errors.New("new trigger is not related to the same job as the old trigger")

	// ErrUnsupported is returned by administrative operations this store
	// deliberately does not implement (group pause/resume, pause-all,
	// shutdown). Callers get a stable contract instead of a silent no-op.
	ErrUnsupported = errors.New("operation not supported by this job store")
)

// PersistenceError wraps a storage-layer failure (driver error, revision
// conflict, codec failure) with the operation that hit it. The original
// cause is always attached, never swallowed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure in %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NewPersistenceError wraps err for operation op. Errors already belonging
// to the store taxonomy pass through unchanged.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrConsistency) || errors.Is(err, ErrUnsupported) {
		return err
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
