package store

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by store implementations. Implementations wrap
// them with operation context; match with errors.Is.
var (
	// ErrNotFound means the row does not exist or is not in a state the
	// operation applies to.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate means an insert hit a unique constraint.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity means a value was rejected before or by the datastore.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed wraps commit failures.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrUnavailable means the datastore could not be reached or timed out.
	ErrUnavailable = errors.New("datastore unavailable")

	// ErrQueuedEmailNotFound is returned when recording an attempt for an
	// email that is missing or no longer pending.
	ErrQueuedEmailNotFound = fmt.Errorf("%w: queued email", ErrNotFound)
)

// IsNotFoundError reports whether err wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError reports whether err wraps ErrDuplicate.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
