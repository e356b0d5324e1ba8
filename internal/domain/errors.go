package domain

import "errors"

// Errors shared by the queue state machine and address checks.
var (
	// ErrInvalidEmail is returned when a recipient address cannot be parsed.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidTransition is returned when a queued email in a terminal
	// status is asked to record another attempt.
	ErrInvalidTransition = errors.New("invalid status transition")
)
