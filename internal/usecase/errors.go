package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrBatchAborted marks a deadline batch guardrail rejection: bootstrap unreachable, target fixtures
	// already started, or a phase success rate below the 80% threshold.
	ErrBatchAborted = errors.New("deadline batch aborted")

	// ErrDataConsistency marks locally-handled inconsistencies such as an
	// empty picks response or an unknown fixture status.
	ErrDataConsistency = errors.New("data consistency issue")
)
