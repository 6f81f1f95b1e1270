package fplapi

import crerr "github.com/cockroachdb/errors"

// Sentinel errors for the upstream error-kind taxonomy. errTransient also
// backs the circuit breaker's failure classification.
var (
	errTransient = crerr.New("fpl upstream transient failure")

	// ErrRateLimited surfaces after retry exhaustion on a 429 response.
	ErrRateLimited = crerr.New("fpl upstream rate limited")
	// ErrUpstream marks a non-retryable 4xx or a non-JSON (HTML) response.
	ErrUpstream = crerr.New("fpl upstream error")
)

func isCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return crerr.Is(err, errTransient) || crerr.Is(err, ErrRateLimited)
}
