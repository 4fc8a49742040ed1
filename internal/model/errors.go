package model

import "errors"

// Analysis errors. Every failure surfaced by the engine wraps exactly one of these
// so the transport layer can pick a status code with errors.Is.
var (
	// ErrInvalidInput is returned for missing or unreadable documents and bad parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDependencyUnavailable means the embedding capability could not be reached or loaded.
	ErrDependencyUnavailable = errors.New("embedding dependency unavailable")

	// ErrDependencyTimeout means the embedding capability did not answer within the configured timeout.
	ErrDependencyTimeout = errors.New("embedding dependency timeout")

	// ErrInternalComputation marks a numeric fault such as NaN similarity or mismatched dimensions.
	ErrInternalComputation = errors.New("internal computation error")
)
