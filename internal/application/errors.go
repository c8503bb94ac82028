package application

import "errors"

var (
	// ErrInvalidInput rejects blank symbols, empty users and non-positive
	// amounts before any I/O happens.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstreamUnavailable marks a transport failure talking to the quote
	// provider. Recovered per symbol inside the fetch pipeline.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrDataIntegrity marks a malformed or invariant-violating quote payload.
	ErrDataIntegrity = errors.New("data integrity")
	// ErrConcurrencyConflict is surfaced after the balance retry bound is
	// exhausted. The caller may safely retry the whole operation.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
)
