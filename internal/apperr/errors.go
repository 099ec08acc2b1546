// Package apperr holds the sentinel errors shared across graphgen packages.
package apperr

import "errors"

var (
	// ErrQuotaExceeded is returned when the generator signals rate or quota limiting.
	ErrQuotaExceeded = errors.New("generation quota exceeded")
	// ErrGenerationFailure covers every other failure to obtain generator output.
	ErrGenerationFailure = errors.New("generation failed")
	// ErrMalformedOutput means generator text could not be parsed even after repair.
	ErrMalformedOutput = errors.New("malformed generator output")
	// ErrInvalidShape means parsed output lacks the nodes/edges containers.
	ErrInvalidShape = errors.New("invalid graph shape")
	// ErrInvalidRequest means the caller's input was rejected before generation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound is returned when a requested resource is absent or disabled.
	ErrNotFound = errors.New("not found")
)
