package usecase

import "errors"

var (
	// ErrInvalidInput rejects a request before any model call is made.
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("resource not found")
	// ErrDependencyUnavailable covers the model provider, its file store and
	// an open circuit breaker.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	// ErrParseFailed is returned with the stored generation when the reply
	// could not be repaired.
	ErrParseFailed = errors.New("insight response could not be parsed")
)
