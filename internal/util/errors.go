package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrNotFound indicates a required record or resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupported indicates a file format or operation is not supported
	ErrUnsupported = errors.New("unsupported")
)
