// Package apperr defines the sentinel errors shared across layers.
package apperr

import "errors"

var (
	// ErrNotFound means no record matched the given owner and id.
	ErrNotFound = errors.New("not found")
	// ErrValidation means a required field was missing or malformed.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized means the request carried no usable credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnavailable means the durable store faulted mid-operation.
	ErrUnavailable = errors.New("storage unavailable")
)
