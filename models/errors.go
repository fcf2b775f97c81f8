package models

import "errors"

// Sentinel errors shared by the repository and the controllers. The
// repository wraps store failures with %w; these are the expected
// outcomes handlers translate into status codes.
var (
	ErrInvalidID   = errors.New("invalid id format")
	ErrNotFound    = errors.New("resource not found")
	ErrEmptyUpdate = errors.New("no fields to update")
	ErrNoValidIDs  = errors.New("no valid ids provided")
	ErrNoRecords   = errors.New("no matching records")
)
