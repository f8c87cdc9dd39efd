package app

import "errors"

// Sentinel kinds for service assembly and batch input.
var (
	// ErrNotConfigured means a required collaborator was not provided.
	ErrNotConfigured = errors.New("service not configured")

	// ErrBadBulkFile means the batch input file could not be parsed.
	ErrBadBulkFile = errors.New("malformed bulk file")
)
