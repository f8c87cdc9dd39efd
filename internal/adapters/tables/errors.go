package tables

import "errors"

// Sentinel kinds for reference sheet loading.
var (
	// ErrOpenTable means a required sheet could not be opened.
	ErrOpenTable = errors.New("open reference table")

	// ErrBadRow means a row failed to parse.
	ErrBadRow = errors.New("malformed table row")
)
