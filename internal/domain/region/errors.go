package region

import "errors"

// Sentinel kinds for region errors.
var (
	// ErrNoApplicableRegion means not even the fallback rule matched.
	// The regions sheet always carries a fallback row, so hitting this
	// is an invariant violation, not a recoverable condition.
	ErrNoApplicableRegion = errors.New("no applicable region")
)
