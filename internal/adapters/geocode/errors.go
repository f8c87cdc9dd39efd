package geocode

import "errors"

// ErrUnavailable means reverse geocoding kept failing after every retry.
var ErrUnavailable = errors.New("reverse geocoding unavailable")
