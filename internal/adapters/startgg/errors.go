package startgg

import "errors"

// Sentinel kinds for data source errors.
var (
	// ErrInvalidSlug means the identifier does not look like an event slug.
	ErrInvalidSlug = errors.New("invalid event slug")

	// ErrRequestFailed covers transport and non-2xx failures.
	ErrRequestFailed = errors.New("data source request failed")

	// ErrMalformedResponse covers responses that parsed but are missing
	// the data the query asked for.
	ErrMalformedResponse = errors.New("malformed data source response")

	// ErrNotFound means the request succeeded but the slug is unknown
	// to the data source. Distinct from request failure.
	ErrNotFound = errors.New("event not found")
)
