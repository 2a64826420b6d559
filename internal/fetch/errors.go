package fetch

import "errors"

// Sentinel errors for fetch operations. All of them are recoverable
// from the crawler's point of view: the resource is skipped and
// recorded as a diagnostic.
var (
	// ErrFetch is returned for transport failures and non-2xx responses.
	ErrFetch = errors.New("failed to fetch resource")

	// ErrTooLarge is returned when a response body exceeds the
	// configured size limit.
	ErrTooLarge = errors.New("resource exceeds size limit")
)
