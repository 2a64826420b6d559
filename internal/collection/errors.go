package collection

import "errors"

// Sentinel errors for collection operations.
var (
	// ErrNotFound is returned when removing a book that is not in the
	// collection.
	ErrNotFound = errors.New("book not found in collection")

	// ErrNotAPage is returned by IngestPage when the target resource is
	// not an HTML page.
	ErrNotAPage = errors.New("resource is not an HTML page")
)
