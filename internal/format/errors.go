package format

import "errors"

// Sentinel errors for format resolution and rendering. Callers use
// errors.Is() to distinguish recoverable recognition failures from the
// fatal registration error.
var (
	// ErrDuplicateFormat is returned when a suffix or MIME type is
	// already claimed by a different constructor. This is a programming
	// error and surfaces at startup via mustRegister.
	ErrDuplicateFormat = errors.New("duplicate format registration")

	// ErrUnknownFormat is returned when no registered format matches a
	// suffix, MIME type, or byte content. Always recoverable: the caller
	// skips the resource and continues.
	ErrUnknownFormat = errors.New("unknown format")

	// ErrConversion is returned when a markdown document cannot be
	// rendered into the target format. No partial output is retained.
	ErrConversion = errors.New("markdown conversion failed")
)
