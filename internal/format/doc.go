// Package format provides the book-format plugin registry and the
// built-in PDF and EPUB implementations.
//
// # Architecture
//
// Each format implements the Format capability set (metadata accessors
// plus markdown rendering) and registers itself at load time with a file
// suffix and a MIME type, both of which must be unique process-wide.
// Lookup happens through Resolve (suffix or MIME) or Sniff (content
// detection), so callers never depend on a concrete format type.
//
// Design decision: We use a registry of constructors behind a single
// interface rather than a type switch because:
//  1. Recognition by suffix, MIME type, and sniffing share one table
//  2. Each format stays testable in isolation
//  3. Adding a format is one file with an init() and no core changes
//
// Registration is confined to package init; the registry is effectively
// immutable while a crawl or collection operation is running, so
// concurrent reads are safe.
package format
