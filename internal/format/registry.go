package format

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// Format is the capability set every book format implements.
// Metadata accessors return zero values (empty string, nil slice,
// zero time) when the underlying file simply does not carry the field;
// they return an error only when the file cannot be read at all.
type Format interface {
	// Title returns the book title.
	Title() (string, error)

	// Authors returns the ordered list of authors.
	Authors() ([]string, error)

	// Language returns the language tag declared by the file (e.g. "fr").
	Language() (string, error)

	// Subjects returns the ordered list of subjects or keywords.
	Subjects() ([]string, error)

	// PublicationDate returns the publication date, or the zero time
	// when the file does not declare one.
	PublicationDate() (time.Time, error)

	// WriteFromMarkdown renders a markdown document into the underlying
	// file, overwriting it. Returns an error wrapping ErrConversion when
	// the format cannot represent the document.
	WriteFromMarkdown(markdown string) error
}

// Constructor builds a Format bound to a file path. The file need not
// exist yet: WriteFromMarkdown creates it.
type Constructor func(path string) Format

// Descriptor is an immutable registration record: one file suffix, one
// MIME type, one constructor.
type Descriptor struct {
	// Suffix is the lowercased file extension without the dot, e.g. "pdf".
	Suffix string

	// MIMEType is the canonical MIME type, e.g. "application/pdf".
	MIMEType string

	// New constructs a Format bound to a path.
	New Constructor
}

// The registry is append-only process-wide state, populated by init()
// functions in this package. The mutex only matters for tests that
// exercise Register directly; normal operation registers everything
// before any lookup happens.
var (
	registryMu sync.RWMutex
	bySuffix   = make(map[string]Descriptor)
	byMIME     = make(map[string]Descriptor)
)

// Register adds a format to the registry. It fails with
// ErrDuplicateFormat if the suffix or MIME type is already claimed.
func Register(suffix, mimeType string, ctor Constructor) error {
	suffix = strings.ToLower(strings.TrimPrefix(suffix, "."))
	mimeType = canonicalMIME(mimeType)
	if suffix == "" || mimeType == "" || ctor == nil {
		return fmt.Errorf("%w: suffix, MIME type, and constructor are required", ErrDuplicateFormat)
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, ok := bySuffix[suffix]; ok {
		return fmt.Errorf("%w: suffix %q", ErrDuplicateFormat, suffix)
	}
	if _, ok := byMIME[mimeType]; ok {
		return fmt.Errorf("%w: MIME type %q", ErrDuplicateFormat, mimeType)
	}

	d := Descriptor{Suffix: suffix, MIMEType: mimeType, New: ctor}
	bySuffix[suffix] = d
	byMIME[mimeType] = d
	return nil
}

// mustRegister registers a built-in format and panics on conflict.
// A conflict between built-ins is a programming error that must surface
// at startup, not during a crawl.
func mustRegister(suffix, mimeType string, ctor Constructor) {
	if err := Register(suffix, mimeType, ctor); err != nil {
		panic(err)
	}
}

// Resolve returns the descriptor for a file suffix or a MIME type.
// The argument may carry a leading dot (".pdf") or MIME parameters
// ("application/pdf; charset=binary"). Fails with ErrUnknownFormat when
// nothing matches.
func Resolve(suffixOrMIME string) (Descriptor, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if d, ok := bySuffix[strings.ToLower(strings.TrimPrefix(suffixOrMIME, "."))]; ok {
		return d, nil
	}
	if d, ok := byMIME[canonicalMIME(suffixOrMIME)]; ok {
		return d, nil
	}
	return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownFormat, suffixOrMIME)
}

// Sniff detects the format of raw bytes by content inspection.
// Used as a last resort when a remote locator has no usable suffix and
// the server sent no (or a generic) Content-Type.
func Sniff(data []byte) (Descriptor, error) {
	mt := mimetype.Detect(data)
	for ; mt != nil; mt = mt.Parent() {
		if d, err := Resolve(mt.String()); err == nil {
			return d, nil
		}
	}
	return Descriptor{}, fmt.Errorf("%w: unrecognized content", ErrUnknownFormat)
}

// Known reports whether a suffix or MIME type belongs to a registered
// format. The crawler uses this for cheap URL inspection before fetching.
func Known(suffixOrMIME string) bool {
	_, err := Resolve(suffixOrMIME)
	return err == nil
}

// Suffixes returns the registered file suffixes in sorted order.
func Suffixes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]string, 0, len(bySuffix))
	for s := range bySuffix {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// canonicalMIME lowercases a MIME type and strips parameters such as
// "; charset=utf-8".
func canonicalMIME(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return mimeType
}
