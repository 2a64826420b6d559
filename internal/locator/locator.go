// Package locator provides normalized references to book resources.
//
// A locator is either a local file path or a remote HTTP(S) URL. Two
// locators that refer to the same resource compare equal after
// normalization, which is what the crawler's visited set and the
// collection's deduplication rely on.
package locator

import (
	"errors"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidLocator is returned when a string cannot be interpreted as
// either a file path or an HTTP(S) URL.
var ErrInvalidLocator = errors.New("invalid locator")

// Locator is a normalized reference to a resource: a remote URL or a
// local file path. The zero value is an empty local path and should not
// be used; construct locators via Parse.
type Locator struct {
	// normalized is the canonical string form. For remote locators it
	// keeps the path exactly as parsed, trailing slash included, so it
	// stays valid as a fetch target and as a base for resolving
	// relative links.
	normalized string

	// key is the deduplication form used by visited sets: like
	// normalized, but with the trailing slash stripped so "/books/"
	// and "/books" count as one resource.
	key string

	// url is non-nil only for remote locators.
	url *url.URL
}

// Parse interprets s as a locator and normalizes it.
//
// Strings starting with "http://" or "https://" are treated as remote
// URLs; everything else is treated as a local file path. URL schemes
// other than HTTP(S) are rejected because the fetcher cannot retrieve
// them.
func Parse(s string) (Locator, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Locator{}, ErrInvalidLocator
	}

	if !looksRemote(s) {
		// Reject non-HTTP schemes like ftp:// or mailto: rather than
		// treating them as odd relative paths.
		if u, err := url.Parse(s); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
			return Locator{}, ErrInvalidLocator
		}
		clean := filepath.Clean(s)
		return Locator{normalized: clean, key: clean}, nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return Locator{}, ErrInvalidLocator
	}
	normalizeURL(u)
	return Locator{normalized: u.String(), key: dedupKey(u), url: u}, nil
}

// looksRemote reports whether s has an explicit HTTP(S) scheme.
func looksRemote(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// normalizeURL canonicalizes a URL in place: the fragment is dropped
// (it never changes the retrieved content), scheme and host are
// lowercased, and an empty path becomes "/". The path itself is kept
// as-is; a trailing slash distinguishes a directory page from a file
// and relative links resolve differently against each.
func normalizeURL(u *url.URL) {
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Path == "" {
		u.Path = "/"
	}
}

// dedupKey derives the visited-set key from a normalized URL: the
// trailing slash is stripped so "/books/" and "/books" count once.
func dedupKey(u *url.URL) string {
	if u.Path == "/" || !strings.HasSuffix(u.Path, "/") {
		return u.String()
	}
	stripped := *u
	stripped.Path = strings.TrimSuffix(u.Path, "/")
	return stripped.String()
}

// IsRemote reports whether the locator refers to a remote URL.
func (l Locator) IsRemote() bool { return l.url != nil }

// String returns the normalized form of the locator. For remote
// locators this is the URL to fetch, trailing slash preserved.
func (l Locator) String() string { return l.normalized }

// Key returns the deduplication form of the locator. Two locators
// refer to the same resource iff their Key values are equal; this is
// what visited sets should index by.
func (l Locator) Key() string { return l.key }

// URL returns the parsed URL for remote locators, or nil for local paths.
func (l Locator) URL() *url.URL { return l.url }

// Path returns the local file path for local locators, or "" for remote ones.
func (l Locator) Path() string {
	if l.IsRemote() {
		return ""
	}
	return l.normalized
}

// Suffix returns the lowercased file extension without the leading dot,
// e.g. "pdf" for "/books/rome.pdf". Empty when the locator has no
// extension.
func (l Locator) Suffix() string {
	var ext string
	if l.IsRemote() {
		ext = path.Ext(l.url.Path)
	} else {
		ext = filepath.Ext(l.normalized)
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Filename returns the base name of the resource, e.g. "rome.pdf".
func (l Locator) Filename() string {
	if l.IsRemote() {
		return path.Base(l.url.Path)
	}
	return filepath.Base(l.normalized)
}

// Host returns the lowercased host for remote locators, "" otherwise.
func (l Locator) Host() string {
	if !l.IsRemote() {
		return ""
	}
	return l.url.Host
}

// Normalize returns the deduplication key of a raw URL string without
// constructing a Locator. Unparsable input is returned unchanged, which
// keeps visited-set bookkeeping consistent even for junk links.
func Normalize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	normalizeURL(u)
	return dedupKey(u)
}
