package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/nao1215/biblioscan/internal/locator"
)

// MaxBodySize is the default cap on stored resource bodies. Book files
// and pages larger than this are truncated by the fetcher before they
// reach any consumer.
const MaxBodySize = 64 * 1024 * 1024 // 64 MB

// Resource represents one fetched resource: an HTML page to scan for
// links, or a candidate book file.
type Resource struct {
	// Locator is the normalized locator the resource was fetched from.
	Locator locator.Locator `json:"locator"`

	// StatusCode is the HTTP response status code, 0 for local files.
	StatusCode int `json:"status_code"`

	// ContentType is the MIME type of the response, extracted from the
	// Content-Type header or sniffed for local files. May include
	// parameters such as "; charset=utf-8".
	ContentType string `json:"content_type"`

	// Body contains the raw resource bytes, capped at the fetcher's
	// body-size limit.
	Body []byte `json:"-"`

	// Hash is the SHA-256 hash of Body, hex encoded. Used for book
	// deduplication.
	Hash string `json:"hash"`
}

// ComputeHash calculates and sets the SHA-256 hash of the body.
// Call this after setting Body.
func (r *Resource) ComputeHash() {
	if len(r.Body) == 0 {
		r.Hash = ""
		return
	}
	sum := sha256.Sum256(r.Body)
	r.Hash = hex.EncodeToString(sum[:])
}

// IsHTML reports whether the content type indicates an HTML page worth
// scanning for links.
func (r *Resource) IsHTML() bool {
	ct := strings.ToLower(r.ContentType)
	return strings.HasPrefix(ct, "text/html") ||
		strings.HasPrefix(ct, "application/xhtml+xml")
}
