// Package book defines the book entity: one recognized file in the
// collection together with its provenance and lazily loaded metadata.
package book

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/nao1215/biblioscan/internal/format"
	"github.com/nao1215/biblioscan/internal/locator"
)

// DateLayout is the day/month/year layout used whenever a publication
// date is rendered for people, in reports and listings.
const DateLayout = "02/01/2006"

// Book is one book file. Identity is the SHA-256 of the file content,
// so the same bytes fetched from two different locators are one book.
// Metadata is read from the file on first access and cached; concurrent
// access is safe.
type Book struct {
	path   string
	source locator.Locator
	desc   format.Descriptor
	hash   string

	mu     sync.Mutex
	loaded bool
	impl   format.Format
	meta   metadata
}

type metadata struct {
	title     string
	authors   []string
	language  string
	subjects  []string
	published time.Time
}

// New binds a book to a stored file. The descriptor decides which
// format implementation reads the file; source records where the bytes
// came from and may be the zero Locator for books found on disk.
func New(path string, desc format.Descriptor, source locator.Locator, contentHash string) *Book {
	return &Book{
		path:   path,
		source: source,
		desc:   desc,
		hash:   contentHash,
	}
}

// Hash computes the SHA-256 content hash of raw book bytes, hex encoded.
func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Path returns the absolute or collection-relative file path.
func (b *Book) Path() string { return b.path }

// Filename returns the base name of the stored file.
func (b *Book) Filename() string { return filepath.Base(b.path) }

// Source returns the locator the book was fetched from.
func (b *Book) Source() locator.Locator { return b.source }

// Suffix returns the format suffix, e.g. "pdf".
func (b *Book) Suffix() string { return b.desc.Suffix }

// MIMEType returns the canonical MIME type of the format.
func (b *Book) MIMEType() string { return b.desc.MIMEType }

// ContentHash returns the hex SHA-256 of the file content. This is the
// book's identity within a collection.
func (b *Book) ContentHash() string { return b.hash }

// load reads all metadata fields once, under the lock. A partial read
// is not cached: either every field is populated or the error is
// returned and the next accessor retries.
func (b *Book) load() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.loaded {
		return nil
	}
	if b.impl == nil {
		b.impl = b.desc.New(b.path)
	}

	var m metadata
	var err error
	if m.title, err = b.impl.Title(); err != nil {
		return fmt.Errorf("failed to read book metadata: %w", err)
	}
	if m.authors, err = b.impl.Authors(); err != nil {
		return fmt.Errorf("failed to read book metadata: %w", err)
	}
	if m.language, err = b.impl.Language(); err != nil {
		return fmt.Errorf("failed to read book metadata: %w", err)
	}
	if m.subjects, err = b.impl.Subjects(); err != nil {
		return fmt.Errorf("failed to read book metadata: %w", err)
	}
	if m.published, err = b.impl.PublicationDate(); err != nil {
		return fmt.Errorf("failed to read book metadata: %w", err)
	}
	m.language = canonicalLanguage(m.language)

	b.meta = m
	b.loaded = true
	return nil
}

// Title returns the book title.
func (b *Book) Title() (string, error) {
	if err := b.load(); err != nil {
		return "", err
	}
	return b.meta.title, nil
}

// Authors returns the ordered author list.
func (b *Book) Authors() ([]string, error) {
	if err := b.load(); err != nil {
		return nil, err
	}
	return b.meta.authors, nil
}

// AuthorLine returns the authors joined with ",", the single-cell form
// used by reports.
func (b *Book) AuthorLine() (string, error) {
	authors, err := b.Authors()
	if err != nil {
		return "", err
	}
	return strings.Join(authors, ","), nil
}

// Language returns the canonicalized language tag, or "" when the file
// declares none.
func (b *Book) Language() (string, error) {
	if err := b.load(); err != nil {
		return "", err
	}
	return b.meta.language, nil
}

// Subjects returns the ordered subject list.
func (b *Book) Subjects() ([]string, error) {
	if err := b.load(); err != nil {
		return nil, err
	}
	return b.meta.subjects, nil
}

// SubjectLine returns the subjects joined with ",".
func (b *Book) SubjectLine() (string, error) {
	subjects, err := b.Subjects()
	if err != nil {
		return "", err
	}
	return strings.Join(subjects, ","), nil
}

// PublicationDate returns the publication date, zero when unknown.
func (b *Book) PublicationDate() (time.Time, error) {
	if err := b.load(); err != nil {
		return time.Time{}, err
	}
	return b.meta.published, nil
}

// PublicationDateString returns the publication date in DateLayout, or
// "" when the date is unknown.
func (b *Book) PublicationDateString() (string, error) {
	return b.FormatPublicationDate(DateLayout)
}

// FormatPublicationDate returns the publication date rendered with the
// given time layout, or "" when the date is unknown. An empty layout
// falls back to DateLayout.
func (b *Book) FormatPublicationDate(layout string) (string, error) {
	t, err := b.PublicationDate()
	if err != nil {
		return "", err
	}
	if t.IsZero() {
		return "", nil
	}
	if layout == "" {
		layout = DateLayout
	}
	return t.Format(layout), nil
}

// WriteFromMarkdown renders a markdown document into the book file and
// invalidates the cached metadata.
func (b *Book) WriteFromMarkdown(markdown string) error {
	b.mu.Lock()
	if b.impl == nil {
		b.impl = b.desc.New(b.path)
	}
	impl := b.impl
	b.mu.Unlock()

	if err := impl.WriteFromMarkdown(markdown); err != nil {
		return err
	}

	b.mu.Lock()
	b.loaded = false
	b.meta = metadata{}
	b.mu.Unlock()
	return nil
}

// canonicalLanguage normalizes a language tag ("FR", "fr-fr", "french"
// is not accepted) to its canonical BCP 47 form. Unparsable tags pass
// through trimmed so files with sloppy metadata stay readable.
func canonicalLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	return t.String()
}
