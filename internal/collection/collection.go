package collection

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/nao1215/biblioscan/internal/book"
	"github.com/nao1215/biblioscan/internal/format"
	"github.com/nao1215/biblioscan/internal/locator"
)

// Collection is a directory of book files indexed by content hash.
// All methods are safe for concurrent use.
type Collection struct {
	dir    string
	logger *slog.Logger

	mu     sync.Mutex
	byHash map[string]*book.Book
	byName map[string]*book.Book
}

// Option configures a Collection.
type Option func(*Collection)

// WithCollectionLogger sets a custom logger.
func WithCollectionLogger(logger *slog.Logger) Option {
	return func(c *Collection) {
		c.logger = logger
	}
}

// Open binds a Collection to dir, creating the directory if needed and
// indexing every recognized book file already in it. Files with
// unrecognized suffixes are left alone.
func Open(dir string, opts ...Option) (*Collection, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create collection directory: %w", err)
	}

	c := &Collection{
		dir:    dir,
		byHash: make(map[string]*book.Book),
		byName: make(map[string]*book.Book),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	if err := c.scan(); err != nil {
		return nil, err
	}
	return c, nil
}

// scan walks the directory and indexes recognized files.
func (c *Collection) scan() error {
	return filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		suffix := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		desc, rerr := format.Resolve(suffix)
		if rerr != nil {
			return nil
		}

		content, rerr := os.ReadFile(path)
		if rerr != nil {
			c.logger.Warn("skipping unreadable file", "path", path, "error", rerr)
			return nil
		}
		hash := book.Hash(content)

		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.byHash[hash]; ok {
			c.logger.Debug("duplicate content on disk", "path", path)
			return nil
		}
		b := book.New(path, desc, locator.Locator{}, hash)
		c.byHash[hash] = b
		c.byName[filepath.Base(path)] = b
		return nil
	})
}

// Dir returns the collection directory.
func (c *Collection) Dir() string { return c.dir }

// Len returns the number of books in the collection.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byHash)
}

// Books returns the books sorted by filename.
func (c *Collection) Books() []*book.Book {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*book.Book, 0, len(c.byHash))
	for _, b := range c.byHash {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Filename() < out[j].Filename()
	})
	return out
}

// Lookup returns the book with the given content hash, or nil.
func (c *Collection) Lookup(contentHash string) *book.Book {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byHash[contentHash]
}

// Add stores book content fetched from source. hint is the
// server-declared content type and may be empty. When the same content
// is already stored, the existing book is returned with added=false.
//
// Add implements the crawler's Sink interface.
func (c *Collection) Add(content []byte, source locator.Locator, hint string) (*book.Book, bool, error) {
	desc, err := c.resolve(content, source, hint)
	if err != nil {
		return nil, false, err
	}

	hash := book.Hash(content)

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.byHash[hash]; ok {
		return existing, false, nil
	}

	name := c.uniqueFilename(source, desc)
	path := filepath.Join(c.dir, name)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return nil, false, fmt.Errorf("failed to store book: %w", err)
	}

	b := book.New(path, desc, source, hash)
	c.byHash[hash] = b
	c.byName[name] = b
	c.logger.Info("book added", "file", name, "source", source.String())
	return b, true, nil
}

// resolve picks a format descriptor for incoming content: the source's
// file suffix first, then the declared content type, then content
// sniffing as the last resort.
func (c *Collection) resolve(content []byte, source locator.Locator, hint string) (format.Descriptor, error) {
	if desc, err := format.Resolve(source.Suffix()); err == nil {
		return desc, nil
	}
	if hint != "" {
		if desc, err := format.Resolve(hint); err == nil {
			return desc, nil
		}
	}
	return format.Sniff(content)
}

// uniqueFilename picks a stored name for a book from source. Taken
// names get a numeric suffix: "rome.pdf", "rome_1.pdf", "rome_2.pdf".
// Caller must hold c.mu.
func (c *Collection) uniqueFilename(source locator.Locator, desc format.Descriptor) string {
	base := source.Filename()
	if base == "" || base == "." || base == "/" {
		base = "book." + desc.Suffix
	}
	if !strings.HasSuffix(strings.ToLower(base), "."+desc.Suffix) {
		base = strings.TrimSuffix(base, filepath.Ext(base)) + "." + desc.Suffix
	}

	if !c.taken(base) {
		return base
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	ext := filepath.Ext(base)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if !c.taken(candidate) {
			return candidate
		}
	}
}

// taken reports whether a filename is claimed in the index or on disk.
func (c *Collection) taken(name string) bool {
	if _, ok := c.byName[name]; ok {
		return true
	}
	_, err := os.Stat(filepath.Join(c.dir, name))
	return err == nil
}

// Remove deletes a book by filename, from disk first and then from the
// index.
func (c *Collection) Remove(filename string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.byName[filename]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, filename)
	}
	if err := os.Remove(b.Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove book file: %w", err)
	}
	delete(c.byName, filename)
	delete(c.byHash, b.ContentHash())
	c.logger.Info("book removed", "file", filename)
	return nil
}
