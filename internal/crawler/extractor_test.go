package crawler

import (
	"testing"

	"github.com/nao1215/biblioscan/internal/locator"
)

// TestExtract tests link classification on a representative page.
func TestExtract(t *testing.T) {
	t.Parallel()

	base, err := locator.Parse("http://library.example.com/catalog/index.html")
	if err != nil {
		t.Fatalf("failed to parse base: %v", err)
	}

	body := []byte(`<html><head><title>Catalog</title></head><body>
		<a href="rome.pdf">Rome (relative)</a>
		<a href="/epubs/gaul.epub">Gaul (absolute path)</a>
		<a href="http://mirror.example.org/egypt.PDF">Egypt (other host)</a>
		<a href="/about">About</a>
		<a href="rome.pdf">Rome again (duplicate)</a>
		<a href="#top">Top</a>
		<a href="javascript:void(0)">JS</a>
		<a href="mailto:x@example.com">Mail</a>
		<a href="ftp://example.com/old.pdf">FTP</a>
	</body></html>`)

	result := NewExtractor().Extract(base, body)

	if result.Title != "Catalog" {
		t.Errorf("unexpected title %q", result.Title)
	}
	if len(result.BookLinks) != 3 {
		t.Fatalf("expected 3 book links, got %d: %v", len(result.BookLinks), result.BookLinks)
	}
	if result.BookLinks[0].String() != "http://library.example.com/catalog/rome.pdf" {
		t.Errorf("unexpected first book link %q", result.BookLinks[0].String())
	}
	if result.BookLinks[1].String() != "http://library.example.com/epubs/gaul.epub" {
		t.Errorf("unexpected second book link %q", result.BookLinks[1].String())
	}
	// Suffix matching is case-insensitive.
	if result.BookLinks[2].Suffix() != "pdf" {
		t.Errorf("unexpected suffix %q", result.BookLinks[2].Suffix())
	}

	if len(result.PageLinks) != 1 {
		t.Fatalf("expected 1 page link, got %d: %v", len(result.PageLinks), result.PageLinks)
	}
	if result.PageLinks[0].String() != "http://library.example.com/about" {
		t.Errorf("unexpected page link %q", result.PageLinks[0].String())
	}
}

// TestExtractDirectoryBase tests that relative links on a page served
// from a directory URL resolve inside that directory.
func TestExtractDirectoryBase(t *testing.T) {
	t.Parallel()

	base, err := locator.Parse("http://library.example.com/books/")
	if err != nil {
		t.Fatalf("failed to parse base: %v", err)
	}

	result := NewExtractor().Extract(base, []byte(`<html><body>
		<a href="rome.pdf">Rome</a>
		<a href="shelf/">Shelf</a>
	</body></html>`))

	if len(result.BookLinks) != 1 {
		t.Fatalf("expected 1 book link, got %d: %v", len(result.BookLinks), result.BookLinks)
	}
	if result.BookLinks[0].String() != "http://library.example.com/books/rome.pdf" {
		t.Errorf("unexpected book link %q", result.BookLinks[0].String())
	}
	if len(result.PageLinks) != 1 {
		t.Fatalf("expected 1 page link, got %d: %v", len(result.PageLinks), result.PageLinks)
	}
	if result.PageLinks[0].String() != "http://library.example.com/books/shelf/" {
		t.Errorf("unexpected page link %q", result.PageLinks[0].String())
	}
}

// TestExtractMalformedHTML tests that hopeless markup yields an empty
// result instead of an error.
func TestExtractMalformedHTML(t *testing.T) {
	t.Parallel()

	base, err := locator.Parse("http://example.com/")
	if err != nil {
		t.Fatalf("failed to parse base: %v", err)
	}

	result := NewExtractor().Extract(base, []byte("<<<><a href='ok.pdf'>"))
	// x/net/html recovers aggressively; we only require no panic and a
	// usable result.
	if result == nil {
		t.Fatal("expected non-nil result")
	}
}

// TestExtractLocalBase tests relative resolution against a local page.
func TestExtractLocalBase(t *testing.T) {
	t.Parallel()

	base, err := locator.Parse("site/catalog/index.html")
	if err != nil {
		t.Fatalf("failed to parse base: %v", err)
	}

	result := NewExtractor().Extract(base, []byte(`<a href="books/rome.pdf">Rome</a>`))
	if len(result.BookLinks) != 1 {
		t.Fatalf("expected 1 book link, got %d", len(result.BookLinks))
	}
	if result.BookLinks[0].Path() != "site/catalog/books/rome.pdf" {
		t.Errorf("unexpected local path %q", result.BookLinks[0].Path())
	}
}
