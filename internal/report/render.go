package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/biblioscan/internal/book"
	"github.com/nao1215/biblioscan/internal/format"
	"github.com/nao1215/biblioscan/internal/model"
)

// Kind selects which report RenderFile produces.
type Kind string

// Report kinds.
const (
	// KindBooks is the per-book catalog report.
	KindBooks Kind = "books"

	// KindAuthors is the per-author report.
	KindAuthors Kind = "authors"
)

// RenderFile writes a report to path. The output format follows the
// path's suffix: ".md" writes markdown directly, while a registered
// book suffix (".pdf", ".epub") renders the markdown through the
// matching format plugin, so the catalog itself becomes a book. A
// failed render leaves no partial file behind.
func RenderFile(path string, kind Kind, books []*book.Book) error {
	md, err := buildMarkdown(kind, books, nil)
	if err != nil {
		return err
	}
	return renderMarkdown(path, md)
}

// RenderSessionFile writes a crawl session report to path, with the
// same suffix handling as RenderFile.
func RenderSessionFile(path string, summary *model.CrawlSummary) error {
	md, err := buildMarkdown("", nil, summary)
	if err != nil {
		return err
	}
	return renderMarkdown(path, md)
}

// buildMarkdown renders the selected report into a markdown string with
// a front matter block, which the format plugins use for document
// metadata.
func buildMarkdown(kind Kind, books []*book.Book, summary *model.CrawlSummary) (string, error) {
	var body bytes.Buffer
	w := NewMarkdownWriter(&body)

	var title string
	var err error
	switch {
	case summary != nil:
		title = "Crawl Report"
		_, err = w.WriteSession(summary)
	case kind == KindBooks:
		title = "Book Report"
		_, err = w.WriteBooks(books)
	case kind == KindAuthors:
		title = "Author Report"
		_, err = w.WriteAuthors(books)
	default:
		return "", fmt.Errorf("unknown report kind %q", kind)
	}
	if err != nil {
		return "", err
	}

	var md strings.Builder
	md.WriteString("---\n")
	fmt.Fprintf(&md, "title: %s\n", title)
	md.WriteString("author: biblioscan\n")
	fmt.Fprintf(&md, "date: %s\n", time.Now().Format("2006-01-02"))
	md.WriteString("---\n")
	md.WriteString(body.String())
	return md.String(), nil
}

// renderMarkdown writes markdown to path, converting through a format
// plugin when the suffix asks for a book format.
func renderMarkdown(path, md string) error {
	suffix := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if suffix == "" || suffix == "md" || suffix == "markdown" {
		return os.WriteFile(path, []byte(md), 0o600)
	}

	desc, err := format.Resolve(suffix)
	if err != nil {
		return fmt.Errorf("cannot render report as %q: %w", suffix, err)
	}
	if err := desc.New(path).WriteFromMarkdown(md); err != nil {
		// The plugins clean up their own partial output, but a zero
		// byte file from an earlier attempt may remain.
		os.Remove(path)
		return err
	}
	return nil
}
