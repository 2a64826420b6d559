package report

import (
	"io"

	"github.com/nao1215/biblioscan/internal/book"
	"github.com/nao1215/biblioscan/internal/model"
)

// Writer defines the interface for report output.
//
// Design decision: We use an interface so terminal, file, and network
// destinations share one API, and MultiWriter can fan out to several at
// once.
type Writer interface {
	// WriteBooks outputs the per-book catalog report.
	// Returns the number of bytes written and any error encountered.
	WriteBooks(books []*book.Book) (int, error)

	// WriteAuthors outputs the per-author report, grouping book titles
	// under each author.
	WriteAuthors(books []*book.Book) (int, error)

	// WriteSession outputs one crawl session summary.
	WriteSession(summary *model.CrawlSummary) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteBooks outputs the catalog report to all configured Writers.
// Stops on the first error encountered.
func (m *MultiWriter) WriteBooks(books []*book.Book) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteBooks(books)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteAuthors outputs the author report to all configured Writers.
func (m *MultiWriter) WriteAuthors(books []*book.Book) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteAuthors(books)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteSession outputs the session summary to all configured Writers.
func (m *MultiWriter) WriteSession(summary *model.CrawlSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteSession(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// bookRow is one book flattened into display strings. Metadata read
// failures degrade to the filename so one corrupt file never sinks the
// whole report.
type bookRow struct {
	title    string
	authors  []string
	language string
	subjects string
	date     string
	filename string
}

func newBookRow(b *book.Book) bookRow {
	row := bookRow{filename: b.Filename()}

	title, err := b.Title()
	if err != nil {
		row.title = b.Filename()
		return row
	}
	row.title = title
	row.authors, _ = b.Authors()
	row.language, _ = b.Language()
	row.subjects, _ = b.SubjectLine()
	row.date, _ = b.PublicationDateString()
	return row
}
