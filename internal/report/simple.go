package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/nao1215/biblioscan/internal/book"
	"github.com/nao1215/biblioscan/internal/model"
)

// SimpleWriter outputs compact human-readable text for terminal
// display. No markup, short lines, one fact per line.
type SimpleWriter struct {
	baseWriter
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given
// writer.
func NewSimpleWriter(output io.Writer) *SimpleWriter {
	return &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteBooks outputs one line per book.
func (w *SimpleWriter) WriteBooks(books []*book.Book) (int, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%d book(s) in the collection\n", len(books))
	for _, b := range books {
		row := newBookRow(b)
		fmt.Fprintf(&sb, "  %s", row.title)
		if len(row.authors) > 0 {
			fmt.Fprintf(&sb, " by %s", strings.Join(row.authors, ","))
		}
		if row.date != "" {
			fmt.Fprintf(&sb, " (%s)", row.date)
		}
		fmt.Fprintf(&sb, " [%s]\n", row.filename)
	}

	return io.WriteString(w.output, sb.String())
}

// WriteAuthors outputs one line per author with a title count.
func (w *SimpleWriter) WriteAuthors(books []*book.Book) (int, error) {
	var sb strings.Builder

	byAuthor := groupByAuthor(books)
	fmt.Fprintf(&sb, "%d author(s)\n", len(byAuthor))
	for _, a := range sortedKeys(byAuthor) {
		fmt.Fprintf(&sb, "  %s: %d title(s)\n", a, len(byAuthor[a]))
		for _, title := range byAuthor[a] {
			fmt.Fprintf(&sb, "    - %s\n", title)
		}
	}

	return io.WriteString(w.output, sb.String())
}

// WriteSession outputs the session counters and any skipped resources.
func (w *SimpleWriter) WriteSession(summary *model.CrawlSummary) (int, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "crawl of %s: %s\n", summary.Seed, sessionStatus(summary))
	fmt.Fprintf(&sb, "  pages visited:      %d\n", summary.PagesVisited)
	fmt.Fprintf(&sb, "  books stored:       %d\n", summary.BooksStored)
	fmt.Fprintf(&sb, "  duplicates skipped: %d\n", summary.BooksDuplicate)
	fmt.Fprintf(&sb, "  duration:           %s\n", summary.Duration().Round(summaryDurationUnit))
	if len(summary.Diagnostics) > 0 {
		fmt.Fprintf(&sb, "  skipped resources:  %d\n", len(summary.Diagnostics))
		for _, d := range summary.Diagnostics {
			fmt.Fprintf(&sb, "    [%s] %s: %s\n", d.Stage, d.Locator, d.Message)
		}
	}

	return io.WriteString(w.output, sb.String())
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
