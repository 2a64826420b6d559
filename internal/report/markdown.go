package report

import (
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"

	"github.com/nao1215/biblioscan/internal/book"
	"github.com/nao1215/biblioscan/internal/model"
)

// summaryDurationUnit is the rounding applied to displayed durations.
const summaryDurationUnit = 100 * time.Millisecond

// MarkdownWriter outputs reports in Markdown format.
//
// Design decision: We use the nao1215/markdown library for fluent
// markdown generation which provides:
//  1. Type-safe markdown generation
//  2. Support for tables, lists, and code blocks
//  3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given
// writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteBooks outputs the catalog: one table row per book, sorted the
// way the collection hands them over (by filename).
func (w *MarkdownWriter) WriteBooks(books []*book.Book) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Book Report")
	md.PlainText("")
	md.PlainTextf("%d book(s) in the collection.", len(books))
	md.PlainText("")

	rows := make([][]string, 0, len(books))
	for _, b := range books {
		row := newBookRow(b)
		rows = append(rows, []string{
			row.title,
			strings.Join(row.authors, ","),
			row.language,
			row.subjects,
			row.date,
			"`" + row.filename + "`",
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Title", "Authors", "Language", "Subjects", "Published", "File"},
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}

// WriteAuthors outputs one section per author with the titles they
// appear on. Books without any author are grouped under "(unknown)".
func (w *MarkdownWriter) WriteAuthors(books []*book.Book) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Author Report")
	md.PlainText("")

	byAuthor := groupByAuthor(books)
	authors := make([]string, 0, len(byAuthor))
	for a := range byAuthor {
		authors = append(authors, a)
	}
	sort.Strings(authors)

	md.PlainTextf("%d author(s) across %d book(s).", len(authors), len(books))
	md.PlainText("")

	for _, a := range authors {
		md.H2(a)
		md.BulletList(byAuthor[a]...)
		md.PlainText("")
	}

	return len(md.String()), md.Build()
}

// WriteSession outputs one crawl session summary with its diagnostics.
func (w *MarkdownWriter) WriteSession(summary *model.CrawlSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed", "`" + summary.Seed + "`"},
			{"Started", summary.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", summary.Duration().Round(summaryDurationUnit).String()},
			{"Pages visited", strconv.Itoa(summary.PagesVisited)},
			{"Books stored", strconv.Itoa(summary.BooksStored)},
			{"Duplicates skipped", strconv.Itoa(summary.BooksDuplicate)},
			{"Status", sessionStatus(summary)},
		},
	})
	md.PlainText("")

	if len(summary.Diagnostics) > 0 {
		md.H2("Skipped Resources")
		rows := make([][]string, 0, len(summary.Diagnostics))
		for _, d := range summary.Diagnostics {
			rows = append(rows, []string{string(d.Stage), "`" + d.Locator + "`", d.Message})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Stage", "Locator", "Reason"},
			Rows:   rows,
		})
	}

	return len(md.String()), md.Build()
}

// groupByAuthor builds author -> titles, using "(unknown)" for books
// without author metadata.
func groupByAuthor(books []*book.Book) map[string][]string {
	byAuthor := make(map[string][]string)
	for _, b := range books {
		row := newBookRow(b)
		authors := row.authors
		if len(authors) == 0 {
			authors = []string{"(unknown)"}
		}
		for _, a := range authors {
			byAuthor[a] = append(byAuthor[a], row.title)
		}
	}
	for _, titles := range byAuthor {
		sort.Strings(titles)
	}
	return byAuthor
}

func sessionStatus(summary *model.CrawlSummary) string {
	if summary.Truncated {
		return "stopped at book limit"
	}
	return "complete"
}
