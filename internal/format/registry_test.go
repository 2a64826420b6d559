package format

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

// TestResolve tests descriptor lookup by suffix and MIME type.
func TestResolve(t *testing.T) {
	t.Parallel()

	t.Run("resolves built-in formats by suffix", func(t *testing.T) {
		t.Parallel()

		for _, in := range []string{"pdf", ".pdf", "PDF", "epub", ".EPUB"} {
			if _, err := Resolve(in); err != nil {
				t.Errorf("failed to resolve %q: %v", in, err)
			}
		}
	})

	t.Run("resolves built-in formats by MIME type", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			in   string
			want string
		}{
			{"application/pdf", "pdf"},
			{"application/pdf; charset=binary", "pdf"},
			{"Application/EPUB+Zip", "epub"},
		}
		for _, tt := range tests {
			d, err := Resolve(tt.in)
			if err != nil {
				t.Fatalf("failed to resolve %q: %v", tt.in, err)
			}
			if d.Suffix != tt.want {
				t.Errorf("Resolve(%q).Suffix = %q, want %q", tt.in, d.Suffix, tt.want)
			}
		}
	})

	t.Run("unknown input fails with ErrUnknownFormat", func(t *testing.T) {
		t.Parallel()

		for _, in := range []string{"mobi", "text/html", ""} {
			if _, err := Resolve(in); !errors.Is(err, ErrUnknownFormat) {
				t.Errorf("expected ErrUnknownFormat for %q, got %v", in, err)
			}
		}
	})
}

// TestRegister tests duplicate detection.
func TestRegister(t *testing.T) {
	t.Parallel()

	if err := Register("pdf", "application/x-duplicate", NewPDF); !errors.Is(err, ErrDuplicateFormat) {
		t.Errorf("expected ErrDuplicateFormat for claimed suffix, got %v", err)
	}
	if err := Register("xduplicate", "application/pdf", NewPDF); !errors.Is(err, ErrDuplicateFormat) {
		t.Errorf("expected ErrDuplicateFormat for claimed MIME type, got %v", err)
	}
	if err := Register("", "", nil); !errors.Is(err, ErrDuplicateFormat) {
		t.Errorf("expected error for empty registration, got %v", err)
	}
}

// TestSniff tests content detection against magic bytes.
func TestSniff(t *testing.T) {
	t.Parallel()

	d, err := Sniff([]byte("%PDF-1.7\n1 0 obj\n"))
	if err != nil {
		t.Fatalf("failed to sniff PDF bytes: %v", err)
	}
	if d.Suffix != "pdf" {
		t.Errorf("expected pdf, got %q", d.Suffix)
	}

	if _, err := Sniff([]byte("<html><body>not a book</body></html>")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat for HTML bytes, got %v", err)
	}
}

// TestSuffixes tests that the built-ins appear sorted.
func TestSuffixes(t *testing.T) {
	t.Parallel()

	got := Suffixes()
	var foundEPUB, foundPDF bool
	for i, s := range got {
		if i > 0 && got[i-1] > s {
			t.Fatalf("suffixes not sorted: %v", got)
		}
		switch s {
		case "epub":
			foundEPUB = true
		case "pdf":
			foundPDF = true
		}
	}
	if !foundEPUB || !foundPDF {
		t.Errorf("expected built-in suffixes in %v", got)
	}
}

// TestParseDocument tests front matter and body extraction.
func TestParseDocument(t *testing.T) {
	t.Parallel()

	t.Run("full front matter", func(t *testing.T) {
		t.Parallel()

		doc := ParseDocument(`---
title: Histoire de Rome
authors:
  - Jane Doe
  - Richard Roe
language: fr
subjects: [histoire, antiquité]
date: 12/03/2021
---
# Chapitre 1

Premier paragraphe.
`)
		if doc.Title != "Histoire de Rome" {
			t.Errorf("unexpected title %q", doc.Title)
		}
		if len(doc.Authors) != 2 || doc.Authors[0] != "Jane Doe" {
			t.Errorf("unexpected authors %v", doc.Authors)
		}
		if doc.Language != "fr" {
			t.Errorf("unexpected language %q", doc.Language)
		}
		if len(doc.Subjects) != 2 {
			t.Errorf("unexpected subjects %v", doc.Subjects)
		}
		want := time.Date(2021, time.March, 12, 0, 0, 0, 0, time.UTC)
		if !doc.Published.Equal(want) {
			t.Errorf("unexpected date %v, want %v", doc.Published, want)
		}
	})

	t.Run("scalar author key", func(t *testing.T) {
		t.Parallel()

		doc := ParseDocument("---\ntitle: T\nauthor: Solo Writer\n---\nbody\n")
		if len(doc.Authors) != 1 || doc.Authors[0] != "Solo Writer" {
			t.Errorf("unexpected authors %v", doc.Authors)
		}
	})

	t.Run("title falls back to first heading", func(t *testing.T) {
		t.Parallel()

		doc := ParseDocument("# From Heading\n\ntext\n")
		if doc.Title != "From Heading" {
			t.Errorf("unexpected title %q", doc.Title)
		}
	})

	t.Run("empty document fails validation", func(t *testing.T) {
		t.Parallel()

		if err := ParseDocument("").Validate(); !errors.Is(err, ErrConversion) {
			t.Errorf("expected ErrConversion, got %v", err)
		}
	})
}

// TestParseDate tests the accepted date layouts.
func TestParseDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2021-03-12", time.Date(2021, 3, 12, 0, 0, 0, 0, time.UTC)},
		{"12/03/2021", time.Date(2021, 3, 12, 0, 0, 0, 0, time.UTC)},
		{"2021", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if err != nil {
			t.Fatalf("failed to parse %q: %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseDate("last tuesday"); err == nil {
		t.Error("expected error for unparsable date")
	}
}

// TestSplitNames tests joined author field splitting.
func TestSplitNames(t *testing.T) {
	t.Parallel()

	got := SplitNames(" Jane Doe ,Richard Roe; ")
	if len(got) != 2 || got[0] != "Jane Doe" || got[1] != "Richard Roe" {
		t.Errorf("unexpected split %v", got)
	}
	if SplitNames("  ") != nil {
		t.Error("expected nil for blank input")
	}
}

// TestEPUBRoundTrip writes an EPUB from markdown and reads its metadata
// back through the same format.
func TestEPUBRoundTrip(t *testing.T) {
	t.Parallel()

	path := t.TempDir() + "/rome.epub"
	e := NewEPUB(path)

	err := e.WriteFromMarkdown(`---
title: Histoire de Rome
authors: [Jane Doe, Richard Roe]
language: fr
subjects: [histoire]
date: 2021-03-12
---
# Chapitre 1

Premier paragraphe avec des caractères spéciaux: < & >.
`)
	if err != nil {
		t.Fatalf("failed to write EPUB: %v", err)
	}

	// A fresh instance forces a real read from disk.
	e2 := NewEPUB(path)
	title, err := e2.Title()
	if err != nil {
		t.Fatalf("failed to read title: %v", err)
	}
	if title != "Histoire de Rome" {
		t.Errorf("unexpected title %q", title)
	}

	authors, err := e2.Authors()
	if err != nil {
		t.Fatalf("failed to read authors: %v", err)
	}
	if len(authors) != 2 || authors[0] != "Jane Doe" {
		t.Errorf("unexpected authors %v", authors)
	}

	lang, err := e2.Language()
	if err != nil {
		t.Fatalf("failed to read language: %v", err)
	}
	if lang != "fr" {
		t.Errorf("unexpected language %q", lang)
	}

	subjects, err := e2.Subjects()
	if err != nil {
		t.Fatalf("failed to read subjects: %v", err)
	}
	if len(subjects) != 1 || subjects[0] != "histoire" {
		t.Errorf("unexpected subjects %v", subjects)
	}

	published, err := e2.PublicationDate()
	if err != nil {
		t.Fatalf("failed to read publication date: %v", err)
	}
	if want := time.Date(2021, 3, 12, 0, 0, 0, 0, time.UTC); !published.Equal(want) {
		t.Errorf("unexpected publication date %v, want %v", published, want)
	}

	// The archive must sniff as an EPUB.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	d, err := Sniff(data)
	if err != nil {
		t.Fatalf("failed to sniff written EPUB: %v", err)
	}
	if d.Suffix != "epub" {
		t.Errorf("expected epub, got %q", d.Suffix)
	}
}

// TestEPUBMissingMetadata tests fallback behavior for sparse packages.
func TestEPUBMissingMetadata(t *testing.T) {
	t.Parallel()

	path := t.TempDir() + "/untitled book.epub"
	if err := NewEPUB(path).WriteFromMarkdown("just a paragraph\n"); err != nil {
		t.Fatalf("failed to write EPUB: %v", err)
	}

	e := NewEPUB(path)
	title, err := e.Title()
	if err != nil {
		t.Fatalf("failed to read title: %v", err)
	}
	if title != "untitled book" {
		t.Errorf("expected file name stem fallback, got %q", title)
	}

	published, err := e.PublicationDate()
	if err != nil {
		t.Fatalf("failed to read publication date: %v", err)
	}
	if !published.IsZero() {
		t.Errorf("expected zero publication date, got %v", published)
	}
}

// TestParsePDFDate tests PDF date string parsing.
func TestParsePDFDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Time
	}{
		{"D:20240131120000+01'00'", time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)},
		{"D:20240131", time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)},
		{"D:2024", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"garbage", time.Time{}},
		{"", time.Time{}},
	}
	for _, tt := range tests {
		if got := parsePDFDate(tt.in); !got.Equal(tt.want) {
			t.Errorf("parsePDFDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestBuildPDFSpec tests page layout of the generated description.
func TestBuildPDFSpec(t *testing.T) {
	t.Parallel()

	doc := ParseDocument("---\ntitle: T\nauthors: [A]\n---\npara one\n\npara two\n")
	spec := buildPDFSpec(doc)
	if len(spec.Pages) != 1 {
		t.Fatalf("expected one page, got %d", len(spec.Pages))
	}
	text := spec.Pages["1"].Content.Text
	if len(text) != 1 {
		t.Fatalf("expected one text block, got %d", len(text))
	}
	for _, want := range []string{"T", "A", "para one", "para two"} {
		if !strings.Contains(text[0].Value, want) {
			t.Errorf("expected page text to contain %q", want)
		}
	}
}
