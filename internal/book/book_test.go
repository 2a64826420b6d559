package book

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/biblioscan/internal/format"
	"github.com/nao1215/biblioscan/internal/locator"
)

// writeTestEPUB creates a small EPUB on disk and returns its path and
// descriptor.
func writeTestEPUB(t *testing.T, markdown string) (string, format.Descriptor) {
	t.Helper()

	desc, err := format.Resolve("epub")
	if err != nil {
		t.Fatalf("failed to resolve epub format: %v", err)
	}
	path := filepath.Join(t.TempDir(), "book.epub")
	if err := desc.New(path).WriteFromMarkdown(markdown); err != nil {
		t.Fatalf("failed to write test EPUB: %v", err)
	}
	return path, desc
}

// TestBookMetadata tests lazy metadata loading and the report-oriented
// accessors.
func TestBookMetadata(t *testing.T) {
	t.Parallel()

	path, desc := writeTestEPUB(t, `---
title: Histoire de Rome
authors: [Jane Doe, Richard Roe]
language: FR
subjects: [histoire, antiquité]
date: 2021-03-12
---
corps du texte
`)

	src, err := locator.Parse("http://books.example.com/rome.epub")
	if err != nil {
		t.Fatalf("failed to parse locator: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	b := New(path, desc, src, Hash(content))

	title, err := b.Title()
	if err != nil {
		t.Fatalf("failed to read title: %v", err)
	}
	if title != "Histoire de Rome" {
		t.Errorf("unexpected title %q", title)
	}

	authorLine, err := b.AuthorLine()
	if err != nil {
		t.Fatalf("failed to read author line: %v", err)
	}
	if authorLine != "Jane Doe,Richard Roe" {
		t.Errorf("unexpected author line %q", authorLine)
	}

	subjectLine, err := b.SubjectLine()
	if err != nil {
		t.Fatalf("failed to read subject line: %v", err)
	}
	if subjectLine != "histoire,antiquité" {
		t.Errorf("unexpected subject line %q", subjectLine)
	}

	// "FR" canonicalizes to "fr".
	lang, err := b.Language()
	if err != nil {
		t.Fatalf("failed to read language: %v", err)
	}
	if lang != "fr" {
		t.Errorf("unexpected language %q", lang)
	}

	dateStr, err := b.PublicationDateString()
	if err != nil {
		t.Fatalf("failed to read publication date: %v", err)
	}
	if dateStr != "12/03/2021" {
		t.Errorf("unexpected date string %q", dateStr)
	}

	if b.Suffix() != "epub" {
		t.Errorf("unexpected suffix %q", b.Suffix())
	}
	if b.Filename() != "book.epub" {
		t.Errorf("unexpected filename %q", b.Filename())
	}
	if b.Source().String() != src.String() {
		t.Errorf("unexpected source %q", b.Source().String())
	}
}

// TestBookWriteInvalidatesCache tests that rewriting the file drops the
// cached metadata.
func TestBookWriteInvalidatesCache(t *testing.T) {
	t.Parallel()

	path, desc := writeTestEPUB(t, "---\ntitle: Before\n---\nbody\n")
	b := New(path, desc, locator.Locator{}, "")

	title, err := b.Title()
	if err != nil {
		t.Fatalf("failed to read title: %v", err)
	}
	if title != "Before" {
		t.Fatalf("unexpected title %q", title)
	}

	if err := b.WriteFromMarkdown("---\ntitle: After\n---\nbody\n"); err != nil {
		t.Fatalf("failed to rewrite book: %v", err)
	}

	title, err = b.Title()
	if err != nil {
		t.Fatalf("failed to reread title: %v", err)
	}
	if title != "After" {
		t.Errorf("expected rewritten title, got %q", title)
	}
}

// TestHash tests content hash stability.
func TestHash(t *testing.T) {
	t.Parallel()

	a := Hash([]byte("same bytes"))
	if a != Hash([]byte("same bytes")) {
		t.Error("expected identical content to hash identically")
	}
	if a == Hash([]byte("other bytes")) {
		t.Error("expected different content to hash differently")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(a))
	}
}

// TestFormatPublicationDate tests custom date layouts with the
// day/month/year default.
func TestFormatPublicationDate(t *testing.T) {
	t.Parallel()

	path, desc := writeTestEPUB(t, "---\ntitle: Dated\ndate: 2021-03-12\n---\nbody\n")
	b := New(path, desc, locator.Locator{}, "")

	tests := []struct {
		layout string
		want   string
	}{
		{"", "12/03/2021"},
		{DateLayout, "12/03/2021"},
		{"2006-01-02", "2021-03-12"},
		{"January 2006", "March 2021"},
	}
	for _, tt := range tests {
		got, err := b.FormatPublicationDate(tt.layout)
		if err != nil {
			t.Fatalf("failed to format date with %q: %v", tt.layout, err)
		}
		if got != tt.want {
			t.Errorf("FormatPublicationDate(%q) = %q, want %q", tt.layout, got, tt.want)
		}
	}
}

// TestPublicationDateStringZero tests the empty rendering of an unknown
// date.
func TestPublicationDateStringZero(t *testing.T) {
	t.Parallel()

	path, desc := writeTestEPUB(t, "---\ntitle: No Date\n---\nbody\n")
	b := New(path, desc, locator.Locator{}, "")

	dateStr, err := b.PublicationDateString()
	if err != nil {
		t.Fatalf("failed to read publication date: %v", err)
	}
	if dateStr != "" {
		t.Errorf("expected empty date string, got %q", dateStr)
	}

	if _, err := time.Parse(DateLayout, "31/12/2024"); err != nil {
		t.Errorf("DateLayout should parse day/month/year: %v", err)
	}
}
