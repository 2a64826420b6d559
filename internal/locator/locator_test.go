package locator

import (
	"errors"
	"testing"
)

// TestParse tests locator parsing and normalization.
func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("equivalent URLs share one dedup key", func(t *testing.T) {
		t.Parallel()

		variants := []string{
			"HTTP://Example.COM/books/",
			"http://example.com/books",
			"http://example.com/books#section-2",
			"http://example.com/books/#top",
		}

		first, err := Parse(variants[0])
		if err != nil {
			t.Fatalf("failed to parse %q: %v", variants[0], err)
		}
		for _, v := range variants[1:] {
			l, err := Parse(v)
			if err != nil {
				t.Fatalf("failed to parse %q: %v", v, err)
			}
			if l.Key() != first.Key() {
				t.Errorf("expected %q and %q to share a key, got %q vs %q",
					variants[0], v, first.Key(), l.Key())
			}
		}
	})

	t.Run("keeps the trailing slash in the fetchable form", func(t *testing.T) {
		t.Parallel()

		l, err := Parse("http://example.com/books/")
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}
		if l.String() != "http://example.com/books/" {
			t.Errorf("expected trailing slash preserved, got %q", l.String())
		}
		if l.URL().Path != "/books/" {
			t.Errorf("expected URL path /books/, got %q", l.URL().Path)
		}
		if l.Key() != "http://example.com/books" {
			t.Errorf("expected slash-stripped key, got %q", l.Key())
		}
	})

	t.Run("empty path becomes root", func(t *testing.T) {
		t.Parallel()

		l, err := Parse("http://example.com")
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}
		if l.String() != "http://example.com/" {
			t.Errorf("expected root path, got %q", l.String())
		}
	})

	t.Run("local path is cleaned", func(t *testing.T) {
		t.Parallel()

		l, err := Parse("books/../books/rome.pdf")
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}
		if l.IsRemote() {
			t.Error("expected local locator")
		}
		if l.Path() != "books/rome.pdf" {
			t.Errorf("expected cleaned path, got %q", l.Path())
		}
	})

	t.Run("rejects empty and non-http schemes", func(t *testing.T) {
		t.Parallel()

		for _, s := range []string{"", "   ", "ftp://example.com/book.pdf", "mailto:someone@example.com"} {
			if _, err := Parse(s); !errors.Is(err, ErrInvalidLocator) {
				t.Errorf("expected ErrInvalidLocator for %q, got %v", s, err)
			}
		}
	})
}

// TestSuffix tests file extension extraction.
func TestSuffix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"http://example.com/books/rome.PDF", "pdf"},
		{"http://example.com/books/rome.epub?download=1", "epub"},
		{"http://example.com/books/", ""},
		{"library/rome.epub", "epub"},
		{"library/README", ""},
	}

	for _, tt := range tests {
		l, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("failed to parse %q: %v", tt.in, err)
		}
		if got := l.Suffix(); got != tt.want {
			t.Errorf("Suffix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestNormalize tests raw string normalization used by the visited set.
func TestNormalize(t *testing.T) {
	t.Parallel()

	if Normalize("HTTP://Example.com/a/#frag") != Normalize("http://example.com/a") {
		t.Error("expected fragment and case differences to normalize away")
	}

	// Unparsable input passes through unchanged.
	junk := "http://%zz"
	if Normalize(junk) != junk {
		t.Errorf("expected junk input to pass through, got %q", Normalize(junk))
	}
}
