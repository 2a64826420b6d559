package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/biblioscan/internal/format"
)

// seedCollection writes one EPUB with known metadata into a fresh
// collection directory and returns the directory.
func seedCollection(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	desc, err := format.Resolve("epub")
	if err != nil {
		t.Fatalf("failed to resolve epub format: %v", err)
	}

	doc := `---
title: Histoire de Rome
authors:
  - Jane Doe
language: fr
date: 12/01/2021
---

# Histoire de Rome

Une histoire.`
	if err := desc.New(filepath.Join(dir, "rome.epub")).WriteFromMarkdown(doc); err != nil {
		t.Fatalf("failed to write test book: %v", err)
	}
	return dir
}

// TestNewReportCmd tests the report command creation.
func TestNewReportCmd(t *testing.T) {
	t.Parallel()

	cmd := NewReportCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "report" {
			t.Errorf("expected use 'report', got %q", cmd.Use)
		}
	})

	t.Run("has report flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"kind", "markdown", "output", "collection"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})

	t.Run("kind defaults to books", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("kind")
		if flag.DefValue != "books" {
			t.Errorf("expected default 'books', got %q", flag.DefValue)
		}
	})
}

// TestRunReportCmd_UnknownKind tests kind validation.
func TestRunReportCmd_UnknownKind(t *testing.T) {
	t.Parallel()

	cmd := NewReportCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--collection", t.TempDir(), "--kind", "publishers"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if !strings.Contains(err.Error(), "unknown report kind") {
		t.Errorf("expected kind error, got %v", err)
	}
}

// TestRunReportCmd_BooksToStdout tests the default plain-text listing.
func TestRunReportCmd_BooksToStdout(t *testing.T) {
	dir := seedCollection(t)

	var out bytes.Buffer
	cmd := NewReportCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--collection", dir})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(out.String(), "Histoire de Rome") {
		t.Errorf("expected book title in output, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Jane Doe") {
		t.Errorf("expected author in output, got:\n%s", out.String())
	}
}

// TestRunReportCmd_AuthorsMarkdown tests the Markdown author index.
func TestRunReportCmd_AuthorsMarkdown(t *testing.T) {
	dir := seedCollection(t)

	var out bytes.Buffer
	cmd := NewReportCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--collection", dir, "--kind", "authors", "-m"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(out.String(), "Jane Doe") {
		t.Errorf("expected author heading, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Histoire de Rome") {
		t.Errorf("expected title under author, got:\n%s", out.String())
	}
}

// TestRunReportCmd_OutputMarkdownFile tests writing the report to a file.
func TestRunReportCmd_OutputMarkdownFile(t *testing.T) {
	dir := seedCollection(t)
	outputFile := filepath.Join(t.TempDir(), "reports", "catalog.md")

	cmd := NewReportCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--collection", dir, "-o", outputFile})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	if !strings.Contains(string(content), "Histoire de Rome") {
		t.Errorf("expected title in report file, got:\n%s", content)
	}
}

// TestRunReportCmd_OutputEPUB tests that a book suffix converts the
// report into a book file.
func TestRunReportCmd_OutputEPUB(t *testing.T) {
	dir := seedCollection(t)
	outputFile := filepath.Join(t.TempDir(), "catalog.epub")

	cmd := NewReportCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--collection", dir, "-o", outputFile})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	desc, err := format.Sniff(content)
	if err != nil {
		t.Fatalf("failed to sniff report: %v", err)
	}
	if desc.Suffix != "epub" {
		t.Errorf("expected epub output, sniffed %q", desc.Suffix)
	}
}
