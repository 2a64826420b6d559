package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/biblioscan/internal/collection"
	"github.com/nao1215/biblioscan/internal/config"
	"github.com/nao1215/biblioscan/internal/log"
	"github.com/nao1215/biblioscan/internal/report"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a catalog report from the collection",
		Long: `Report reads the collection and renders a catalog of its books.

Two kinds are available:
  books    one table row per book (title, authors, language, date)
  authors  books grouped by author

Output defaults to a plain-text listing on stdout. With --output, the
file suffix picks the format: .md writes Markdown, and a book suffix
(.epub, .pdf) converts the Markdown report into a book file, so the
catalog itself can live in the collection.

Examples:
  # Plain-text book listing
  biblioscan report

  # Markdown author index on stdout
  biblioscan report --kind authors -m

  # Write the catalog as an EPUB
  biblioscan report -o catalog.epub`,
		RunE: runReportCmd,
	}

	cmd.Flags().StringP("kind", "k", string(report.KindBooks),
		"Report kind: books or authors")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown instead of plain text (stdout only)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path; suffix picks the format")
	cmd.Flags().StringP("collection", "C", config.DefaultCollectionDirName,
		"Collection directory to report on")

	return cmd
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, _ []string) error {
	logger := log.NewSecureLogger(os.Stderr, getVerboseFlag(cmd))
	slog.SetDefault(logger)

	kindStr, err := cmd.Flags().GetString("kind")
	if err != nil {
		return err
	}
	kind := report.Kind(kindStr)
	if kind != report.KindBooks && kind != report.KindAuthors {
		return fmt.Errorf("unknown report kind %q (expected books or authors)", kindStr)
	}

	markdownOut, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	outputFile, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	collectionDir, err := cmd.Flags().GetString("collection")
	if err != nil {
		return err
	}

	col, err := collection.Open(collectionDir, collection.WithCollectionLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to open collection: %w", err)
	}
	books := col.Books()

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		if err := report.RenderFile(outputFile, kind, books); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s (%d books)\n", outputFile, len(books))
		return nil
	}

	var writer report.Writer
	if markdownOut {
		writer = report.NewMarkdownWriter(cmd.OutOrStdout())
	} else {
		writer = report.NewSimpleWriter(cmd.OutOrStdout())
	}

	if kind == report.KindAuthors {
		_, err = writer.WriteAuthors(books)
	} else {
		_, err = writer.WriteBooks(books)
	}
	return err
}
