package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/biblioscan/internal/collection"
	"github.com/nao1215/biblioscan/internal/config"
	"github.com/nao1215/biblioscan/internal/fetch"
	"github.com/nao1215/biblioscan/internal/locator"
	"github.com/nao1215/biblioscan/internal/log"
)

// NewIngestCmd creates the ingest command.
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [url-or-file]...",
		Short: "Add individual books or one page's books to the collection",
		Long: `Ingest adds books to the collection without a full crawl.

By default each argument is fetched as a single book file. With --page,
each argument is treated as a catalog page: its book links are
extracted and downloaded concurrently, without following further pages.

Examples:
  # Add one book by URL
  biblioscan ingest https://books.example.com/rome.pdf

  # Add a local file
  biblioscan ingest ~/downloads/atlas.epub

  # Download every book linked from a catalog page
  biblioscan ingest --page https://books.example.com/catalog.html`,
		Args: cobra.MinimumNArgs(1),
		RunE: runIngestCmd,
	}

	cmd.Flags().Bool("page", false,
		"Treat arguments as catalog pages and ingest every linked book")
	cmd.Flags().Int("concurrency", collection.DefaultIngestConcurrency,
		"Number of concurrent downloads in page mode")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Connection timeout for each request")
	cmd.Flags().Bool("insecure", false,
		"Skip TLS certificate verification")
	cmd.Flags().StringP("collection", "C", config.DefaultCollectionDirName,
		"Collection directory for stored books")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .biblioscan in current or home directory)")

	return cmd
}

// runIngestCmd executes the ingest command.
func runIngestCmd(cmd *cobra.Command, args []string) error {
	logger := log.NewSecureLogger(os.Stderr, getVerboseFlag(cmd))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runIngest(ctx, cmd, args, logger)
}

// runIngest ingests each argument into the collection.
func runIngest(ctx context.Context, cmd *cobra.Command, args []string, logger *slog.Logger) error {
	pageMode, err := cmd.Flags().GetBool("page")
	if err != nil {
		return err
	}
	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return err
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}
	insecure, err := cmd.Flags().GetBool("insecure")
	if err != nil {
		return err
	}
	collectionDir, err := cmd.Flags().GetString("collection")
	if err != nil {
		return err
	}
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	cfg := config.NewConfig()
	cfg.ConfigFilePath = configPath
	if err := loadSiteConfigs(cfg); err != nil {
		return err
	}

	col, err := collection.Open(collectionDir, collection.WithCollectionLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to open collection: %w", err)
	}

	out := cmd.OutOrStdout()
	var failed int
	for _, raw := range args {
		loc, err := locator.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid locator %q: %w", raw, err)
		}

		siteConfig := cfg.SiteConfigs.GetSiteConfig(loc.Host())
		fetcher := fetch.New(fetch.Config{
			Cookie:        siteConfig.Cookie,
			Headers:       siteConfig.Headers,
			TLSSkipVerify: insecure || siteConfig.Insecure,
			Timeout:       timeout,
		})

		if pageMode {
			if err := ingestPage(ctx, out, col, fetcher, loc, concurrency); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				fmt.Fprintf(os.Stderr, "Ingest error for %s: %v\n", loc.String(), err)
				failed++
			}
			continue
		}

		if err := ingestOne(ctx, out, col, fetcher, loc); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintf(os.Stderr, "Ingest error for %s: %v\n", loc.String(), err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d ingests failed", failed, len(args))
	}
	return nil
}

// ingestOne fetches a single book and reports the outcome.
func ingestOne(ctx context.Context, out io.Writer, col *collection.Collection, fetcher *fetch.Fetcher, loc locator.Locator) error {
	b, added, err := col.IngestURL(ctx, fetcher, loc)
	if err != nil {
		return err
	}

	if added {
		fmt.Fprintf(out, "Stored %s\n", b.Filename())
	} else {
		fmt.Fprintf(out, "Already in collection: %s\n", b.Filename())
	}
	return nil
}

// ingestPage downloads every book linked from a catalog page.
func ingestPage(ctx context.Context, out io.Writer, col *collection.Collection, fetcher *fetch.Fetcher, loc locator.Locator, concurrency int) error {
	result, err := col.IngestPage(ctx, fetcher, loc, concurrency)
	if err != nil {
		return err
	}

	title := result.Title
	if title == "" {
		title = loc.String()
	}
	fmt.Fprintf(out, "%s: stored %d, duplicates %d\n", title, result.Stored, result.Duplicates)
	for _, diag := range result.Diagnostics {
		fmt.Fprintf(out, "  skipped %s: %s\n", diag.Locator, diag.Message)
	}
	return nil
}
