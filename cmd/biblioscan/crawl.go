package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/biblioscan/internal/collection"
	"github.com/nao1215/biblioscan/internal/config"
	"github.com/nao1215/biblioscan/internal/crawler"
	"github.com/nao1215/biblioscan/internal/database"
	"github.com/nao1215/biblioscan/internal/fetch"
	"github.com/nao1215/biblioscan/internal/locator"
	"github.com/nao1215/biblioscan/internal/log"
	"github.com/nao1215/biblioscan/internal/model"
	"github.com/nao1215/biblioscan/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url]...",
		Short: "Crawl web sites and harvest book files into the collection",
		Long: `Crawl fetches each seed page, follows links up to the configured depth,
and stores every PDF and EPUB it finds in the collection directory.
Books are deduplicated by content, so re-crawling a site only stores
what is new.

Examples:
  # Crawl a site with defaults (depth 3, at most 100 new books)
  biblioscan crawl https://books.example.com/

  # Shallow crawl of just the seed page
  biblioscan crawl -d 0 https://books.example.com/catalog.html

  # Crawl several mirrors concurrently into one collection
  biblioscan crawl -b 4 https://a.example.com/ https://b.example.com/

  # Stay on the seed's host and write a session report
  biblioscan crawl --same-host -o session.md https://books.example.com/

Configuration file (.biblioscan) example:
  sites:
    books.example.com:
      cookie: "session=abc123"
      depth: 5`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Maximum page depth below each seed (0 scans only the seed page)")
	cmd.Flags().IntP("max-books", "n", config.DefaultMaxBooks,
		"Maximum number of new books to store per crawl")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Politeness delay between HTTP requests")
	cmd.Flags().Bool("same-host", false,
		"Only follow page links on each seed's host")

	// Transport flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Connection timeout for each request")
	cmd.Flags().Bool("insecure", false,
		"Skip TLS certificate verification")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with HTTP requests")

	// Batch crawling flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent crawls when several seeds are given")

	// Collection and configuration
	cmd.Flags().StringP("collection", "C", config.DefaultCollectionDirName,
		"Collection directory for stored books")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .biblioscan in current or home directory)")

	// History flags
	cmd.Flags().Bool("no-history", false,
		"Do not record this crawl in the history database")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON session summary (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown session summary (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write session summary to specified file path (creates directories if needed)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildCrawlConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging with credential masking
	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCrawl(ctx, cmd, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildCrawlConfig creates a Config from cobra command flags.
func buildCrawlConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.CrawlDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}

	cfg.MaxBooks, err = cmd.Flags().GetInt("max-books")
	if err != nil {
		return nil, err
	}

	cfg.CrawlDelay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.SameHostOnly, err = cmd.Flags().GetBool("same-host")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.TLSSkipVerify, err = cmd.Flags().GetBool("insecure")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.CollectionDir, err = cmd.Flags().GetString("collection")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	if err := loadSiteConfigs(cfg); err != nil {
		return nil, err
	}

	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, err
	}
	if !noHistory {
		cfg.SaveToDB = true
		cfg.DBDir = config.XDGDataDir()
	}

	// Positional arguments are the crawl seeds.
	cfg.Seeds = args

	return cfg, nil
}

// loadSiteConfigs loads per-site settings from the configuration file.
// If the user explicitly specified a config file path, a missing file
// is an error. Otherwise an empty config is used silently.
func loadSiteConfigs(cfg *config.Config) error {
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		siteConfigs, err := config.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.SiteConfigs = siteConfigs
		return nil
	}

	if explicitConfigPath {
		return fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	cfg.SiteConfigs = &config.File{
		Sites: make(map[string]config.SiteConfig),
	}
	return nil
}

// runCrawl executes the crawl.
func runCrawl(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"seeds", cfg.Seeds,
		"depth", cfg.CrawlDepth,
		"maxBooks", cfg.MaxBooks,
		"batchSize", cfg.BatchSize,
	)

	// Parse and normalize all seeds up front so typos fail fast.
	seeds := make([]locator.Locator, 0, len(cfg.Seeds))
	for _, raw := range cfg.Seeds {
		loc, err := locator.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid seed %q: %w", raw, err)
		}
		seeds = append(seeds, loc)
	}

	col, err := collection.Open(cfg.CollectionDir, collection.WithCollectionLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to open collection: %w", err)
	}
	logger.Info("collection opened", "dir", col.Dir(), "books", col.Len())

	// Open history database if recording is enabled
	var db *database.HistoryDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()
		logger.Info("history database opened", "dir", cfg.DBDir)
	}

	var summaries []*model.CrawlSummary
	if len(seeds) > 1 && cfg.BatchSize > 1 {
		summaries, err = runBatchCrawl(ctx, cfg, col, seeds, logger)
	} else {
		summaries, err = runSequentialCrawl(ctx, cfg, col, seeds, logger)
	}
	if err != nil {
		return err
	}

	outputFile, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	for i, summary := range summaries {
		// Each seed gets its own report file, otherwise later seeds
		// would overwrite earlier ones.
		target := outputFile
		if target != "" && len(summaries) > 1 {
			target = seedOutputPath(target, i+1)
		}
		if outErr := outputSummary(cmd, target, summary); outErr != nil {
			logger.Error("summary output failed", "seed", summary.Seed, "error", outErr)
		}
		if saveErr := saveHistory(ctx, db, summary, col, logger); saveErr != nil {
			logger.Error("failed to save crawl history", "seed", summary.Seed, "error", saveErr)
		}
	}

	return nil
}

// seedOutputPath inserts the seed's ordinal before the file extension:
// seedOutputPath("session.md", 2) returns "session_2.md".
func seedOutputPath(path string, ordinal int) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(path, ext), ordinal, ext)
}

// runSequentialCrawl crawls seeds one at a time, applying each seed's
// site-specific configuration.
func runSequentialCrawl(ctx context.Context, cfg *config.Config, col *collection.Collection, seeds []locator.Locator, logger *slog.Logger) ([]*model.CrawlSummary, error) {
	summaries := make([]*model.CrawlSummary, 0, len(seeds))

	for _, seed := range seeds {
		select {
		case <-ctx.Done():
			return summaries, ctx.Err()
		default:
		}

		siteConfig := cfg.SiteConfigs.GetSiteConfig(seed.Host())
		c := createCrawlerForSeed(cfg, siteConfig, col, logger)

		fmt.Printf("Crawling %s...\n", seed.String())
		startTime := time.Now()

		summary, err := c.Crawl(ctx, seed)
		if err != nil {
			logger.Error("crawl failed", "seed", seed.String(), "error", err)
			fmt.Fprintf(os.Stderr, "Crawl error for %s: %v\n", seed.String(), err)
			if summary != nil {
				summaries = append(summaries, summary)
			}
			continue
		}

		elapsed := time.Since(startTime)
		fmt.Printf("Crawl completed in %s\n\n", elapsed.Round(time.Millisecond))
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// runBatchCrawl crawls multiple seeds concurrently. All crawlers share
// the collection, so deduplication works across seeds.
func runBatchCrawl(ctx context.Context, cfg *config.Config, col *collection.Collection, seeds []locator.Locator, logger *slog.Logger) ([]*model.CrawlSummary, error) {
	fmt.Printf("Starting batch crawl of %d seeds (concurrency: %d)...\n\n",
		len(seeds), cfg.BatchSize)

	startTime := time.Now()

	// Batch mode uses the default site config only: per-seed crawler
	// options would race on the shared crawler factory.
	if len(cfg.SiteConfigs.Sites) > 0 {
		logger.Warn("batch crawling uses default site config only; site-specific configs (cookies, headers, depth) are ignored",
			"siteCount", len(cfg.SiteConfigs.Sites))
		fmt.Fprintf(os.Stderr, "Warning: Site-specific configurations are ignored in batch mode. Use sequential mode (--batch 1) to apply per-site settings.\n\n")
	}

	batch := crawler.NewBatch(
		func() *crawler.Crawler {
			return createCrawlerForSeed(cfg, cfg.SiteConfigs.Defaults, col, logger)
		},
		crawler.WithBatchConcurrency(cfg.BatchSize),
		crawler.WithBatchLogger(logger),
	)

	summaries, err := batch.Crawl(ctx, seeds)

	elapsed := time.Since(startTime)
	fmt.Printf("Batch crawl completed in %s\n\n", elapsed.Round(time.Millisecond))

	return summaries, err
}

// createCrawlerForSeed builds a crawler with the merged global and
// site-specific settings.
func createCrawlerForSeed(cfg *config.Config, siteConfig config.SiteConfig, col *collection.Collection, logger *slog.Logger) *crawler.Crawler {
	fetcher := fetch.New(fetch.Config{
		UserAgent:     cfg.UserAgent,
		Cookie:        siteConfig.Cookie,
		Headers:       siteConfig.Headers,
		TLSSkipVerify: cfg.TLSSkipVerify || siteConfig.Insecure,
		Timeout:       cfg.Timeout,
		MaxBodySize:   cfg.MaxBodySize,
	})

	depth := cfg.CrawlDepth
	if siteConfig.Depth > 0 {
		depth = siteConfig.Depth
	}
	maxBooks := cfg.MaxBooks
	if siteConfig.MaxBooks > 0 {
		maxBooks = siteConfig.MaxBooks
	}

	return crawler.New(fetcher, col,
		crawler.WithMaxDepth(depth),
		crawler.WithMaxBooks(maxBooks),
		crawler.WithDelay(cfg.CrawlDelay),
		crawler.WithSameHostOnly(cfg.SameHostOnly),
		crawler.WithLogger(logger),
	)
}

// outputSummary outputs the session summary in the requested format,
// to outputFile when non-empty and stdout otherwise.
func outputSummary(cmd *cobra.Command, outputFile string, summary *model.CrawlSummary) error {
	jsonOut, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOut, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	// File output routes through the report renderer so the suffix can
	// pick the format (session.md, session.epub, ...).
	if outputFile != "" && !jsonOut {
		dir := filepath.Dir(outputFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		return report.RenderSessionFile(outputFile, summary)
	}

	var output *os.File
	if outputFile != "" {
		f, err := os.OpenFile(outputFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	if jsonOut {
		encoder := json.NewEncoder(output)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summary)
	}

	if markdownOut {
		_, err := report.NewMarkdownWriter(output).WriteSession(summary)
		return err
	}

	_, err = report.NewSimpleWriter(output).WriteSession(summary)
	return err
}

// saveHistory records the session and the collection's books in the
// history database. If db is nil, this function is a no-op.
func saveHistory(ctx context.Context, db *database.HistoryDB, summary *model.CrawlSummary, col *collection.Collection, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	if _, err := db.SaveSession(ctx, summary); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	// Book records are keyed by content hash, so re-saving the whole
	// collection is idempotent.
	for _, b := range col.Books() {
		rec := &database.BookRecord{
			ContentHash: b.ContentHash(),
			Filename:    b.Filename(),
			Format:      b.Suffix(),
			Source:      b.Source().String(),
		}
		// Metadata is best effort: a book with an unreadable header
		// still gets a catalog entry.
		if title, err := b.Title(); err == nil {
			rec.Title = title
		}
		if authors, err := b.AuthorLine(); err == nil {
			rec.Authors = authors
		}
		if lang, err := b.Language(); err == nil {
			rec.Language = lang
		}
		if _, err := db.SaveBook(ctx, rec); err != nil {
			return fmt.Errorf("failed to save book %s: %w", b.Filename(), err)
		}
	}

	logger.Info("crawl history saved", "seed", summary.Seed)
	return nil
}
