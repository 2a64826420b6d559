package crawler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/biblioscan/internal/book"
	"github.com/nao1215/biblioscan/internal/fetch"
	"github.com/nao1215/biblioscan/internal/format"
	"github.com/nao1215/biblioscan/internal/locator"
	"github.com/nao1215/biblioscan/internal/model"
)

// Default crawl limits, matching the crawl command defaults.
const (
	// DefaultMaxDepth is how many page levels are followed from the seed.
	DefaultMaxDepth = 3

	// DefaultMaxBooks caps how many new books one crawl may store.
	DefaultMaxBooks = 100

	// DefaultDelay is the politeness pause between fetches.
	DefaultDelay = 1 * time.Second
)

// Sink receives harvested book files. The collection package implements
// this interface.
type Sink interface {
	// Add stores one book. hint is the server-declared content type and
	// may be empty. added is false when the same content (by hash) is
	// already stored; that is not an error.
	Add(content []byte, source locator.Locator, hint string) (b *book.Book, added bool, err error)
}

// Crawler walks pages breadth-first from a seed, storing every
// recognized book into its sink.
type Crawler struct {
	fetcher   *fetch.Fetcher
	sink      Sink
	extractor *Extractor

	maxDepth     int
	maxBooks     int
	delay        time.Duration
	sameHostOnly bool
	logger       *slog.Logger

	// visited holds locator dedup keys. A locator enters the set when
	// dequeued, never earlier, so re-enqueued duplicates are cheap and
	// harmless.
	visited map[string]bool
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithMaxDepth sets how many page levels to follow from the seed.
// 0 means the seed page only.
func WithMaxDepth(depth int) Option {
	return func(c *Crawler) {
		if depth >= 0 {
			c.maxDepth = depth
		}
	}
}

// WithMaxBooks caps how many new books the crawl may store.
func WithMaxBooks(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.maxBooks = n
		}
	}
}

// WithDelay sets the politeness pause between fetches.
func WithDelay(d time.Duration) Option {
	return func(c *Crawler) {
		if d >= 0 {
			c.delay = d
		}
	}
}

// WithSameHostOnly restricts page links to the seed's host. Book links
// are always followed wherever they point.
func WithSameHostOnly(on bool) Option {
	return func(c *Crawler) {
		c.sameHostOnly = on
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// New creates a Crawler writing into sink.
func New(fetcher *fetch.Fetcher, sink Sink, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher:   fetcher,
		sink:      sink,
		extractor: NewExtractor(),
		maxDepth:  DefaultMaxDepth,
		maxBooks:  DefaultMaxBooks,
		delay:     DefaultDelay,
		visited:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// frontierItem is one pending fetch: a locator and how many page levels
// may still be followed below it.
type frontierItem struct {
	loc   locator.Locator
	depth int
}

// Crawl walks the web from seed until the frontier is exhausted, the
// book cap is reached, or ctx is canceled. Per-resource failures are
// recorded as diagnostics in the summary, never returned as errors; the
// only error Crawl returns is the context's, and the summary is valid
// even then.
func (c *Crawler) Crawl(ctx context.Context, seed locator.Locator) (*model.CrawlSummary, error) {
	summary := &model.CrawlSummary{
		Seed:      seed.String(),
		StartedAt: time.Now(),
	}
	defer func() { summary.FinishedAt = time.Now() }()

	frontier := []frontierItem{{loc: seed, depth: c.maxDepth}}
	seedHost := seed.Host()

	for len(frontier) > 0 {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		item := frontier[0]
		frontier = frontier[1:]

		if c.visited[item.loc.Key()] {
			continue
		}
		c.visited[item.loc.Key()] = true

		resource, err := c.fetcher.Fetch(ctx, item.loc)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return summary, ctx.Err()
			}
			summary.Record(model.StageFetch, item.loc.String(), err.Error())
			c.logger.Debug("fetch failed", "locator", item.loc.String(), "error", err)
			continue
		}

		if resource.IsHTML() {
			frontier = c.scanPage(resource, item, seedHost, frontier, summary)
		} else {
			c.storeBook(resource, summary)
			if summary.BooksStored >= c.maxBooks {
				summary.Truncated = true
				c.logger.Info("book limit reached", "stored", summary.BooksStored)
				return summary, nil
			}
		}

		// Politeness pause before the next fetch.
		if c.delay > 0 && len(frontier) > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(c.delay):
			}
		}
	}

	return summary, nil
}

// scanPage extracts links from a fetched page and grows the frontier.
// Book links keep the current depth so a page at depth zero still
// yields its books; page links descend one level and stop at zero.
func (c *Crawler) scanPage(resource *model.Resource, item frontierItem, seedHost string, frontier []frontierItem, summary *model.CrawlSummary) []frontierItem {
	summary.PagesVisited++

	result := c.extractor.Extract(item.loc, resource.Body)
	for _, soft := range result.SoftFailures {
		summary.Record(model.StageExtract, item.loc.String(), soft)
	}
	c.logger.Debug("page scanned",
		"locator", item.loc.String(),
		"title", result.Title,
		"book_links", len(result.BookLinks),
		"page_links", len(result.PageLinks),
		"depth", item.depth,
	)

	for _, bl := range result.BookLinks {
		if !c.visited[bl.Key()] {
			frontier = append(frontier, frontierItem{loc: bl, depth: item.depth})
		}
	}
	if item.depth > 0 {
		for _, pl := range result.PageLinks {
			if c.sameHostOnly && pl.Host() != seedHost {
				continue
			}
			if !c.visited[pl.Key()] {
				frontier = append(frontier, frontierItem{loc: pl, depth: item.depth - 1})
			}
		}
	}
	return frontier
}

// storeBook hands a non-HTML resource to the sink and updates counters.
func (c *Crawler) storeBook(resource *model.Resource, summary *model.CrawlSummary) {
	b, added, err := c.sink.Add(resource.Body, resource.Locator, resource.ContentType)
	if err != nil {
		if errors.Is(err, format.ErrUnknownFormat) {
			summary.Record(model.StageStore, resource.Locator.String(), "not a recognized book format")
		} else {
			summary.Record(model.StageStore, resource.Locator.String(), err.Error())
		}
		return
	}
	if !added {
		summary.BooksDuplicate++
		c.logger.Debug("duplicate book skipped", "locator", resource.Locator.String())
		return
	}
	summary.BooksStored++
	c.logger.Info("book stored", "file", b.Filename(), "source", resource.Locator.String())
}
