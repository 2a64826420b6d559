package collection

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/biblioscan/internal/book"
	"github.com/nao1215/biblioscan/internal/crawler"
	"github.com/nao1215/biblioscan/internal/fetch"
	"github.com/nao1215/biblioscan/internal/locator"
	"github.com/nao1215/biblioscan/internal/model"
)

// DefaultIngestConcurrency is how many book downloads IngestPage runs
// at once.
const DefaultIngestConcurrency = 4

// PageIngest is the outcome of ingesting one page's books.
type PageIngest struct {
	// Title is the page title, "" when absent.
	Title string

	// Stored counts newly stored books.
	Stored int

	// Duplicates counts books already present.
	Duplicates int

	// Diagnostics lists the links that failed, with reasons.
	Diagnostics []model.Diagnostic
}

// IngestURL fetches one book by URL or path and adds it to the
// collection. A HEAD probe runs first so the declared content type can
// break ties for links without a usable suffix; probe failures are
// ignored because the GET decides anyway.
func (c *Collection) IngestURL(ctx context.Context, fetcher *fetch.Fetcher, loc locator.Locator) (*book.Book, bool, error) {
	hint, err := fetcher.Probe(ctx, loc)
	if err != nil {
		c.logger.Debug("content-type probe failed", "locator", loc.String(), "error", err)
		hint = ""
	}

	resource, err := fetcher.Fetch(ctx, loc)
	if err != nil {
		return nil, false, err
	}
	if hint == "" {
		hint = resource.ContentType
	}
	return c.Add(resource.Body, resource.Locator, hint)
}

// IngestPage fetches an HTML page and downloads every book it links to,
// concurrently. Per-link failures are collected as diagnostics; the
// error return covers only the page itself.
func (c *Collection) IngestPage(ctx context.Context, fetcher *fetch.Fetcher, pageLoc locator.Locator, concurrency int) (*PageIngest, error) {
	if concurrency <= 0 {
		concurrency = DefaultIngestConcurrency
	}

	resource, err := fetcher.Fetch(ctx, pageLoc)
	if err != nil {
		return nil, err
	}
	if !resource.IsHTML() {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotAPage, pageLoc.String(), resource.ContentType)
	}

	extracted := crawler.NewExtractor().Extract(pageLoc, resource.Body)
	ingest := &PageIngest{Title: extracted.Title}
	for _, soft := range extracted.SoftFailures {
		ingest.Diagnostics = append(ingest.Diagnostics, model.Diagnostic{
			Locator: pageLoc.String(),
			Stage:   model.StageExtract,
			Message: soft,
		})
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, bl := range extracted.BookLinks {
		g.Go(func() error {
			_, added, err := c.IngestURL(ctx, fetcher, bl)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				ingest.Diagnostics = append(ingest.Diagnostics, model.Diagnostic{
					Locator: bl.String(),
					Stage:   model.StageStore,
					Message: err.Error(),
				})
			case added:
				ingest.Stored++
			default:
				ingest.Duplicates++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return ingest, err
	}
	return ingest, nil
}
