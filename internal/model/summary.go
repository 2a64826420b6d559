package model

import "time"

// Stage identifies where in the pipeline a diagnostic was recorded.
type Stage string

// Pipeline stages for diagnostics.
const (
	// StageFetch covers transport failures: DNS, TLS, timeouts, and
	// non-2xx responses.
	StageFetch Stage = "fetch"

	// StageExtract covers HTML parsing and link resolution failures.
	StageExtract Stage = "extract"

	// StageStore covers collection failures: unrecognized formats and
	// filesystem errors.
	StageStore Stage = "store"
)

// Diagnostic is one non-fatal failure recorded during a crawl. The
// crawl keeps going; diagnostics surface in the session summary so the
// operator can see what was skipped.
type Diagnostic struct {
	// Locator is the resource the failure relates to. This is the raw
	// link text when the failure happened before normalization.
	Locator string `json:"locator"`

	// Stage is the pipeline stage that recorded the failure.
	Stage Stage `json:"stage"`

	// Message is the human-readable failure description.
	Message string `json:"message"`
}

// CrawlSummary is the outcome of one crawl session.
type CrawlSummary struct {
	// Seed is the normalized seed locator the crawl started from.
	Seed string `json:"seed"`

	// StartedAt is when the crawl began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the crawl ended, whatever the reason.
	FinishedAt time.Time `json:"finished_at"`

	// PagesVisited counts pages that were fetched and scanned.
	PagesVisited int `json:"pages_visited"`

	// BooksStored counts books newly added to the collection.
	BooksStored int `json:"books_stored"`

	// BooksDuplicate counts fetched books already present in the
	// collection (same content hash).
	BooksDuplicate int `json:"books_duplicate"`

	// Truncated is true when the crawl stopped because it reached the
	// book limit rather than exhausting the frontier.
	Truncated bool `json:"truncated"`

	// Diagnostics lists every non-fatal failure, in the order recorded.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Record appends a diagnostic.
func (s *CrawlSummary) Record(stage Stage, loc, message string) {
	s.Diagnostics = append(s.Diagnostics, Diagnostic{
		Locator: loc,
		Stage:   stage,
		Message: message,
	})
}

// Duration returns the wall-clock length of the session.
func (s *CrawlSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
