package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. Crawl limits follow the crawl command
// defaults; transport values are chosen for ordinary clearnet sites.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "biblioscan"

	// DefaultTimeout bounds one HTTP request end to end. 30 seconds is
	// generous for book-sized downloads on slow mirrors without letting
	// a dead server stall the crawl for minutes.
	DefaultTimeout = 30 * time.Second

	// DefaultCrawlDepth is how many page levels are followed below the
	// seed. Library index pages rarely nest deeper than three levels.
	DefaultCrawlDepth = 3

	// DefaultMaxBooks caps the number of new books stored per crawl.
	// This prevents runaway harvesting on large mirrors; users can
	// raise it via the --max-books flag.
	DefaultMaxBooks = 100

	// DefaultCrawlDelay is the politeness pause between requests.
	// 1 second is conservative and respectful of server resources.
	DefaultCrawlDelay = 1 * time.Second

	// DefaultBatchSize is the number of seeds crawled concurrently when
	// several are given on the command line.
	DefaultBatchSize = 4

	// DefaultUserAgent identifies biblioscan in HTTP requests. A
	// descriptive User-Agent lets site operators identify harvester
	// traffic in their logs.
	DefaultUserAgent = "biblioscan/1.0 (+https://github.com/nao1215/biblioscan)"

	// DefaultMaxBodySize limits the response body size. Books run far
	// larger than HTML pages, so this is sized for scanned PDFs.
	DefaultMaxBodySize = 64 * 1024 * 1024 // 64MB

	// DefaultCollectionDirName is the collection directory created
	// under the current directory when --collection is not given.
	DefaultCollectionDirName = "collection"
)

// Config holds all configuration options for biblioscan.
//
// Design decision: We use a single flat struct instead of nested
// structs (CrawlConfig, ReportConfig, ...) for simplicity. The number
// of options is manageable, and nesting would add complexity without
// significant benefit.
type Config struct {
	// CollectionDir is the directory holding the book collection.
	CollectionDir string

	// Seeds is the list of URLs or local pages to crawl or ingest.
	Seeds []string

	// CrawlDepth is how many page levels to follow below each seed.
	// Depth 0 means only the seed page itself.
	CrawlDepth int

	// MaxBooks caps how many new books one crawl may store.
	MaxBooks int

	// CrawlDelay is the politeness pause between HTTP requests.
	CrawlDelay time.Duration

	// BatchSize is the number of seeds crawled concurrently.
	BatchSize int

	// SameHostOnly restricts page links to each seed's host.
	SameHostOnly bool

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes. Zero
	// means DefaultMaxBodySize.
	MaxBodySize int64

	// TLSSkipVerify disables TLS certificate verification globally.
	// Prefer the per-site "insecure" setting in the config file.
	TLSSkipVerify bool

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// ConfigFilePath is the path to the configuration file. If empty,
	// the tool searches for .biblioscan in the current directory, the
	// home directory, and the XDG config directory.
	ConfigFilePath string

	// SiteConfigs holds per-host settings loaded from the config file.
	SiteConfigs *File

	// DBDir is the directory holding the crawl history database.
	// When empty, sessions are not persisted.
	DBDir string

	// SaveToDB indicates whether to save crawl sessions to the
	// database. Set automatically when DBDir is configured.
	SaveToDB bool
}

// NewConfig creates a Config with default values.
//
// Design decision: We use a constructor instead of relying on zero
// values because many defaults are non-zero. It also documents what
// the defaults are.
func NewConfig() *Config {
	return &Config{
		CollectionDir: DefaultCollectionDirName,
		CrawlDepth:    DefaultCrawlDepth,
		MaxBooks:      DefaultMaxBooks,
		CrawlDelay:    DefaultCrawlDelay,
		BatchSize:     DefaultBatchSize,
		Timeout:       DefaultTimeout,
		UserAgent:     DefaultUserAgent,
		MaxBodySize:   DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for biblioscan.
// On Linux: ~/.local/share/biblioscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for biblioscan.
// On Linux: ~/.config/biblioscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem
// found. Called once after CLI parsing, before any network work.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.CrawlDepth < 0 {
		return ErrInvalidDepth
	}
	if c.MaxBooks <= 0 {
		return ErrInvalidMaxBooks
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}
