package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewConfig tests default values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	c := NewConfig()
	if c.CrawlDepth != DefaultCrawlDepth {
		t.Errorf("unexpected default depth %d", c.CrawlDepth)
	}
	if c.MaxBooks != DefaultMaxBooks {
		t.Errorf("unexpected default max books %d", c.MaxBooks)
	}
	if c.Timeout != DefaultTimeout {
		t.Errorf("unexpected default timeout %v", c.Timeout)
	}
	if c.CollectionDir != DefaultCollectionDirName {
		t.Errorf("unexpected default collection dir %q", c.CollectionDir)
	}
}

// TestValidate tests every validation branch.
func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		c := NewConfig()
		c.Seeds = []string{"http://books.example.com/"}
		return c
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"no seed", func(c *Config) { c.Seeds = nil }, ErrNoSeed},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative depth", func(c *Config) { c.CrawlDepth = -1 }, ErrInvalidDepth},
		{"zero max books", func(c *Config) { c.MaxBooks = 0 }, ErrInvalidMaxBooks},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, ErrInvalidBatchSize},
		{"negative delay", func(c *Config) { c.CrawlDelay = -time.Second }, ErrInvalidCrawlDelay},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := valid()
			tt.mutate(c)
			if err := c.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// TestLoadConfigFile tests YAML parsing and site merging.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	content := `
defaults:
  headers:
    Accept-Language: fr
sites:
  books.example.com:
    cookie: "session=abc123"
    depth: 5
    maxBooks: 10
    insecure: true
    headers:
      X-Token: tok
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cf, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	site := cf.GetSiteConfig("books.example.com")
	if site.Cookie != "session=abc123" {
		t.Errorf("unexpected cookie %q", site.Cookie)
	}
	if site.Depth != 5 {
		t.Errorf("unexpected depth %d", site.Depth)
	}
	if site.MaxBooks != 10 {
		t.Errorf("unexpected max books %d", site.MaxBooks)
	}
	if !site.Insecure {
		t.Error("expected insecure to be set")
	}
	// Defaults merge under site-specific headers.
	if site.Headers["Accept-Language"] != "fr" || site.Headers["X-Token"] != "tok" {
		t.Errorf("unexpected merged headers %v", site.Headers)
	}

	// Unknown hosts get the defaults only.
	other := cf.GetSiteConfig("other.example.com")
	if other.Cookie != "" || other.Depth != 0 {
		t.Errorf("expected defaults for unknown host, got %+v", other)
	}
	if other.Headers["Accept-Language"] != "fr" {
		t.Errorf("expected default headers, got %v", other.Headers)
	}
}

// TestLoadConfigFileNotFound tests the sentinel for missing files.
func TestLoadConfigFileNotFound(t *testing.T) {
	t.Parallel()

	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent")); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}
}

// TestFindConfigFile tests explicit path resolution.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	if err := os.WriteFile(path, []byte("sites: {}\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if got := FindConfigFile(path); got != path {
		t.Errorf("expected %q, got %q", path, got)
	}
	if got := FindConfigFile(filepath.Join(t.TempDir(), "absent")); got != "" {
		t.Errorf("expected empty result for missing explicit path, got %q", got)
	}
}
