package config

// SiteConfig holds per-host settings for a single library site.
// This lets one host carry credentials or a different depth without
// affecting the rest of a crawl.
type SiteConfig struct {
	// Cookie is an HTTP cookie sent with requests to this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers for requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global crawl depth for this site.
	// If zero, the global CrawlDepth is used.
	Depth int `yaml:"depth,omitempty"`

	// MaxBooks overrides the global book cap for this site.
	// If zero, the global MaxBooks is used.
	MaxBooks int `yaml:"maxBooks,omitempty"`

	// Insecure disables TLS certificate verification for this site,
	// for library mirrors with self-signed certificates.
	Insecure bool `yaml:"insecure,omitempty"`
}

// File represents the structure of the .biblioscan configuration file.
type File struct {
	// Sites maps hostnames to their site-specific configurations.
	// Keys are bare hostnames (e.g. "books.example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains site configuration applied to all sites unless
	// overridden in the site-specific section.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a host, merging the
// site-specific section over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	if siteConfig, ok := cf.Sites[host]; ok {
		if siteConfig.Cookie != "" {
			result.Cookie = siteConfig.Cookie
		}
		if siteConfig.Depth != 0 {
			result.Depth = siteConfig.Depth
		}
		if siteConfig.MaxBooks != 0 {
			result.MaxBooks = siteConfig.MaxBooks
		}
		if siteConfig.Insecure {
			result.Insecure = true
		}
		if len(siteConfig.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range siteConfig.Headers {
				result.Headers[k] = v
			}
		}
	}

	return result
}
