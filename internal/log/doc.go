// Package log provides logging with automatic redaction of site
// credentials, built on top of the standard slog package.
//
// biblioscan sends per-site cookies and custom headers configured in
// .biblioscan, and those values routinely contain session tokens or
// API keys. The SecureHandler masks such values before they reach the
// underlying handler, so verbose crawl logs can be shared or attached
// to bug reports without leaking credentials.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	logger.Info("request sent",
//	    "cookie", "session=abc123",  // masked
//	    "url", "https://books.example.com/",
//	)
//
//	slog.SetDefault(logger)
package log
