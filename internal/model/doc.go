// Package model defines the core data structures shared across the
// crawler, collection, and report packages.
//
// This package contains the following main types:
//   - Resource: One fetched resource (page or book file) with its body
//   - CrawlSummary: The outcome of a crawl session
//   - Diagnostic: One non-fatal failure recorded during a crawl
//
// Design decision: We separate models into their own package to avoid
// circular dependencies. Multiple packages (crawler, collection, report,
// database) need these types, so centralizing them prevents import
// cycles.
package model
