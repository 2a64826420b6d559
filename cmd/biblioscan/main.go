// Package main provides the entry point for the biblioscan CLI.
//
// biblioscan harvests book files (PDF, EPUB) from web sites and local
// directories into a managed collection, and generates reports about
// the collected books.
//
// Usage:
//
//	biblioscan crawl <url>
//	biblioscan ingest <url-or-file>
//	biblioscan report --kind authors
//
// See --help for all available options.
package main

// main is the entry point for biblioscan.
func main() {
	Execute()
}
