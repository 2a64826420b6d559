// Package database provides SQLite-based persistence for crawl history.
//
// Each crawl session and every stored book can be recorded in a single
// biblioscan.db file, so users can answer "when did I last harvest this
// site" and "where did this book come from" after the fact. The driver
// is modernc.org/sqlite, a pure-Go SQLite port, so the binary stays
// CGO-free and cross-compiles cleanly.
//
// Persistence is optional: the crawl command only writes history when a
// database directory is configured.
package database
