// Package crawler walks web pages breadth-first, harvesting book files
// into a Sink.
//
// The crawler maintains a frontier of (locator, remaining depth) items.
// Links pointing at recognized book formats are fetched and handed to
// the sink; HTML pages are scanned for further links. Pages reached at
// depth zero are still fetched and scanned for books, but their page
// links are not followed.
//
// Design decision: The crawler writes books through a narrow Sink
// interface rather than importing the collection package because:
//  1. It keeps the dependency direction one-way (collection -> crawler)
//  2. Tests can use an in-memory sink without touching the filesystem
//  3. The crawler stays ignorant of storage policy (dedup, naming)
package crawler
