// Package fetch retrieves resources for the crawler and the collection.
//
// A Fetcher handles both remote HTTP(S) URLs and local file paths
// behind one interface, so callers never branch on locator kind. Remote
// fetches go through a shared http.Client with a cookie jar, a redirect
// cap, and optional per-site headers; local fetches read from disk and
// sniff the content type.
//
// Design decision: We cap response bodies with io.LimitReader instead
// of trusting Content-Length because:
//  1. Servers lie about Content-Length or omit it for chunked responses
//  2. A runaway page must not exhaust memory mid-crawl
//  3. Truncated HTML still yields its early links; truncated books fail
//     format sniffing and are skipped
package fetch
