package crawler

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/biblioscan/internal/format"
	"github.com/nao1215/biblioscan/internal/locator"
)

// Extractor pulls links out of HTML pages and classifies them as book
// candidates or page candidates.
//
// Design decision: We use golang.org/x/net/html rather than regex
// because it correctly handles the malformed HTML common on the web and
// keeps link resolution out of hand-written string code.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractResult holds the classified links of one page.
type ExtractResult struct {
	// Title is the page title from the <title> tag, "" when absent.
	Title string

	// BookLinks are links whose file suffix matches a registered book
	// format, in document order, deduplicated, resolved absolute.
	BookLinks []locator.Locator

	// PageLinks are the remaining HTTP(S) links, candidates for deeper
	// crawling.
	PageLinks []locator.Locator

	// SoftFailures lists links that could not be resolved. The page
	// itself still counts as scanned.
	SoftFailures []string
}

// Extract parses page bytes and classifies every anchor. base is the
// locator the page was fetched from; relative links resolve against it.
// Extract never fails: unparsable HTML yields an empty result, in line
// with how browsers treat hopeless markup.
func (e *Extractor) Extract(base locator.Locator, body []byte) *ExtractResult {
	result := &ExtractResult{}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		result.SoftFailures = append(result.SoftFailures, "unparsable HTML: "+err.Error())
		return result
	}

	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if result.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					result.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "a":
				if href := getAttr(n, "href"); href != "" {
					e.classify(base, href, seen, result)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result
}

// classify resolves one href and appends it to the matching bucket.
func (e *Extractor) classify(base locator.Locator, href string, seen map[string]bool, result *ExtractResult) {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") {
		return
	}

	resolved, ok := resolveLink(base, href)
	if !ok {
		result.SoftFailures = append(result.SoftFailures, "unresolvable link: "+href)
		return
	}

	loc, err := locator.Parse(resolved)
	if err != nil {
		// Non-HTTP schemes (ftp, magnet) are not failures, just links
		// the fetcher cannot follow.
		return
	}
	if seen[loc.Key()] {
		return
	}
	seen[loc.Key()] = true

	if format.Known(loc.Suffix()) {
		result.BookLinks = append(result.BookLinks, loc)
		return
	}
	result.PageLinks = append(result.PageLinks, loc)
}

// resolveLink resolves href against the page's locator. For local
// pages, relative hrefs resolve against the containing directory.
func resolveLink(base locator.Locator, href string) (string, bool) {
	if base.IsRemote() {
		u, err := url.Parse(href)
		if err != nil {
			return "", false
		}
		return base.URL().ResolveReference(u).String(), true
	}

	// Local page: absolute URLs pass through, anything else joins the
	// page's directory.
	if strings.HasPrefix(strings.ToLower(href), "http://") ||
		strings.HasPrefix(strings.ToLower(href), "https://") {
		return href, true
	}
	dir := base.Path()
	if i := strings.LastIndexByte(dir, '/'); i >= 0 {
		dir = dir[:i]
	} else {
		dir = "."
	}
	return dir + "/" + href, true
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
