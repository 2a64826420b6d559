package format

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Document is a parsed markdown source for WriteFromMarkdown: YAML
// front matter carrying the book metadata, followed by the body text.
type Document struct {
	// Title comes from the front matter, falling back to the first
	// heading in the body.
	Title string

	// Authors is the ordered author list. A scalar "author" key is
	// accepted as a single-element list.
	Authors []string

	// Language is the declared language tag, e.g. "fr".
	Language string

	// Subjects is the ordered subject list.
	Subjects []string

	// Published is the publication date, zero when absent or unparsable.
	Published time.Time

	// Body is the markdown content without the front matter block.
	Body string
}

// frontMatter mirrors the YAML block between --- markers.
type frontMatter struct {
	Title    string   `yaml:"title"`
	Author   string   `yaml:"author"`
	Authors  []string `yaml:"authors"`
	Language string   `yaml:"language"`
	Subjects []string `yaml:"subjects"`
	Date     string   `yaml:"date"`
}

// frontMatterRegex matches a YAML front matter block at the start of a
// markdown document.
var frontMatterRegex = regexp.MustCompile(`(?s)\A---\r?\n(.+?)\r?\n---\r?\n?`)

// headingRegex matches ATX headings (# through ######).
var headingRegex = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+?)\s*$`)

// ParseDocument parses a markdown string into a Document. It never
// fails: a missing or malformed front matter block simply yields fewer
// metadata fields, with the title derived from the first heading.
func ParseDocument(md string) *Document {
	doc := &Document{Body: md}

	if m := frontMatterRegex.FindStringSubmatch(md); m != nil {
		var fm frontMatter
		if err := yaml.Unmarshal([]byte(m[1]), &fm); err == nil {
			doc.Title = strings.TrimSpace(fm.Title)
			doc.Authors = trimAll(fm.Authors)
			if len(doc.Authors) == 0 && strings.TrimSpace(fm.Author) != "" {
				doc.Authors = []string{strings.TrimSpace(fm.Author)}
			}
			doc.Language = strings.TrimSpace(fm.Language)
			doc.Subjects = trimAll(fm.Subjects)
			if t, err := ParseDate(fm.Date); err == nil {
				doc.Published = t
			}
		}
		doc.Body = md[len(m[0]):]
	}

	if doc.Title == "" {
		if h := headingRegex.FindStringSubmatch(doc.Body); h != nil {
			doc.Title = h[2]
		}
	}

	return doc
}

// Validate reports whether the document carries enough structure to
// render. A document with neither a title nor body content cannot be
// represented by any format.
func (d *Document) Validate() error {
	if d.Title == "" && strings.TrimSpace(d.Body) == "" {
		return fmt.Errorf("%w: document has no title and no content", ErrConversion)
	}
	return nil
}

// block is one renderable unit of the markdown body.
type block struct {
	// level is the heading level, or 0 for a paragraph.
	level int
	text  string
}

// blocks splits the body into headings and paragraphs. Inline markdown
// (emphasis, links) is kept as-is except for link targets, which are
// reduced to their text.
func (d *Document) blocks() []block {
	var out []block
	for _, chunk := range strings.Split(strings.ReplaceAll(d.Body, "\r\n", "\n"), "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		for _, line := range strings.Split(chunk, "\n") {
			if h := headingRegex.FindStringSubmatch(line); h != nil {
				out = append(out, block{level: len(h[1]), text: h[2]})
				continue
			}
			out = append(out, block{text: stripInline(line)})
		}
	}
	return out
}

// XHTML renders the body as a minimal XHTML fragment, one element per
// block. This is the EPUB chapter content.
func (d *Document) XHTML() string {
	var sb strings.Builder
	for _, b := range d.blocks() {
		if b.level > 0 {
			level := b.level
			if level > 6 {
				level = 6
			}
			fmt.Fprintf(&sb, "<h%d>%s</h%d>\n", level, html.EscapeString(b.text), level)
			continue
		}
		fmt.Fprintf(&sb, "<p>%s</p>\n", html.EscapeString(b.text))
	}
	return sb.String()
}

// PlainLines renders the body as plain text lines for formats without
// markup, such as the PDF page content.
func (d *Document) PlainLines() []string {
	var lines []string
	for _, b := range d.blocks() {
		lines = append(lines, b.text)
		if b.level > 0 {
			// Blank line after headings keeps the page readable.
			lines = append(lines, "")
		}
	}
	return lines
}

// inlineLinkRegex matches [text](url) markdown links.
var inlineLinkRegex = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)

// stripInline removes markdown inline decoration, leaving readable text.
func stripInline(s string) string {
	s = inlineLinkRegex.ReplaceAllString(s, "$1")
	s = strings.NewReplacer("**", "", "__", "", "`", "").Replace(s)
	return strings.TrimSpace(s)
}

// dateLayouts are tried in order by ParseDate. The last entry is the
// day/month/year form the reports default to.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
	"02/01/2006",
}

// ParseDate parses a calendar date in any of the accepted layouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// trimAll trims whitespace and drops empty entries, preserving order.
func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SplitNames splits a joined name field ("Doe, Jane; Roe, Richard" is
// ambiguous, so only "," and ";" are treated as separators) into a
// trimmed, ordered list.
func SplitNames(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return trimAll(strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';'
	}))
}
