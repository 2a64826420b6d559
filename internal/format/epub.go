package format

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

func init() {
	mustRegister("epub", "application/epub+zip", NewEPUB)
}

// epubContainerPath is the fixed location of the OCF container document.
const epubContainerPath = "META-INF/container.xml"

// EPUB reads and writes EPUB book files. Reading follows the OCF
// container chain (mimetype, container.xml, OPF package document);
// writing produces a minimal single-chapter EPUB with Dublin Core
// metadata.
type EPUB struct {
	path string

	mu     sync.Mutex
	loaded bool
	meta   epubMetadata
}

type epubMetadata struct {
	title    string
	creators []string
	language string
	subjects []string
	date     string
}

// epubContainer mirrors META-INF/container.xml.
type epubContainer struct {
	XMLName   xml.Name `xml:"container"`
	RootFiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

// epubPackage mirrors the metadata section of the OPF package document.
// Element names match both EPUB 2 (dc: prefixed) and EPUB 3 documents
// because encoding/xml matches local names regardless of prefix.
type epubPackage struct {
	XMLName  xml.Name `xml:"package"`
	Metadata struct {
		Title   []string `xml:"title"`
		Creator []struct {
			Value string `xml:",chardata"`
			Role  string `xml:"role,attr"`
		} `xml:"creator"`
		Language []string `xml:"language"`
		Subject  []string `xml:"subject"`
		Date     []string `xml:"date"`
	} `xml:"metadata"`
}

// NewEPUB returns an EPUB format bound to path. The file is not opened
// until a metadata accessor or WriteFromMarkdown needs it.
func NewEPUB(path string) Format {
	return &EPUB{path: path}
}

// load parses the container chain once and caches the package metadata.
func (e *EPUB) load() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded {
		return nil
	}

	r, err := zip.OpenReader(e.path)
	if err != nil {
		return fmt.Errorf("failed to open EPUB file: %w", err)
	}
	defer r.Close()

	var container epubContainer
	if err := readZipXML(&r.Reader, epubContainerPath, &container); err != nil {
		return fmt.Errorf("failed to read EPUB container: %w", err)
	}
	if len(container.RootFiles) == 0 {
		return fmt.Errorf("EPUB container declares no package document")
	}

	var pkg epubPackage
	if err := readZipXML(&r.Reader, container.RootFiles[0].FullPath, &pkg); err != nil {
		return fmt.Errorf("failed to read EPUB package document: %w", err)
	}

	if len(pkg.Metadata.Title) > 0 {
		e.meta.title = strings.TrimSpace(pkg.Metadata.Title[0])
	}
	for _, c := range pkg.Metadata.Creator {
		if v := strings.TrimSpace(c.Value); v != "" {
			e.meta.creators = append(e.meta.creators, v)
		}
	}
	if len(pkg.Metadata.Language) > 0 {
		e.meta.language = strings.TrimSpace(pkg.Metadata.Language[0])
	}
	e.meta.subjects = trimAll(pkg.Metadata.Subject)
	if len(pkg.Metadata.Date) > 0 {
		e.meta.date = strings.TrimSpace(pkg.Metadata.Date[0])
	}

	e.loaded = true
	return nil
}

// Title returns the package title, falling back to the file name stem.
func (e *EPUB) Title() (string, error) {
	if err := e.load(); err != nil {
		return "", err
	}
	if e.meta.title != "" {
		return e.meta.title, nil
	}
	base := filepath.Base(e.path)
	return strings.TrimSuffix(base, filepath.Ext(base)), nil
}

// Authors returns the dc:creator entries in document order.
func (e *EPUB) Authors() ([]string, error) {
	if err := e.load(); err != nil {
		return nil, err
	}
	return e.meta.creators, nil
}

// Language returns the first dc:language entry.
func (e *EPUB) Language() (string, error) {
	if err := e.load(); err != nil {
		return "", err
	}
	return e.meta.language, nil
}

// Subjects returns the dc:subject entries in document order.
func (e *EPUB) Subjects() ([]string, error) {
	if err := e.load(); err != nil {
		return nil, err
	}
	return e.meta.subjects, nil
}

// PublicationDate returns the parsed dc:date, or the zero time when the
// package declares none or the value is unparsable.
func (e *EPUB) PublicationDate() (time.Time, error) {
	if err := e.load(); err != nil {
		return time.Time{}, err
	}
	t, err := ParseDate(e.meta.date)
	if err != nil {
		return time.Time{}, nil
	}
	return t, nil
}

// readZipXML decodes the named archive member into v.
func readZipXML(r *zip.Reader, name string, v any) error {
	for _, f := range r.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		return xml.NewDecoder(rc).Decode(v)
	}
	return fmt.Errorf("%s: %w", name, os.ErrNotExist)
}

// WriteFromMarkdown builds a fresh single-chapter EPUB at the bound
// path. The archive is assembled in a temporary file and renamed into
// place so a failed write never leaves a truncated book behind.
func (e *EPUB) WriteFromMarkdown(markdown string) error {
	doc := ParseDocument(markdown)
	if err := doc.Validate(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(e.path), ".epub-*")
	if err != nil {
		return fmt.Errorf("failed to create EPUB file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := writeEPUB(tmp, doc); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write EPUB file: %w", err)
	}
	if err := os.Rename(tmpPath, e.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace EPUB file: %w", err)
	}

	e.mu.Lock()
	e.loaded = false
	e.meta = epubMetadata{}
	e.mu.Unlock()
	return nil
}

// writeEPUB writes the OCF archive: the mimetype member first and
// uncompressed as the OCF spec requires, then the container, package
// document, and chapter.
func writeEPUB(w io.Writer, doc *Document) error {
	zw := zip.NewWriter(w)

	mt, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConversion, err)
	}
	if _, err := mt.Write([]byte("application/epub+zip")); err != nil {
		return fmt.Errorf("%w: %v", ErrConversion, err)
	}

	members := []struct {
		name string
		body string
	}{
		{epubContainerPath, epubContainerXML},
		{"OEBPS/content.opf", buildOPF(doc)},
		{"OEBPS/text.xhtml", buildChapter(doc)},
	}
	for _, m := range members {
		f, err := zw.Create(m.name)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConversion, err)
		}
		if _, err := f.Write([]byte(m.body)); err != nil {
			return fmt.Errorf("%w: %v", ErrConversion, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrConversion, err)
	}
	return nil
}

const epubContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`

// buildOPF renders the package document with the document's Dublin Core
// metadata.
func buildOPF(doc *Document) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" unique-identifier="bookid" version="2.0">
  <metadata>
`)
	fmt.Fprintf(&sb, "    <dc:identifier id=\"bookid\">%s</dc:identifier>\n", escapeXML(doc.Title))
	fmt.Fprintf(&sb, "    <dc:title>%s</dc:title>\n", escapeXML(doc.Title))
	for _, a := range doc.Authors {
		fmt.Fprintf(&sb, "    <dc:creator>%s</dc:creator>\n", escapeXML(a))
	}
	lang := doc.Language
	if lang == "" {
		lang = "en"
	}
	fmt.Fprintf(&sb, "    <dc:language>%s</dc:language>\n", escapeXML(lang))
	for _, s := range doc.Subjects {
		fmt.Fprintf(&sb, "    <dc:subject>%s</dc:subject>\n", escapeXML(s))
	}
	if !doc.Published.IsZero() {
		fmt.Fprintf(&sb, "    <dc:date>%s</dc:date>\n", doc.Published.Format("2006-01-02"))
	}
	sb.WriteString(`  </metadata>
  <manifest>
    <item id="text" href="text.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine>
    <itemref idref="text"/>
  </spine>
</package>
`)
	return sb.String()
}

// buildChapter renders the body as the single XHTML spine item.
func buildChapter(doc *Document) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>`)
	sb.WriteString(escapeXML(doc.Title))
	sb.WriteString("</title></head>\n<body>\n")
	sb.WriteString(doc.XHTML())
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}

// escapeXML escapes the five predefined XML entities.
func escapeXML(s string) string {
	return strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	).Replace(s)
}
