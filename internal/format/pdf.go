package format

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	mustRegister("pdf", "application/pdf", NewPDF)
}

// pdfLinesPerPage bounds how much body text one generated page holds.
const pdfLinesPerPage = 42

// pdfDateLayout is the PDF date string core, after the "D:" prefix.
const pdfDateLayout = "20060102150405"

// PDF reads and writes PDF book files through pdfcpu. Metadata lives in
// the document information dictionary, with the document properties map
// as a fallback for fields the information dictionary cannot carry
// (language in particular).
type PDF struct {
	path string

	mu     sync.Mutex
	loaded bool
	meta   pdfMetadata
}

// pdfMetadata is the subset of PDF document information this package
// cares about, copied out of pdfcpu's info structure on load.
type pdfMetadata struct {
	title        string
	author       string
	keywords     []string
	language     string
	creationDate string
}

// NewPDF returns a PDF format bound to path. The file is not opened
// until a metadata accessor or WriteFromMarkdown needs it.
func NewPDF(path string) Format {
	return &PDF{path: path}
}

// load reads the document information once and caches it.
func (p *PDF) load() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		return nil
	}

	f, err := os.Open(p.path)
	if err != nil {
		return fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer f.Close()

	info, err := api.PDFInfo(f, p.path, nil, false, model.NewDefaultConfiguration())
	if err != nil {
		return fmt.Errorf("failed to read PDF info: %w", err)
	}

	p.meta = pdfMetadata{
		title:        info.Title,
		author:       info.Author,
		keywords:     info.Keywords,
		creationDate: info.CreationDate,
	}

	// Documents written by WriteFromMarkdown keep their metadata in the
	// properties map as well; prefer it when the information dictionary
	// is silent.
	if p.meta.title == "" {
		p.meta.title = info.Properties["Title"]
	}
	if p.meta.author == "" {
		p.meta.author = info.Properties["Author"]
	}
	if len(p.meta.keywords) == 0 {
		p.meta.keywords = SplitNames(info.Properties["Keywords"])
	}
	if p.meta.creationDate == "" {
		p.meta.creationDate = info.Properties["CreationDate"]
	}
	p.meta.language = info.Properties["Language"]

	p.loaded = true
	return nil
}

// Title returns the document title, falling back to the file name stem
// for documents without an information dictionary entry.
func (p *PDF) Title() (string, error) {
	if err := p.load(); err != nil {
		return "", err
	}
	if p.meta.title != "" {
		return p.meta.title, nil
	}
	base := filepath.Base(p.path)
	return strings.TrimSuffix(base, filepath.Ext(base)), nil
}

// Authors returns the author list, splitting the single PDF author
// field on commas and semicolons.
func (p *PDF) Authors() ([]string, error) {
	if err := p.load(); err != nil {
		return nil, err
	}
	return SplitNames(p.meta.author), nil
}

// Language returns the declared language, or "" when the document does
// not carry one. The PDF information dictionary has no language entry,
// so this is only populated for documents written by this package.
func (p *PDF) Language() (string, error) {
	if err := p.load(); err != nil {
		return "", err
	}
	return p.meta.language, nil
}

// Subjects returns the keyword list.
func (p *PDF) Subjects() ([]string, error) {
	if err := p.load(); err != nil {
		return nil, err
	}
	var out []string
	for _, kw := range p.meta.keywords {
		out = append(out, SplitNames(kw)...)
	}
	return out, nil
}

// PublicationDate returns the creation date, or the zero time when the
// document does not declare one.
func (p *PDF) PublicationDate() (time.Time, error) {
	if err := p.load(); err != nil {
		return time.Time{}, err
	}
	return parsePDFDate(p.meta.creationDate), nil
}

// parsePDFDate parses a PDF date string such as "D:20240131120000+01'00'".
// Returns the zero time on any shorter or malformed input.
func parsePDFDate(s string) time.Time {
	s = strings.TrimPrefix(strings.TrimSpace(s), "D:")
	if len(s) > len(pdfDateLayout) {
		s = s[:len(pdfDateLayout)]
	}
	// Dates may be truncated to any prefix boundary (year, month, day).
	for l := len(pdfDateLayout); l >= 4; l -= 2 {
		if len(s) < l {
			continue
		}
		if t, err := time.Parse(pdfDateLayout[:l], s[:l]); err == nil {
			return t
		}
	}
	return time.Time{}
}

// pdfCreateSpec is the page description consumed by pdfcpu's create API.
type pdfCreateSpec struct {
	Paper  string             `json:"paper"`
	Origin string             `json:"origin"`
	Pages  map[string]pdfPage `json:"pages"`
}

type pdfPage struct {
	Content pdfContent `json:"content"`
}

type pdfContent struct {
	Text []pdfText `json:"text"`
}

type pdfText struct {
	Value    string    `json:"value"`
	Font     pdfFont   `json:"font"`
	Position []float64 `json:"position"`
}

type pdfFont struct {
	Name string  `json:"name"`
	Size float64 `json:"size"`
}

// WriteFromMarkdown renders the document into a fresh PDF at the bound
// path, then records its metadata both in the information dictionary
// fields pdfcpu supports and in the document properties map.
func (p *PDF) WriteFromMarkdown(markdown string) error {
	doc := ParseDocument(markdown)
	if err := doc.Validate(); err != nil {
		return err
	}

	spec := buildPDFSpec(doc)
	payload, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConversion, err)
	}

	tmp, err := os.CreateTemp("", "biblioscan-pdf-*.json")
	if err != nil {
		return fmt.Errorf("failed to create page description: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write page description: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write page description: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	if err := api.CreateFile("", tmp.Name(), p.path, conf); err != nil {
		os.Remove(p.path)
		return fmt.Errorf("%w: %v", ErrConversion, err)
	}

	props := map[string]string{"Title": doc.Title}
	if len(doc.Authors) > 0 {
		props["Author"] = strings.Join(doc.Authors, ",")
	}
	if len(doc.Subjects) > 0 {
		props["Keywords"] = strings.Join(doc.Subjects, ",")
	}
	if doc.Language != "" {
		props["Language"] = doc.Language
	}
	if !doc.Published.IsZero() {
		props["CreationDate"] = "D:" + doc.Published.Format(pdfDateLayout)
	}
	if err := api.AddPropertiesFile(p.path, "", props, conf); err != nil {
		os.Remove(p.path)
		return fmt.Errorf("%w: %v", ErrConversion, err)
	}

	// Drop the cached metadata so the next accessor rereads the file.
	p.mu.Lock()
	p.loaded = false
	p.mu.Unlock()
	return nil
}

// buildPDFSpec lays the document out as A4 pages with a title block on
// the first page and the body flowed at pdfLinesPerPage lines per page.
func buildPDFSpec(doc *Document) pdfCreateSpec {
	var head []string
	if doc.Title != "" {
		head = append(head, doc.Title)
	}
	if len(doc.Authors) > 0 {
		head = append(head, strings.Join(doc.Authors, ", "))
	}
	if len(head) > 0 {
		head = append(head, "")
	}

	lines := append(head, doc.PlainLines()...)
	if len(lines) == 0 {
		lines = []string{""}
	}

	pages := make(map[string]pdfPage)
	for i := 0; i < len(lines); i += pdfLinesPerPage {
		end := i + pdfLinesPerPage
		if end > len(lines) {
			end = len(lines)
		}
		pageNr := strconv.Itoa(i/pdfLinesPerPage + 1)
		pages[pageNr] = pdfPage{
			Content: pdfContent{
				Text: []pdfText{{
					Value:    strings.Join(lines[i:end], "\n"),
					Font:     pdfFont{Name: "Helvetica", Size: 12},
					Position: []float64{72, 72},
				}},
			},
		}
	}

	return pdfCreateSpec{Paper: "A4", Origin: "upperLeft", Pages: pages}
}
