package mcqbank

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Emphasis markers wrapped around bold, italic or highlighted text in the
// annotated stream
const (
	EmphasisOpen  = "<<EMPHASIS>>"
	EmphasisClose = "<<END_EMPHASIS>>"
)

// Default chunking of a page range into overlapping windows
const (
	DefaultWindowPages  = 5
	DefaultOverlapPages = 2
)

// Page is the extracted content of one PDF page
type Page struct {
	Number    int         // 1-based
	Lines     [][]RawSpan // spans in reading order, one slice per text line
	Text      string      // plain text, OCR text appended when present
	HasImages bool
}

// Document is a paginated source the extractor can read
type Document interface {
	NumPages() int
	Page(number int) (Page, error)
	Close() error
}

// PDFDocument reads text, fonts and highlight annotations with ledongthuc/pdf
type PDFDocument struct {
	file   *os.File
	reader *pdf.Reader
	path   string
}

// OpenPDF opens a PDF file. A document that cannot be opened is fatal for
// the run.
func OpenPDF(path string) (*PDFDocument, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	return &PDFDocument{file: file, reader: reader, path: path}, nil
}

// Path returns the file the document was opened from
func (d *PDFDocument) Path() string {
	return d.path
}

// NumPages returns the page count
func (d *PDFDocument) NumPages() int {
	return d.reader.NumPage()
}

// Page reads page number (1-based)
func (d *PDFDocument) Page(number int) (Page, error) {
	if number < 1 || number > d.reader.NumPage() {
		return Page{}, fmt.Errorf("page %d out of range 1-%d", number, d.reader.NumPage())
	}

	p := d.reader.Page(number)
	if p.V.IsNull() {
		return Page{Number: number}, nil
	}

	rows, err := p.GetTextByRow()
	if err != nil {
		return Page{}, fmt.Errorf("failed to read text of page %d: %w", number, err)
	}

	highlights := highlightRects(p.V.Key("Annots"))
	page := Page{
		Number:    number,
		Lines:     buildLines(rows, highlights),
		HasImages: hasImageXObject(p.Resources()),
	}
	page.Text = PlainText(page.Lines)
	return page, nil
}

// Close closes the underlying file
func (d *PDFDocument) Close() error {
	return d.file.Close()
}

type rect struct {
	x0, y0, x1, y1 float64
}

func (r rect) contains(x, y float64) bool {
	return x >= r.x0 && x <= r.x1 && y >= r.y0 && y <= r.y1
}

// highlightRects collects the rectangles of /Highlight annotations
func highlightRects(annots pdf.Value) []rect {
	var rects []rect
	for i := 0; i < annots.Len(); i++ {
		a := annots.Index(i)
		if a.Key("Subtype").Name() != "Highlight" {
			continue
		}
		r := a.Key("Rect")
		if r.Len() != 4 {
			continue
		}
		x0, y0, x1, y1 := r.Index(0).Float64(), r.Index(1).Float64(), r.Index(2).Float64(), r.Index(3).Float64()
		if x0 > x1 {
			x0, x1 = x1, x0
		}
		if y0 > y1 {
			y0, y1 = y1, y0
		}
		rects = append(rects, rect{x0, y0, x1, y1})
	}
	return rects
}

func hasImageXObject(resources pdf.Value) bool {
	xobjects := resources.Key("XObject")
	for _, name := range xobjects.Keys() {
		if xobjects.Key(name).Key("Subtype").Name() == "Image" {
			return true
		}
	}
	return false
}

// buildLines turns glyph rows into lines of spans sharing emphasis flags.
// Rows are ordered top to bottom; a space is inserted where glyphs leave a
// visible gap.
func buildLines(rows pdf.Rows, highlights []rect) [][]RawSpan {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Position > rows[j].Position
	})

	lines := make([][]RawSpan, 0, len(rows))
	for _, row := range rows {
		var (
			spans []RawSpan
			cur   RawSpan
			prev  *pdf.Text
		)
		flush := func() {
			if cur.Text != "" {
				spans = append(spans, cur)
			}
			cur = RawSpan{}
		}

		for i := range row.Content {
			g := row.Content[i]
			if g.S == "" {
				continue
			}
			bold, italic := fontStyle(g.Font)
			highlighted := false
			for _, r := range highlights {
				if r.contains(g.X+g.W/2, g.Y+g.FontSize/3) {
					highlighted = true
					break
				}
			}

			if cur.Text != "" && (cur.Bold != bold || cur.Italic != italic || cur.Highlighted != highlighted) {
				flush()
			}
			if prev != nil && needsSpace(*prev, g) {
				if cur.Text == "" && len(spans) > 0 {
					spans[len(spans)-1].Text += " "
				} else {
					cur.Text += " "
				}
			}
			cur.Bold, cur.Italic, cur.Highlighted = bold, italic, highlighted
			cur.Text += g.S
			prev = &row.Content[i]
		}
		flush()

		if len(spans) > 0 {
			lines = append(lines, spans)
		}
	}
	return lines
}

func needsSpace(prev, cur pdf.Text) bool {
	if strings.HasSuffix(prev.S, " ") || strings.HasPrefix(cur.S, " ") {
		return false
	}
	gap := cur.X - (prev.X + prev.W)
	return gap > prev.FontSize*0.15
}

// fontStyle infers bold and italic from a font name such as
// "ABCDEF+Arial-BoldItalicMT"
func fontStyle(font string) (bold, italic bool) {
	name := strings.ToLower(font)
	for _, token := range []string{"bold", "black", "heavy", "semibold", "demi"} {
		if strings.Contains(name, token) {
			bold = true
			break
		}
	}
	italic = strings.Contains(name, "italic") || strings.Contains(name, "oblique")
	return bold, italic
}

// AnnotateLines renders lines as text with emphasized spans wrapped in
// EmphasisOpen and EmphasisClose. Adjacent emphasized spans share one
// marker pair. Every line ends with a newline.
func AnnotateLines(lines [][]RawSpan) string {
	var sb strings.Builder
	for _, line := range lines {
		open := false
		for _, span := range line {
			switch {
			case span.Emphasized() && !open:
				sb.WriteString(EmphasisOpen)
				open = true
			case !span.Emphasized() && open:
				sb.WriteString(EmphasisClose)
				open = false
			}
			sb.WriteString(span.Text)
		}
		if open {
			sb.WriteString(EmphasisClose)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// PlainText renders lines without emphasis markers
func PlainText(lines [][]RawSpan) string {
	var sb strings.Builder
	for _, line := range lines {
		for _, span := range line {
			sb.WriteString(span.Text)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// PageWindows splits r into windows of size pages, each starting overlap
// pages before the previous one ended. The last window ends at r.End.
func PageWindows(r PageRange, size, overlap int) []PageRange {
	if size < 1 {
		size = DefaultWindowPages
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	step := size - overlap

	var windows []PageRange
	for start := r.Start; start < r.End; start += step {
		end := start + size
		if end > r.End {
			end = r.End
		}
		windows = append(windows, PageRange{Start: start, End: end})
		if end >= r.End {
			break
		}
	}
	return windows
}

// Window is one chunk of pages handed to the segmenter
type Window struct {
	Pages PageRange
	Text  string
}

// Extraction is the content of a page range
type Extraction struct {
	Pages     PageRange
	Annotated string // emphasis-annotated text of the whole range
	pages     []Page
}

// Windows groups the extracted pages into overlapping text windows
func (x *Extraction) Windows(size, overlap int) []Window {
	byNumber := make(map[int]Page, len(x.pages))
	for _, p := range x.pages {
		byNumber[p.Number] = p
	}

	var windows []Window
	for _, wr := range PageWindows(x.Pages, size, overlap) {
		var sb strings.Builder
		for n := wr.Start; n < wr.End; n++ {
			sb.WriteString(byNumber[n].Text)
		}
		if text := sb.String(); strings.TrimSpace(text) != "" {
			windows = append(windows, Window{Pages: wr, Text: text})
		}
	}
	return windows
}

// PlainTextSource reads the plain text of a page (1-based)
type PlainTextSource interface {
	Text(page int) (string, error)
}

// Extractor reads a page range into annotated and plain text
type Extractor struct {
	doc      Document
	ocr      *PageOCR        // nil disables OCR
	fallback PlainTextSource // used when doc cannot read a page
}

// NewExtractor creates an extractor over doc. ocr may be nil.
func NewExtractor(doc Document, ocr *PageOCR) *Extractor {
	return &Extractor{doc: doc, ocr: ocr}
}

// SetTextFallback sets a second reader for pages doc fails on. Fallback
// text carries no emphasis.
func (e *Extractor) SetTextFallback(src PlainTextSource) {
	e.fallback = src
}

// ClampRange fits r to the document: start at least 1, end at most one past
// the last page
func ClampRange(r PageRange, numPages int) (PageRange, error) {
	if r.Start < 1 {
		r.Start = 1
	}
	if r.End > numPages+1 {
		log.Printf("%s End page %d > total pages %d, adjusting to %d", markWarn, r.End, numPages, numPages+1)
		r.End = numPages + 1
	}
	if r.Start > numPages {
		return r, fmt.Errorf("start page %d > total pages %d", r.Start, numPages)
	}
	if r.Start >= r.End {
		return r, fmt.Errorf("start page %d must be < end page %d", r.Start, r.End)
	}
	return r, nil
}

// Extract reads every page of r. Pages that fail to read are logged and
// left empty.
func (e *Extractor) Extract(ctx context.Context, r PageRange) (*Extraction, error) {
	r, err := ClampRange(r, e.doc.NumPages())
	if err != nil {
		return nil, err
	}

	x := &Extraction{Pages: r}
	var annotated strings.Builder

	for n := r.Start; n < r.End; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := e.doc.Page(n)
		if err != nil {
			log.Printf("%s Page %d: %v", markWarn, n, err)
			page = e.fallbackPage(n)
		}

		if e.ocr != nil && (page.HasImages || strings.TrimSpace(page.Text) == "") {
			text, err := e.ocr.Recognize(ctx, n)
			if err != nil {
				log.Printf("%s OCR of page %d failed: %v", markWarn, n, err)
			} else if text != "" {
				VerboseLog("OCR added %d characters to page %d", len(text), n)
				page.Text += text + "\n"
			}
		}

		annotated.WriteString(AnnotateLines(page.Lines))
		x.pages = append(x.pages, page)
	}

	x.Annotated = annotated.String()
	return x, nil
}

func (e *Extractor) fallbackPage(n int) Page {
	page := Page{Number: n}
	if e.fallback == nil {
		return page
	}
	text, err := e.fallback.Text(n)
	if err != nil {
		log.Printf("%s Fallback text of page %d failed: %v", markWarn, n, err)
		return page
	}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			page.Lines = append(page.Lines, []RawSpan{{Text: line}})
		}
	}
	page.Text = PlainText(page.Lines)
	return page
}

// PlainText returns the plain text of the whole range, OCR text included
func (x *Extraction) PlainText() string {
	var sb strings.Builder
	for _, p := range x.pages {
		sb.WriteString(p.Text)
	}
	return sb.String()
}
