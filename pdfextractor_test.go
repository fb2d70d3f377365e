package mcqbank

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"
)

func TestFontStyle(t *testing.T) {
	tests := []struct {
		font         string
		bold, italic bool
	}{
		{"ABCDEF+Arial-BoldItalicMT", true, true},
		{"TimesNewRomanPS-BoldMT", true, false},
		{"Helvetica-Oblique", false, true},
		{"Calibri-Semibold", true, false},
		{"Helvetica", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		bold, italic := fontStyle(tt.font)
		if bold != tt.bold || italic != tt.italic {
			t.Errorf("fontStyle(%q) = %v, %v, want %v, %v", tt.font, bold, italic, tt.bold, tt.italic)
		}
	}
}

func TestNeedsSpace(t *testing.T) {
	prev := pdf.Text{S: "Which", X: 10, W: 30, FontSize: 10}
	if !needsSpace(prev, pdf.Text{S: "is", X: 45}) {
		t.Error("expected a space across a visible gap")
	}
	if needsSpace(prev, pdf.Text{S: "s", X: 40.5}) {
		t.Error("expected no space between touching glyphs")
	}
	if needsSpace(pdf.Text{S: "Which ", X: 10, W: 30, FontSize: 10}, pdf.Text{S: "is", X: 45}) {
		t.Error("expected no space after trailing space")
	}
}

func TestRectContains(t *testing.T) {
	r := rect{10, 10, 50, 30}
	if !r.contains(10, 30) || !r.contains(25, 20) {
		t.Error("expected point inside")
	}
	if r.contains(51, 20) || r.contains(25, 9) {
		t.Error("expected point outside")
	}
}

func TestBuildLines(t *testing.T) {
	rows := pdf.Rows{
		{Position: 680, Content: pdf.TextHorizontal{
			{Font: "Helvetica", FontSize: 10, X: 10, Y: 680, W: 20, S: "Next"},
		}},
		{Position: 700, Content: pdf.TextHorizontal{
			{Font: "Helvetica", FontSize: 10, X: 10, Y: 700, W: 30, S: "Which"},
			{Font: "Helvetica", FontSize: 10, X: 45, Y: 700, W: 10, S: "is"},
			{Font: "Helvetica-Bold", FontSize: 10, X: 60, Y: 700, W: 30, S: "Acute"},
			{Font: "Helvetica", FontSize: 10, X: 95, Y: 700, W: 0, S: ""},
		}},
		{Position: 660, Content: pdf.TextHorizontal{
			{Font: "Helvetica", FontSize: 12, X: 10, Y: 660, W: 20, S: "Marked"},
		}},
	}
	highlights := []rect{{0, 650, 100, 670}}

	got := buildLines(rows, highlights)
	want := [][]RawSpan{
		{{Text: "Which is "}, {Text: "Acute", Bold: true}},
		{{Text: "Next"}},
		{{Text: "Marked", Highlighted: true}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("buildLines() =\n%#v\nwant\n%#v", got, want)
	}
}

func TestAnnotateLines(t *testing.T) {
	lines := [][]RawSpan{
		{{Text: "1. Which is "}, {Text: "most", Bold: true}, {Text: " likely", Italic: true}, {Text: "?"}},
		{{Text: "B) Appendicitis", Highlighted: true}},
		{{Text: "plain"}},
	}

	want := "1. Which is " + EmphasisOpen + "most likely" + EmphasisClose + "?\n" +
		EmphasisOpen + "B) Appendicitis" + EmphasisClose + "\n" +
		"plain\n"
	if got := AnnotateLines(lines); got != want {
		t.Fatalf("AnnotateLines() =\n%q\nwant\n%q", got, want)
	}
	if got := PlainText(lines); got != "1. Which is most likely?\nB) Appendicitis\nplain\n" {
		t.Fatalf("PlainText() = %q", got)
	}
}

func TestPageWindows(t *testing.T) {
	tests := []struct {
		name          string
		r             PageRange
		size, overlap int
		want          []PageRange
	}{
		{"overlapping", PageRange{1, 11}, 5, 2, []PageRange{{1, 6}, {4, 9}, {7, 11}}},
		{"exam range", PageRange{438, 452}, 5, 2, []PageRange{{438, 443}, {441, 446}, {444, 449}, {447, 452}}},
		{"short range", PageRange{1, 3}, 5, 2, []PageRange{{1, 3}}},
		{"overlap too large", PageRange{1, 11}, 5, 5, []PageRange{{1, 6}, {6, 11}}},
		{"empty", PageRange{5, 5}, 5, 2, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PageWindows(tt.r, tt.size, tt.overlap); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("PageWindows() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClampRange(t *testing.T) {
	got, err := ClampRange(PageRange{0, 10}, 5)
	if err != nil || got != (PageRange{1, 6}) {
		t.Fatalf("got %v, %v", got, err)
	}
	if _, err := ClampRange(PageRange{7, 9}, 5); err == nil {
		t.Error("expected start past the end to fail")
	}
	if _, err := ClampRange(PageRange{3, 3}, 5); err == nil {
		t.Error("expected empty range to fail")
	}
}

type fakeTextSource map[int]string

func (f fakeTextSource) Text(page int) (string, error) {
	text, ok := f[page]
	if !ok {
		return "", errors.New("no text")
	}
	return text, nil
}

type fakeRenderer struct{ pages []int }

func (r *fakeRenderer) RenderPNG(page int, dpi float64) ([]byte, error) {
	r.pages = append(r.pages, page)
	return []byte("png"), nil
}

type fakeRecognizer struct {
	text      string
	err       error
	filenames []string
}

func (r *fakeRecognizer) Recognize(_ context.Context, image []byte, filename string) (string, error) {
	r.filenames = append(r.filenames, filename)
	return r.text, r.err
}

func TestExtract(t *testing.T) {
	scan := textPage(3, "3. Which drug?")
	scan.HasImages = true
	doc := newFakeDocument(
		textPage(1, "1. Which is the *most likely* diagnosis?"),
		textPage(2, "unreadable"),
		scan,
	)
	doc.failOn[2] = true

	renderer := &fakeRenderer{}
	recognizer := &fakeRecognizer{text: "A) Aspirin"}
	e := NewExtractor(doc, NewPageOCR(renderer, recognizer, 0))
	e.SetTextFallback(fakeTextSource{2: "2. Fallback question\n\n  A) One  "})

	x, err := e.Extract(context.Background(), PageRange{1, 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if x.Pages != (PageRange{1, 4}) {
		t.Errorf("expected clamped range 1-3, got %v", x.Pages)
	}
	wantAnnotated := "1. Which is the " + EmphasisOpen + "most likely" + EmphasisClose + " diagnosis?\n" +
		"2. Fallback question\nA) One\n" +
		"3. Which drug?\n"
	if x.Annotated != wantAnnotated {
		t.Errorf("Annotated =\n%q\nwant\n%q", x.Annotated, wantAnnotated)
	}
	if !strings.Contains(x.PlainText(), "3. Which drug?\nA) Aspirin\n") {
		t.Errorf("expected OCR text in plain text, got %q", x.PlainText())
	}
	if !reflect.DeepEqual(recognizer.filenames, []string{"page-0003.png"}) || !reflect.DeepEqual(renderer.pages, []int{3}) {
		t.Errorf("expected OCR of page 3 only, got %v %v", recognizer.filenames, renderer.pages)
	}
}

func TestExtractSurvivesOCRFailure(t *testing.T) {
	scan := textPage(1, "1. Question")
	scan.HasImages = true
	e := NewExtractor(newFakeDocument(scan), NewPageOCR(&fakeRenderer{}, &fakeRecognizer{err: errors.New("service down")}, 0))

	x, err := e.Extract(context.Background(), PageRange{1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if x.PlainText() != "1. Question\n" {
		t.Fatalf("unexpected text %q", x.PlainText())
	}
}

func TestExtractHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := NewExtractor(newFakeDocument(textPage(1, "text")), nil)
	if _, err := e.Extract(ctx, PageRange{1, 2}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancel, got %v", err)
	}
}

func TestExtractionWindows(t *testing.T) {
	doc := newFakeDocument(
		textPage(1, "page one"),
		Page{Number: 2},
		textPage(3, "page three"),
		Page{Number: 4},
		Page{Number: 5},
	)
	x, err := NewExtractor(doc, nil).Extract(context.Background(), PageRange{1, 6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	windows := x.Windows(2, 1)
	var got []string
	for _, w := range windows {
		got = append(got, w.Pages.String()+"="+w.Text)
	}
	want := []string{"1-2=page one\n", "2-3=page three\n", "3-4=page three\n"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Windows() = %q, want %q", got, want)
	}
}
