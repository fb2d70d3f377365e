package mcqbank

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// scriptedGenerator answers prompts by the first matching substring and
// records every prompt it sees
type scriptedGenerator struct {
	mu      sync.Mutex
	replies []scriptedReply
	prompts []string
}

type scriptedReply struct {
	contains string
	text     string
	err      error
}

func (g *scriptedGenerator) on(contains, text string) *scriptedGenerator {
	g.replies = append(g.replies, scriptedReply{contains: contains, text: text})
	return g
}

func (g *scriptedGenerator) fail(contains string, err error) *scriptedGenerator {
	g.replies = append(g.replies, scriptedReply{contains: contains, err: err})
	return g
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	for _, r := range g.replies {
		if strings.Contains(prompt, r.contains) {
			return r.text, r.err
		}
	}
	return "", fmt.Errorf("no scripted reply for prompt %.40q", prompt)
}

func (g *scriptedGenerator) calls(contains string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, p := range g.prompts {
		if strings.Contains(p, contains) {
			n++
		}
	}
	return n
}

// fakeDocument serves prepared pages
type fakeDocument struct {
	pages  map[int]Page
	count  int
	failOn map[int]bool
}

func newFakeDocument(pages ...Page) *fakeDocument {
	doc := &fakeDocument{pages: make(map[int]Page), failOn: make(map[int]bool)}
	for _, p := range pages {
		doc.pages[p.Number] = p
		if p.Number > doc.count {
			doc.count = p.Number
		}
	}
	return doc
}

func (d *fakeDocument) NumPages() int { return d.count }

func (d *fakeDocument) Page(n int) (Page, error) {
	if d.failOn[n] {
		return Page{}, fmt.Errorf("page %d is damaged", n)
	}
	return d.pages[n], nil
}

func (d *fakeDocument) Close() error { return nil }

// textPage builds a page whose lines are plain text, except spans written
// as *text* which are bold
func textPage(number int, lines ...string) Page {
	p := Page{Number: number}
	for _, line := range lines {
		var spans []RawSpan
		for i, part := range strings.Split(line, "*") {
			if part == "" {
				continue
			}
			spans = append(spans, RawSpan{Text: part, Bold: i%2 == 1})
		}
		p.Lines = append(p.Lines, spans)
	}
	p.Text = PlainText(p.Lines)
	return p
}

func openTestDB(t *testing.T, tables ...string) *DB {
	t.Helper()
	db, err := OpenDB("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.CreateTables(context.Background(), tables...); err != nil {
		t.Fatalf("create tables: %v", err)
	}
	return db
}

func sampleMCQ(number, text, answer string, subject Subject) *MergedMCQ {
	return &MergedMCQ{
		QuestionNumber: number,
		QuestionText:   text,
		Options: map[string]string{
			"A": "Cholecystitis",
			"B": "Appendicitis",
			"C": "Pancreatitis",
			"D": "Diverticulitis",
		},
		CorrectAnswer: answer,
		Explanation:   "<b>B) Appendicitis</b><br><br>Inflammation of the appendix.<br><br>It explains the right iliac fossa pain.",
		Subject:       subject,
	}
}
