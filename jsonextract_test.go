package mcqbank

import (
	"errors"
	"testing"
)

func TestExtractJSONPayload(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"list with prose", "Here are the questions:\n[{\"a\": 1}]\nHope this helps!", `[{"a": 1}]`, false},
		{"fenced", "```json\n[1, 2]\n```", `[1, 2]`, false},
		{"object", `Result: {"a": {"b": 2}} done`, `{"a": {"b": 2}}`, false},
		{"no brackets", "I could not find any questions.", "", true},
		{"reversed", "] nothing [", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONPayload(tt.content)
			if tt.wantErr {
				if !errors.Is(err, ErrNoJSON) {
					t.Fatalf("expected ErrNoJSON, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseCandidatesLooseShapes(t *testing.T) {
	response := `Sure! [
	  {"question_number": 12, "question_text": " 12. Which artery? ", "options": {"a": "Radial", "B": "Ulnar", "C": null, "D": "null"}, "correct_answer": "b"},
	  {"question_number": "13", "question_text": "Which nerve?", "options": {"A": "Median"}, "correct_answer": null},
	  {"question_number": "14", "question_text": "Which vein?", "options": {}, "correct_answer": "null"}
	]`

	got, err := ParseCandidates(response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}

	first := got[0]
	if first.QuestionNumber != "12" || first.QuestionText != "12. Which artery?" {
		t.Fatalf("unexpected first candidate: %+v", first)
	}
	if first.Options["A"] != "Radial" || first.Options["C"] != "" || first.Options["D"] != "" {
		t.Fatalf("unexpected options: %+v", first.Options)
	}
	if first.CorrectAnswer != "B" {
		t.Fatalf("expected answer B, got %q", first.CorrectAnswer)
	}
	if got[1].CorrectAnswer != "" || got[2].CorrectAnswer != "" {
		t.Fatalf("null answers should be empty: %q %q", got[1].CorrectAnswer, got[2].CorrectAnswer)
	}
}

func TestParseCandidatesSingleObject(t *testing.T) {
	got, err := ParseCandidates(`{"question_number": "7", "question_text": "Which bone?", "options": {"A": "Femur"}, "correct_answer": "A"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].QuestionNumber != "7" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestParseCandidatesMalformed(t *testing.T) {
	_, err := ParseCandidates(`[{"question_number": "7",]`)
	if err == nil || errors.Is(err, ErrNoJSON) {
		t.Fatalf("expected a parse error, got %v", err)
	}
}
