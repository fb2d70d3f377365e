package mcqbank

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(m *MergedMCQ)
		field  string // empty when valid
	}{
		{"valid", func(m *MergedMCQ) {}, ""},
		{"empty option allowed", func(m *MergedMCQ) { m.Options["D"] = "" }, ""},
		{"short text", func(m *MergedMCQ) { m.QuestionText = "Too short" }, "question_text"},
		{"blank text", func(m *MergedMCQ) { m.QuestionText = "   " }, "question_text"},
		{"missing answer", func(m *MergedMCQ) { m.CorrectAnswer = "" }, "correct_answer"},
		{"answer E not an option", func(m *MergedMCQ) { m.CorrectAnswer = "E" }, "correct_answer"},
		{"answer E present as option", func(m *MergedMCQ) {
			m.Options["E"] = "Hernia"
			m.CorrectAnswer = "E"
		}, "correct_answer"},
		{"answer names a missing option", func(m *MergedMCQ) {
			delete(m.Options, "C")
			m.CorrectAnswer = "C"
		}, "correct_answer"},
		{"one character option", func(m *MergedMCQ) { m.Options["B"] = "x" }, "option_b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := sampleMCQ("5", "Which condition causes right iliac fossa pain?", "B", SubjectSurgery)
			tt.modify(m)

			err := Validate(m)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidMCQ) {
				t.Fatalf("expected ErrInvalidMCQ, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if verr.Field != tt.field || verr.QuestionNumber != "5" {
				t.Fatalf("unexpected error %+v", verr)
			}
		})
	}
}

func TestValidateReasons(t *testing.T) {
	tests := []struct {
		name   string
		modify func(m *MergedMCQ)
		reason string
	}{
		{"padded short text", func(m *MergedMCQ) { m.QuestionText = "   Short?   " }, "too short (6 < 10 characters)"},
		{"accented text counted by character", func(m *MergedMCQ) { m.QuestionText = "Ménétrier?" }, ""},
		{"answer not among options", func(m *MergedMCQ) {
			delete(m.Options, "C")
			m.CorrectAnswer = "C"
		}, `"C" is not one of the options`},
		{"answer outside A-D", func(m *MergedMCQ) { m.CorrectAnswer = "E" }, `"E" is outside A-D`},
		{"padded one character option", func(m *MergedMCQ) { m.Options["C"] = "  y " }, "too short (1 < 2 characters)"},
		{"blank option allowed", func(m *MergedMCQ) { m.Options["A"] = "   " }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := sampleMCQ("9", "Which condition causes right iliac fossa pain?", "B", SubjectSurgery)
			tt.modify(m)

			err := Validate(m)
			if tt.reason == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Reason != tt.reason {
				t.Fatalf("reason = %q, want %q", verr.Reason, tt.reason)
			}
		})
	}
}
