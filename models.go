package mcqbank

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Subject is one of the fixed medical categories a question is filed under
type Subject string

const (
	SubjectSurgery  Subject = "Surgery"
	SubjectMedicine Subject = "Medicine"
	SubjectGynae    Subject = "Gynae"
	SubjectPaeds    Subject = "Paeds"

	// SubjectUnknown marks a question the classifier could not place.
	// It is never written to the database.
	SubjectUnknown Subject = "Unknown"
)

// Subjects lists the storable subjects in classifier keyword order
var Subjects = []Subject{SubjectSurgery, SubjectMedicine, SubjectGynae, SubjectPaeds}

// Valid reports whether s can be stored
func (s Subject) Valid() bool {
	for _, known := range Subjects {
		if s == known {
			return true
		}
	}
	return false
}

// OptionLetters are the option keys a stored question can carry
var OptionLetters = []string{"A", "B", "C", "D"}

// RawSpan is a run of page text sharing the same emphasis flags
type RawSpan struct {
	Text        string
	Bold        bool
	Italic      bool
	Highlighted bool
}

// Emphasized reports whether the span should be wrapped in emphasis markers
func (s RawSpan) Emphasized() bool {
	return s.Bold || s.Italic || s.Highlighted
}

// CandidateMCQ is one question as reported for a single text chunk.
// Several candidates can share a question number when chunks overlap.
type CandidateMCQ struct {
	QuestionNumber string            `json:"question_number"`
	QuestionText   string            `json:"question_text"`
	Options        map[string]string `json:"options"`
	CorrectAnswer  string            `json:"correct_answer,omitempty"` // empty when unknown
}

// UnmarshalJSON accepts the loose shapes LLMs produce: numeric question
// numbers, null options and "null" answers.
func (c *CandidateMCQ) UnmarshalJSON(data []byte) error {
	var raw struct {
		QuestionNumber any                `json:"question_number"`
		QuestionText   *string            `json:"question_text"`
		Options        map[string]*string `json:"options"`
		CorrectAnswer  *string            `json:"correct_answer"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = CandidateMCQ{Options: make(map[string]string, len(raw.Options))}

	switch n := raw.QuestionNumber.(type) {
	case nil:
	case string:
		c.QuestionNumber = strings.TrimSpace(n)
	case float64:
		c.QuestionNumber = fmt.Sprintf("%g", n)
	default:
		c.QuestionNumber = fmt.Sprint(n)
	}

	if raw.QuestionText != nil {
		c.QuestionText = strings.TrimSpace(*raw.QuestionText)
	}

	for key, value := range raw.Options {
		letter := NormalizeLetter(key)
		if letter == "" {
			continue
		}
		text := ""
		if value != nil && *value != "null" {
			text = strings.TrimSpace(*value)
		}
		c.Options[letter] = text
	}

	if raw.CorrectAnswer != nil {
		c.CorrectAnswer = NormalizeLetter(*raw.CorrectAnswer)
	}
	return nil
}

// NormalizeLetter turns "b", " B) " or "(b)" into "B". Anything that is not
// a single letter, including "null", yields "".
func NormalizeLetter(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
		return ""
	}
	s = strings.Trim(s, "()[].:-) ")
	if len(s) != 1 {
		return ""
	}
	letter := strings.ToUpper(s)
	if letter[0] < 'A' || letter[0] > 'Z' {
		return ""
	}
	return letter
}

// QuestionStatus tracks where a question is in the ingestion pipeline
type QuestionStatus string

const (
	StatusExtracted          QuestionStatus = "extracted"
	StatusMerged             QuestionStatus = "merged"
	StatusExplained          QuestionStatus = "explained"
	StatusExplanationSkipped QuestionStatus = "explanation_skipped"
	StatusClassified         QuestionStatus = "classified"
	StatusUnclassified       QuestionStatus = "unclassified"
	StatusInserted           QuestionStatus = "inserted"
	StatusUpdated            QuestionStatus = "updated"
	StatusRejected           QuestionStatus = "rejected"
	StatusFailed             QuestionStatus = "failed"
)

// MergedMCQ is one physical question within a single extraction run
type MergedMCQ struct {
	QuestionNumber string            `json:"question_number"`
	QuestionText   string            `json:"question_text"`
	Options        map[string]string `json:"options"`
	CorrectAnswer  string            `json:"correct_answer,omitempty"`
	Explanation    string            `json:"explanation,omitempty"`
	Subject        Subject           `json:"subject,omitempty"`
	Status         QuestionStatus    `json:"status,omitempty"`
}

// HasResolvableAnswer reports whether the correct answer names a present option
func (m *MergedMCQ) HasResolvableAnswer() bool {
	if m.CorrectAnswer == "" {
		return false
	}
	_, ok := m.Options[m.CorrectAnswer]
	return ok
}

// PersistedMCQ is a row of a month table
type PersistedMCQ struct {
	ID                 int64             `json:"id"`
	QuestionNumber     string            `json:"question_number"`
	QuestionText       string            `json:"question_text"`
	NormalizedQuestion string            `json:"-"`
	Options            map[string]string `json:"options"`
	CorrectAnswer      string            `json:"correct_answer"`
	Explanation        string            `json:"explanation,omitempty"`
	Subject            Subject           `json:"subject"`
	SourceFile         string            `json:"source_file,omitempty"`
	ExamDate           *time.Time        `json:"exam_date,omitempty"`
	AppearanceCount    int               `json:"appearance_count"`
	LastAppearance     *time.Time        `json:"last_appearance,omitempty"`
	ExamTable          string            `json:"exam_table,omitempty"`
}

// HistoryEntry records one exam a stored question appeared in
type HistoryEntry struct {
	ExamTable  string    `json:"exam_table"`
	MCQID      int64     `json:"mcq_id"`
	ExamDate   time.Time `json:"exam_date"`
	SourceFile string    `json:"source_file"`
}

// PageRange is a 1-indexed page range with an exclusive end
type PageRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of pages in the range
func (r PageRange) Len() int {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

func (r PageRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End-1)
}
