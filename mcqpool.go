package mcqbank

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// MCQPool merges the candidates reported by overlapping chunks into one
// record per question number
type MCQPool struct {
	mu        sync.RWMutex
	questions map[string]*MergedMCQ
	order     []string // question numbers in first-seen order
	logger    *LLMLogger
}

// NewMCQPool creates an empty pool
func NewMCQPool(logger *LLMLogger) *MCQPool {
	return &MCQPool{
		questions: make(map[string]*MergedMCQ),
		order:     make([]string, 0),
		logger:    logger,
	}
}

// Add folds a candidate into the pool. The first candidate for a number
// seeds the record. Later ones only fill gaps: the answer if still unset,
// options that are missing or empty, and the question text if it has
// strictly more characters.
func (p *MCQPool) Add(c CandidateMCQ) {
	number := strings.TrimSpace(c.QuestionNumber)

	p.mu.Lock()
	defer p.mu.Unlock()

	existing, ok := p.questions[number]
	if !ok {
		merged := &MergedMCQ{
			QuestionNumber: number,
			QuestionText:   c.QuestionText,
			Options:        make(map[string]string, len(c.Options)),
			CorrectAnswer:  c.CorrectAnswer,
			Status:         StatusExtracted,
		}
		for letter, text := range c.Options {
			merged.Options[letter] = text
		}
		p.questions[number] = merged
		p.order = append(p.order, number)
		return
	}

	if existing.CorrectAnswer == "" && c.CorrectAnswer != "" {
		existing.CorrectAnswer = c.CorrectAnswer
		VerboseLog("Question %s: answer %s taken from a later chunk", number, c.CorrectAnswer)
	}
	for letter, text := range c.Options {
		if current, ok := existing.Options[letter]; !ok || current == "" {
			existing.Options[letter] = text
		}
	}
	if utf8.RuneCountInString(c.QuestionText) > utf8.RuneCountInString(existing.QuestionText) {
		existing.QuestionText = c.QuestionText
	}
}

// AddAll adds candidates in order
func (p *MCQPool) AddAll(candidates []CandidateMCQ) {
	for _, c := range candidates {
		p.Add(c)
	}
}

// Size returns the number of distinct questions
func (p *MCQPool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.order)
}

// IsEmpty returns true if nothing has been added
func (p *MCQPool) IsEmpty() bool {
	return p.Size() == 0
}

// Merged returns the merged questions with their number prefix stripped,
// sorted by the digits of the question number. Numbers without digits
// sort last; ties keep first-seen order.
func (p *MCQPool) Merged() []*MergedMCQ {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*MergedMCQ, 0, len(p.order))
	for _, number := range p.order {
		q := p.questions[number]
		merged := &MergedMCQ{
			QuestionNumber: q.QuestionNumber,
			QuestionText:   StripQuestionNumber(q.QuestionText, q.QuestionNumber),
			Options:        make(map[string]string, len(q.Options)),
			CorrectAnswer:  q.CorrectAnswer,
			Status:         StatusMerged,
		}
		for letter, text := range q.Options {
			merged.Options[letter] = text
		}
		p.logger.LogQuestionResult(merged.QuestionNumber, StatusMerged, answerSummary(merged))
		out = append(out, merged)
	}

	SortByQuestionNumber(out)
	return out
}

// SortByQuestionNumber orders questions by the number formed from the
// digits of their question number
func SortByQuestionNumber(mcqs []*MergedMCQ) {
	sort.SliceStable(mcqs, func(i, j int) bool {
		return questionNumberKey(mcqs[i].QuestionNumber) < questionNumberKey(mcqs[j].QuestionNumber)
	})
}

func questionNumberKey(number string) int64 {
	var digits strings.Builder
	for _, r := range number {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	n, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil {
		return math.MaxInt64
	}
	return n
}

func answerSummary(m *MergedMCQ) string {
	if m.CorrectAnswer == "" {
		return "no answer"
	}
	return "answer " + m.CorrectAnswer
}

func sortedLetters(options map[string]string) []string {
	letters := make([]string, 0, len(options))
	for letter := range options {
		letters = append(letters, letter)
	}
	sort.Strings(letters)
	return letters
}

func isOptionLetter(letter string) bool {
	for _, l := range OptionLetters {
		if l == letter {
			return true
		}
	}
	return false
}
