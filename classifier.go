package mcqbank

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// DefaultClassifyBatchSize is the number of questions per classifier call
const DefaultClassifyBatchSize = 3

// Classifier tags questions with a medical subject
type Classifier struct {
	gen       Generator
	batchSize int
	logger    *LLMLogger
}

// NewClassifier creates a classifier. A batchSize below 1 uses the default.
func NewClassifier(gen Generator, batchSize int, logger *LLMLogger) *Classifier {
	if batchSize < 1 {
		batchSize = DefaultClassifyBatchSize
	}
	return &Classifier{gen: gen, batchSize: batchSize, logger: logger}
}

// ClassifyBatch returns one subject per question, in order. A failed call
// yields SubjectUnknown for the whole batch together with the error.
func (c *Classifier) ClassifyBatch(ctx context.Context, batch []*MergedMCQ) ([]Subject, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	prompt := c.buildPrompt(batch)
	c.logger.LogLLMRequest("Classifier", prompt)

	response, err := c.gen.Generate(ctx, prompt)
	if err != nil {
		c.logger.LogLLMError("Classifier", err)
		return unknownSubjects(len(batch)), fmt.Errorf("failed to classify batch: %w", err)
	}
	c.logger.LogLLMResponse("Classifier", response)

	return ParseSubjects(response, len(batch)), nil
}

// ClassifyAll sets Subject and Status on every question, batch by batch.
// It returns the per-subject counts.
func (c *Classifier) ClassifyAll(ctx context.Context, mcqs []*MergedMCQ) map[Subject]int {
	counts := make(map[Subject]int)
	total := (len(mcqs) + c.batchSize - 1) / c.batchSize

	for start := 0; start < len(mcqs); start += c.batchSize {
		end := start + c.batchSize
		if end > len(mcqs) {
			end = len(mcqs)
		}
		batch := mcqs[start:end]

		log.Printf("Classifying batch %d/%d (%d questions)...", start/c.batchSize+1, total, len(batch))
		subjects, err := c.ClassifyBatch(ctx, batch)
		if err != nil {
			log.Printf("%s Error classifying batch: %v", markFail, err)
		}

		for i, m := range batch {
			m.Subject = subjects[i]
			if m.Subject == SubjectUnknown {
				m.Status = StatusUnclassified
			} else {
				m.Status = StatusClassified
			}
			c.logger.LogQuestionResult(m.QuestionNumber, m.Status, string(m.Subject))
			counts[m.Subject]++
		}
	}
	return counts
}

func (c *Classifier) buildPrompt(batch []*MergedMCQ) string {
	var sb strings.Builder

	sb.WriteString("Classify each medical MCQ into one of these subjects:\n")
	sb.WriteString("1. Surgery - General Surgery\n")
	sb.WriteString("2. Medicine - Internal Medicine\n")
	sb.WriteString("3. Gynae - Gynecology and Obstetrics\n")
	sb.WriteString("4. Paeds - Pediatrics\n\n")

	sb.WriteString("Rules for classification:\n")
	sb.WriteString("- Surgery: Questions about surgical procedures, trauma, wounds, post-operative care\n")
	sb.WriteString("- Medicine: Questions about adult medical conditions, cardiology, respiratory, gastroenterology\n")
	sb.WriteString("- Gynae: Questions about pregnancy, female reproductive system, obstetric conditions\n")
	sb.WriteString("- Paeds: Questions about children, infant care, pediatric conditions\n\n")

	sb.WriteString("For each question, respond with ONLY the subject name (Surgery/Medicine/Gynae/Paeds), one per line, in the order given.\n\n")
	sb.WriteString("Questions to classify:\n\n")

	for _, m := range batch {
		sb.WriteString(fmt.Sprintf("Question %s: %s\n", m.QuestionNumber, m.QuestionText))
		for _, letter := range sortedLetters(m.Options) {
			if text := m.Options[letter]; text != "" {
				sb.WriteString(fmt.Sprintf("%s) %s\n", letter, text))
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// ParseSubjects reads one subject per response line. A line counts when it
// contains a subject name, checked case-insensitively in the order Surgery,
// Medicine, Gynae, Paeds. The result always has exactly n entries, padded
// with SubjectUnknown.
func ParseSubjects(response string, n int) []Subject {
	subjects := make([]Subject, 0, n)
	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		if len(subjects) == n {
			break
		}
		upper := strings.ToUpper(line)
		for _, s := range Subjects {
			if strings.Contains(upper, strings.ToUpper(string(s))) {
				subjects = append(subjects, s)
				break
			}
		}
	}
	for len(subjects) < n {
		subjects = append(subjects, SubjectUnknown)
	}
	return subjects
}

func unknownSubjects(n int) []Subject {
	out := make([]Subject, n)
	for i := range out {
		out[i] = SubjectUnknown
	}
	return out
}
