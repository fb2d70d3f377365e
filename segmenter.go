package mcqbank

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
)

// Segmenter asks a model to cut a chunk of exam text into questions
type Segmenter struct {
	gen    Generator
	logger *LLMLogger
}

// NewSegmenter creates a segmenter. logger may be nil.
func NewSegmenter(gen Generator, logger *LLMLogger) *Segmenter {
	return &Segmenter{gen: gen, logger: logger}
}

// segmentAttempts bounds how often a window is sent again after a reply
// that holds malformed JSON.
const segmentAttempts = 2

// Segment extracts the candidates in chunk. annotated is the emphasis
// annotated text of the same pages; it is used to infer answers the model
// left empty. A response without JSON yields no candidates and no error.
// A response with malformed JSON is asked for again once before the
// chunk fails.
func (s *Segmenter) Segment(ctx context.Context, chunk, annotated string) ([]CandidateMCQ, error) {
	prompt := s.buildPrompt(chunk)
	ctx = WithReplyCheck(ctx, checkSegmentReply)

	var candidates []CandidateMCQ
	for attempt := 1; ; attempt++ {
		s.logger.LogLLMRequest("Segmenter", prompt)

		response, err := s.gen.Generate(ctx, prompt)
		if err != nil {
			s.logger.LogLLMError("Segmenter", err)
			return nil, fmt.Errorf("failed to segment chunk: %w", err)
		}
		s.logger.LogLLMResponse("Segmenter", response)

		candidates, err = ParseCandidates(response)
		if errors.Is(err, ErrNoJSON) {
			log.Printf("%s No valid JSON found in chunk", markWarn)
			return nil, nil
		}
		if err == nil {
			break
		}
		if attempt >= segmentAttempts {
			return nil, err
		}
		log.Printf("%s Malformed JSON from segmenter (attempt %d/%d): %v", markWarn, attempt, segmentAttempts, err)
	}

	for i := range candidates {
		c := &candidates[i]
		if c.CorrectAnswer == "" {
			if letter := InferAnswer(*c, annotated); letter != "" {
				c.CorrectAnswer = letter
				VerboseLog("Question %s: answer %s inferred from emphasis", c.QuestionNumber, letter)
			}
		}
		s.logger.LogQuestionResult(c.QuestionNumber, StatusExtracted, "answer "+orNone(c.CorrectAnswer))
	}
	return candidates, nil
}

// checkSegmentReply rejects replies whose JSON does not parse
func checkSegmentReply(reply string) error {
	if _, err := ParseCandidates(reply); err != nil && !errors.Is(err, ErrNoJSON) {
		return err
	}
	return nil
}

func (s *Segmenter) buildPrompt(chunk string) string {
	var sb strings.Builder

	sb.WriteString("Extract all Multiple Choice Questions (MCQs) from the given text. Follow these rules strictly:\n\n")

	sb.WriteString("QUESTIONS:\n")
	sb.WriteString("- Process ALL numbered questions (e.g. \"1-\", \"2.\", \"3)\").\n")
	sb.WriteString("- Questions may be split across pages; join the parts into one question.\n")
	sb.WriteString("- Include the complete question text and all options.\n")
	sb.WriteString("- A question ends where a line starts with an option marker. Option markers are case-insensitive and look like: ")
	sb.WriteString(strings.Join(OptionMarkerForms, "  "))
	sb.WriteString("\n\n")

	sb.WriteString("ANSWERS:\n")
	sb.WriteString("- If an answer is given with \"R:\" or \"Answer:\" followed by a letter, use that.\n")
	sb.WriteString("- Otherwise use the option that is highlighted, bold or otherwise emphasized.\n")
	sb.WriteString("- An asterisk (*) or check mark (✓) next to an option marks the answer.\n")
	sb.WriteString("- If the answer is unclear, use null.\n\n")

	sb.WriteString("IGNORE:\n")
	sb.WriteString("- All URLs and references\n\n")

	sb.WriteString("OUTPUT: a JSON list of objects, nothing else:\n")
	sb.WriteString(`[
  {
    "question_number": "exact number as shown",
    "question_text": "complete question",
    "options": {"A": "full text", "B": "full text", "C": "full text", "D": "full text"},
    "correct_answer": "A/B/C/D or null if unclear"
  }
]`)
	sb.WriteString("\n\nTEXT TO PROCESS:\n")
	sb.WriteString(strings.TrimSpace(strings.ReplaceAll(chunk, "\n\n", "\n")))

	return sb.String()
}

var emphasisSegment = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(EmphasisOpen) + `(.*?)` + regexp.QuoteMeta(EmphasisClose))

// EmphasizedSegments returns the emphasized runs of an annotated stream.
// Touching runs are joined.
func EmphasizedSegments(annotated string) []string {
	joined := strings.ReplaceAll(annotated, EmphasisClose+EmphasisOpen, "")
	matches := emphasisSegment.FindAllStringSubmatch(joined, -1)
	segments := make([]string, 0, len(matches))
	for _, m := range matches {
		if seg := strings.TrimSpace(m[1]); seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

// InferAnswer looks for an option the source text marks as correct: an
// emphasized option, or one carrying a '*' or '✓'. Options are tried in
// letter order and the first hit wins.
func InferAnswer(c CandidateMCQ, annotated string) string {
	if annotated == "" {
		return ""
	}
	letters := sortedLetters(c.Options)

	for _, letter := range letters {
		text := c.Options[letter]
		if text == "" {
			continue
		}
		for _, marked := range []string{
			EmphasisOpen + text + EmphasisClose,
			"*" + text,
			"✓" + text,
			text + "*",
			text + "✓",
		} {
			if strings.Contains(annotated, marked) {
				return letter
			}
		}
	}

	segments := EmphasizedSegments(annotated)
	for _, letter := range letters {
		want := foldSpace(c.Options[letter])
		if want == "" {
			continue
		}
		for _, seg := range segments {
			bare, _ := OptionMarkerRule.Strip(seg)
			if foldSpace(bare) == want {
				return letter
			}
		}
	}
	return ""
}

func foldSpace(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
