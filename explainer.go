package mcqbank

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
)

// paragraphBreak separates the heading and the two paragraphs of a stored
// explanation
const paragraphBreak = "<br><br>"

const noExplanation = "No further explanation was given."

// ErrNoResolvableAnswer is returned for questions whose answer is missing
// or does not name one of the options
var ErrNoResolvableAnswer = errors.New("no resolvable correct answer")

// Explainer writes a two-paragraph explanation for the correct option
type Explainer struct {
	gen    Generator
	logger *LLMLogger
}

// NewExplainer creates an explainer. logger may be nil.
func NewExplainer(gen Generator, logger *LLMLogger) *Explainer {
	return &Explainer{gen: gen, logger: logger}
}

// Explain returns the formatted explanation for m
func (e *Explainer) Explain(ctx context.Context, m *MergedMCQ) (string, error) {
	if !m.HasResolvableAnswer() {
		return "", ErrNoResolvableAnswer
	}

	prompt := e.buildPrompt(m)
	e.logger.LogLLMRequest("Explainer", prompt)

	response, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		e.logger.LogLLMError("Explainer", err)
		return "", fmt.Errorf("failed to generate explanation: %w", err)
	}
	e.logger.LogLLMResponse("Explainer", response)

	return FormatExplanation(m.CorrectAnswer, m.Options[m.CorrectAnswer], response), nil
}

// ExplainAll fills in Explanation and Status for every question. Failures
// leave the explanation empty and never stop the loop. It returns how many
// explanations were written.
func (e *Explainer) ExplainAll(ctx context.Context, mcqs []*MergedMCQ) int {
	explained := 0
	for _, m := range mcqs {
		if ctx.Err() != nil {
			return explained
		}

		if !m.HasResolvableAnswer() {
			m.Explanation = ""
			m.Status = StatusExplanationSkipped
			e.logger.LogQuestionResult(m.QuestionNumber, m.Status, "no resolvable answer")
			continue
		}

		log.Printf("Generating explanation for question %s...", m.QuestionNumber)
		text, err := e.Explain(ctx, m)
		if err != nil {
			log.Printf("%s Explanation for question %s failed: %v", markFail, m.QuestionNumber, err)
			m.Explanation = ""
			m.Status = StatusExplanationSkipped
			e.logger.LogQuestionResult(m.QuestionNumber, m.Status, err.Error())
			continue
		}

		m.Explanation = text
		m.Status = StatusExplained
		e.logger.LogQuestionResult(m.QuestionNumber, m.Status, fmt.Sprintf("%d chars", len(text)))
		explained++
	}
	return explained
}

func (e *Explainer) buildPrompt(m *MergedMCQ) string {
	var sb strings.Builder

	sb.WriteString("Write a medical explanation in EXACTLY two paragraphs. Use a blank line between paragraphs.\n\n")
	sb.WriteString(fmt.Sprintf("Question: %s\n\n", m.QuestionText))

	sb.WriteString("Options:\n")
	for _, letter := range sortedLetters(m.Options) {
		if text := m.Options[letter]; text != "" {
			sb.WriteString(fmt.Sprintf("%s) %s\n", letter, text))
		}
	}
	sb.WriteString(fmt.Sprintf("Correct Answer: %s\n\n", m.CorrectAnswer))

	sb.WriteString("FIRST PARAGRAPH (Definition):\n")
	sb.WriteString("- Define or explain the correct option\n")
	sb.WriteString("- Keep it to 3-4 sentences\n")
	sb.WriteString("- Do not mention the question or other options\n\n")

	sb.WriteString("SECOND PARAGRAPH (Application):\n")
	sb.WriteString("- Explain how it relates to the question\n")
	sb.WriteString("- Keep it to 2-3 sentences\n")
	sb.WriteString("- Focus on why this is the correct answer\n\n")

	sb.WriteString("IMPORTANT: Use a blank line between paragraphs. Do not repeat the question or use phrases like \"Here's the explanation\" or \"The correct answer is\".")

	return sb.String()
}

var (
	blankLine        = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)
	sentenceEnd      = regexp.MustCompile(`[.!?]`)
	clauseOrSentence = regexp.MustCompile(`[.!?,;]`)
)

// FormatExplanation renders a model response as
// "<b>L) option</b><br><br>first<br><br>second". The response is split on
// blank lines; when that gives fewer than two paragraphs it falls back to
// sentence terminators, then commas and semicolons, then halving the
// words. Paragraphs past the second are folded into the second. A reply
// of one word or none is led by a sentence naming the answer.
func FormatExplanation(letter, optionText, response string) string {
	first, second := splitParagraphs(strings.TrimSpace(response))
	if first == "" {
		first = fmt.Sprintf("The correct answer is %s) %s.", letter, optionText)
	}
	if second == "" {
		second = noExplanation
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>%s) %s</b>", letter, optionText))
	sb.WriteString(paragraphBreak)
	sb.WriteString(first)
	sb.WriteString(paragraphBreak)
	sb.WriteString(second)
	return sb.String()
}

func splitParagraphs(response string) (string, string) {
	if paragraphs := nonEmpty(blankLine.Split(response, -1)); len(paragraphs) >= 2 {
		return oneLine(paragraphs[0]), oneLine(strings.Join(paragraphs[1:], " "))
	}

	for _, sep := range []*regexp.Regexp{sentenceEnd, clauseOrSentence} {
		parts := nonEmpty(sep.Split(response, -1))
		if len(parts) < 2 {
			continue
		}
		breakPoint := len(parts) / 2
		if breakPoint > 2 {
			breakPoint = 2
		}
		first := strings.Join(parts[:breakPoint], ". ") + "."
		second := strings.Join(parts[breakPoint:], ". ") + "."
		return oneLine(first), oneLine(second)
	}

	words := strings.Fields(response)
	if len(words) < 2 {
		return "", strings.Join(words, " ")
	}
	mid := (len(words) + 1) / 2
	return strings.Join(words[:mid], " ") + ".", strings.Join(words[mid:], " ")
}

func nonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
