package mcqbank

import (
	"regexp"
	"strings"
)

// StripRule removes one leading pattern from a piece of text
type StripRule struct {
	Name    string
	Pattern *regexp.Regexp
}

// Strip removes the rule's match from the start of text. The remainder is
// trimmed. ok is false when the rule does not apply.
func (r StripRule) Strip(text string) (string, bool) {
	loc := r.Pattern.FindStringIndex(text)
	if loc == nil || loc[0] != 0 {
		return text, false
	}
	return strings.TrimSpace(text[loc[1]:]), true
}

// ApplyStripRules runs every rule once, in order, each on the output of the
// previous one. The first rule that matches does not stop the others.
func ApplyStripRules(text string, rules []StripRule) string {
	for _, rule := range rules {
		text, _ = rule.Strip(text)
	}
	return text
}

// QuestionNumberRules returns the rules that strip a leading question
// number such as "12-", "12." or "12 )" from question text
func QuestionNumberRules(number string) []StripRule {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil
	}
	quoted := regexp.QuoteMeta(number)
	forms := []struct{ name, sep string }{
		{"N-", `-`},
		{"N.", `\.`},
		{"N)", `\)`},
		{"N -", ` -`},
		{"N .", ` \.`},
		{"N )", ` \)`},
	}
	rules := make([]StripRule, 0, len(forms))
	for _, f := range forms {
		rules = append(rules, StripRule{
			Name:    f.name,
			Pattern: regexp.MustCompile(`^` + quoted + f.sep),
		})
	}
	return rules
}

// StripQuestionNumber removes the question number prefix from text
func StripQuestionNumber(text, number string) string {
	return ApplyStripRules(text, QuestionNumberRules(number))
}

// fillerPrefixes are leading phrases that vary between sittings of the same
// question. Order matters: each is tried once, in this order.
var fillerPrefixes = []string{
	"a patient with",
	"patient with",
	"a case of",
	"in a patient with",
	"a",
	"an",
	"the",
}

// FillerRules strips filler phrases from already-lowercased text. A phrase
// only matches when followed by a space.
var FillerRules = func() []StripRule {
	rules := make([]StripRule, 0, len(fillerPrefixes))
	for _, p := range fillerPrefixes {
		rules = append(rules, StripRule{
			Name:    p,
			Pattern: regexp.MustCompile(`^` + regexp.QuoteMeta(p) + ` `),
		})
	}
	return rules
}()

// OptionMarkerForms are the ways an option letter is introduced in exam
// papers. A question ends where a line starts with one of them.
var OptionMarkerForms = []string{
	"A)", "A.", "A-", "A:", "(A)", "[A]", "A]", "(A.", "A )", "A .",
	"A -", "A :", "( A )", "[ A ]", "a)", "a.", "a-", "a:", "(a)", "[a]",
}

// optionMarker matches every form in OptionMarkerForms for letters A to D
var optionMarker = regexp.MustCompile(`(?i)^\s*[(\[]?\s*[a-d]\s*[)\].:\-]+\s*`)

// OptionMarkerRule strips a leading option marker such as "B)" or "(c)"
var OptionMarkerRule = StripRule{Name: "option marker", Pattern: optionMarker}

// StartsWithOptionMarker reports whether line begins a new option
func StartsWithOptionMarker(line string) bool {
	return optionMarker.MatchString(line)
}
