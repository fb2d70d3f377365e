package mcqbank

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeQuestion returns the fingerprint used to recognise a question
// across exam sittings. Text that differs only in case, newline style,
// punctuation or a leading filler phrase maps to the same fingerprint.
// Empty text has no fingerprint.
func NormalizeQuestion(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	sum := md5.Sum([]byte(normalizedText(text)))
	return hex.EncodeToString(sum[:])
}

func normalizedText(text string) string {
	text = norm.NFKC.String(text)
	text = strings.ToLower(text)
	text = strings.ReplaceAll(text, `\n`, " ")
	text = strings.ReplaceAll(text, "\r\n", " ")
	text = strings.ReplaceAll(text, "\n", " ")

	text = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsNumber(r):
			return r
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, text)

	text = strings.Join(strings.Fields(text), " ")
	for _, rule := range FillerRules {
		text, _ = rule.Strip(text)
	}
	return text
}

// CleanText turns literal "\n" sequences into spaces and collapses runs of
// whitespace. It is applied to every stored text field.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, `\n`, "\n")
	return strings.Join(strings.Fields(text), " ")
}
