package mcqbank

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidMCQ is the sentinel every ValidationError unwraps to
var ErrInvalidMCQ = errors.New("invalid mcq")

// ValidationError explains why a question was kept out of the store
type ValidationError struct {
	QuestionNumber string
	Field          string
	Reason         string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("question %s: %s: %s", e.QuestionNumber, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidMCQ
}

// storableMCQ is the trimmed view of a MergedMCQ the gate checks. Field
// order is the order rules are reported in.
type storableMCQ struct {
	QuestionText  string            `validate:"required,min=10"`
	CorrectAnswer string            `validate:"required,oneof=A B C D"`
	Options       map[string]string `validate:"dive,omitempty,min=2"`
}

var mcqValidator = newMCQValidator()

func newMCQValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		m := sl.Current().Interface().(storableMCQ)
		if m.CorrectAnswer == "" {
			return
		}
		if _, ok := m.Options[m.CorrectAnswer]; !ok {
			sl.ReportError(m.CorrectAnswer, "CorrectAnswer", "CorrectAnswer", "in_options", "")
		}
	}, storableMCQ{})
	return v
}

// Validate is the gate every question passes before it is persisted. It
// requires question text of at least 10 characters, a correct answer in
// A-D that names one of the options, and no option shorter than 2
// characters. Empty options are allowed.
func Validate(m *MergedMCQ) error {
	view := storableMCQ{
		QuestionText:  strings.TrimSpace(m.QuestionText),
		CorrectAnswer: m.CorrectAnswer,
		Options:       make(map[string]string, len(m.Options)),
	}
	for letter, text := range m.Options {
		view.Options[letter] = strings.TrimSpace(text)
	}

	err := mcqValidator.Struct(view)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{QuestionNumber: m.QuestionNumber, Field: "mcq", Reason: err.Error()}
	}
	first := fieldErrs[0]
	return &ValidationError{
		QuestionNumber: m.QuestionNumber,
		Field:          columnName(first.StructField()),
		Reason:         rejectReason(first),
	}
}

// columnName maps a view field ("Options[B]" included) onto the stored
// column it guards.
func columnName(field string) string {
	switch {
	case field == "QuestionText":
		return "question_text"
	case field == "CorrectAnswer":
		return "correct_answer"
	case strings.HasPrefix(field, "Options["):
		letter := strings.TrimSuffix(strings.TrimPrefix(field, "Options["), "]")
		return "option_" + strings.ToLower(letter)
	}
	return strings.ToLower(field)
}

func rejectReason(fe validator.FieldError) string {
	value, _ := fe.Value().(string)
	switch fe.Tag() {
	case "required":
		return "missing"
	case "min":
		return fmt.Sprintf("too short (%d < %s characters)", utf8.RuneCountInString(value), fe.Param())
	case "oneof":
		return fmt.Sprintf("%q is outside A-D", value)
	case "in_options":
		return fmt.Sprintf("%q is not one of the options", value)
	}
	return fmt.Sprintf("failed %s", fe.Tag())
}
