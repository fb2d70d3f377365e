package mcqbank

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// AnswerCheck compares an extracted answer with the explicit answer marker
// printed in the source text
type AnswerCheck struct {
	QuestionNumber string
	Answer         string
	Verified       bool
	Context        string // up to 200 characters after "N.", when not verified
}

// VerifyAnswers looks for "N. R: X" or "N. Answer: X" in text for every
// question
func VerifyAnswers(text string, mcqs []*MergedMCQ) []AnswerCheck {
	checks := make([]AnswerCheck, 0, len(mcqs))
	for _, m := range mcqs {
		c := AnswerCheck{QuestionNumber: m.QuestionNumber, Answer: m.CorrectAnswer}
		marker := fmt.Sprintf("%s. R: %s", m.QuestionNumber, m.CorrectAnswer)
		alt := fmt.Sprintf("%s. Answer: %s", m.QuestionNumber, m.CorrectAnswer)
		if m.CorrectAnswer != "" && (strings.Contains(text, marker) || strings.Contains(text, alt)) {
			c.Verified = true
		} else if idx := strings.Index(text, m.QuestionNumber+"."); m.QuestionNumber != "" && idx >= 0 {
			c.Context = strings.ReplaceAll(truncateRunes(text[idx:], 200), "\n", " ")
		}
		checks = append(checks, c)
	}
	return checks
}

// WriteAnswerReport prints the answer verification report
func WriteAnswerReport(w io.Writer, checks []AnswerCheck) {
	fmt.Fprintln(w, "\nVerification Report:")
	fmt.Fprintln(w, strings.Repeat("-", 50))
	for _, c := range checks {
		if c.Verified {
			fmt.Fprintf(w, "✓ Question %s: Answer verified (%s)\n", c.QuestionNumber, c.Answer)
			continue
		}
		fmt.Fprintf(w, "⚠ Question %s: Answer may be incorrect (extracted: %s)\n", c.QuestionNumber, orNone(c.Answer))
		if c.Context != "" {
			fmt.Fprintf(w, "   Context: %s\n", c.Context)
		}
	}
}

// WriteRunSummary prints the totals of a run
func WriteRunSummary(w io.Writer, s *RunStats) {
	fmt.Fprintln(w, "\n📊 Results:")
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Source: %s, pages %s -> %s\n", s.Source, s.Pages, s.Table)
	fmt.Fprintf(w, "Batches: %d (%d failed), windows: %d (%d skipped)\n", s.Batches, s.BatchesFailed, s.Windows, s.WindowsFailed)
	fmt.Fprintf(w, "Candidates: %d, merged: %d, explained: %d\n", s.Candidates, s.Merged, s.Explained)
	for _, subject := range append(append([]Subject{}, Subjects...), SubjectUnknown) {
		if n := s.Subjects[subject]; n > 0 {
			fmt.Fprintf(w, "  %s: %d\n", subject, n)
		}
	}
	fmt.Fprintf(w, "%s Successfully saved: %d MCQs (%d new, %d updated)\n", markOK, s.Insert.Successful(), s.Insert.Inserted, s.Insert.Updated)
	fmt.Fprintf(w, "%s Failed to save: %d MCQs (%d rejected, %d errors)\n", markFail, s.Insert.Rejected+s.Insert.Failed, s.Insert.Rejected, s.Insert.Failed)
	if s.Insert.Successful()+s.Insert.Rejected+s.Insert.Failed > 0 {
		fmt.Fprintf(w, "📈 Success rate: %.1f%%\n", s.SuccessRate())
	}
	fmt.Fprintf(w, "Duration: %s\n", s.Duration.Round(time.Millisecond))
}

// StorageReport is the outcome of VerifyStorage
type StorageReport struct {
	Total        int
	Checked      int
	Complete     int // question, answer and subject all present
	Explanations int
}

// VerifyStorage re-reads the newest rows stored from source and prints a
// per-question check of each column
func VerifyStorage(ctx context.Context, w io.Writer, db *DB, table, source string) (*StorageReport, error) {
	total, err := db.Count(ctx, table)
	if err != nil {
		return nil, err
	}
	rows, err := db.RecentBySource(ctx, table, source, 20)
	if err != nil {
		return nil, err
	}

	report := &StorageReport{Total: total, Checked: len(rows)}
	fmt.Fprintln(w, "\n📊 Database Storage Verification:")
	fmt.Fprintf(w, "Total MCQs in database: %d\n", total)
	fmt.Fprintf(w, "Recent MCQs from this extraction: %d\n", len(rows))
	if len(rows) == 0 {
		fmt.Fprintf(w, "%s No MCQs found in database from this extraction\n", markFail)
		return report, nil
	}

	fmt.Fprintln(w, "\n📋 Recent MCQs stored:")
	for _, m := range rows {
		question := check(len(strings.TrimSpace(m.QuestionText)) > 10, markFail)
		answer := check(isOptionLetter(m.CorrectAnswer), markFail)
		subject := check(m.Subject.Valid(), markFail)
		explanation := check(hasExplanation(m.Explanation), markWarn)
		if question == markOK && answer == markOK && subject == markOK {
			report.Complete++
		}
		if hasExplanation(m.Explanation) {
			report.Explanations++
		}
		fmt.Fprintf(w, "  %s Q%s: Question=%s, Answer=%s, Subject=%s, Explanation=%s\n",
			question, m.QuestionNumber, question, answer, subject, explanation)
	}

	fmt.Fprintln(w, "\n📈 Storage Summary:")
	fmt.Fprintf(w, "Questions properly stored: %d/%d\n", report.Complete, len(rows))
	fmt.Fprintf(w, "Explanations present: %d/%d\n", report.Explanations, len(rows))

	sample := rows[0]
	fmt.Fprintln(w, "\n📝 Sample stored question:")
	fmt.Fprintf(w, "  ID: %d\n", sample.ID)
	fmt.Fprintf(w, "  Question: %s...\n", truncateRunes(sample.QuestionText, 100))
	fmt.Fprintf(w, "  Answer: %s\n", sample.CorrectAnswer)
	fmt.Fprintf(w, "  Subject: %s\n", sample.Subject)
	fmt.Fprintf(w, "  Explanation: %s\n", map[bool]string{true: "Present", false: "Missing"}[sample.Explanation != ""])
	return report, nil
}

// VerifyExplanations prints explanation coverage of the newest rows stored
// from source. It returns how many of them carry an explanation.
func VerifyExplanations(ctx context.Context, w io.Writer, db *DB, table, source string) (found, checked int, err error) {
	rows, err := db.RecentBySource(ctx, table, source, 10)
	if err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		fmt.Fprintf(w, "%s No MCQs found in database to verify\n", markWarn)
		return 0, 0, nil
	}

	fmt.Fprintln(w, "📋 Recent MCQs with explanations:")
	for _, m := range rows {
		if hasExplanation(m.Explanation) {
			found++
			fmt.Fprintf(w, "  %s Q%s: Explanation present (%d chars)\n", markOK, m.QuestionNumber, len(m.Explanation))
		} else {
			fmt.Fprintf(w, "  %s Q%s: No explanation or too short\n", markFail, m.QuestionNumber)
		}
	}
	fmt.Fprintf(w, "📊 Explanation coverage: %d/%d MCQs\n", found, len(rows))
	return found, len(rows), nil
}

// WriteStatistics prints the statistics of a month table
func WriteStatistics(w io.Writer, s *Statistics) {
	fmt.Fprintf(w, "\n%s Statistics:\n", strings.ToUpper(s.Table))
	fmt.Fprintln(w, strings.Repeat("-", 50))
	if len(s.Subjects) == 0 {
		fmt.Fprintln(w, "No questions stored")
		return
	}
	for _, st := range s.Subjects {
		fmt.Fprintf(w, "%s:\n", st.Subject)
		fmt.Fprintf(w, "  Total questions: %d\n", st.Total)
		fmt.Fprintf(w, "  Unique sources: %d\n", st.UniqueSources)
		if st.EarliestDate != nil && st.LatestDate != nil {
			fmt.Fprintf(w, "  Date range: %s to %s\n", st.EarliestDate.Format("2006-01-02"), st.LatestDate.Format("2006-01-02"))
		}
		fmt.Fprintf(w, "  Repeated questions: %d\n", st.Repeated)
	}
	if len(s.MostRepeated) > 0 {
		fmt.Fprintln(w, "\nMost repeated questions:")
		for _, r := range s.MostRepeated {
			fmt.Fprintf(w, "  Q%s: %d appearances\n", r.QuestionNumber, r.AppearanceCount)
		}
	}
}

func hasExplanation(s string) bool {
	return len(strings.TrimSpace(s)) > 50
}

func check(ok bool, failMark string) string {
	if ok {
		return markOK
	}
	return failMark
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
