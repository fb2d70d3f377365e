package mcqbank

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestVerifyAnswers(t *testing.T) {
	text := "12. A man with RIF pain.\nA) One\nB) Two\n12. R: B\n13. A child with fever and rash that lasts for days.\n14. Answer: C\n"
	mcqs := []*MergedMCQ{
		{QuestionNumber: "12", CorrectAnswer: "B"},
		{QuestionNumber: "13", CorrectAnswer: "A"},
		{QuestionNumber: "14", CorrectAnswer: "C"},
		{QuestionNumber: "99"},
	}

	checks := VerifyAnswers(text, mcqs)
	if len(checks) != 4 {
		t.Fatalf("expected 4 checks, got %d", len(checks))
	}
	if !checks[0].Verified || !checks[2].Verified {
		t.Errorf("expected 12 and 14 verified, got %+v", checks)
	}
	if checks[1].Verified || !strings.HasPrefix(checks[1].Context, "13. A child with fever") || strings.Contains(checks[1].Context, "\n") {
		t.Errorf("unexpected check for 13: %+v", checks[1])
	}
	if checks[3].Verified || checks[3].Context != "" {
		t.Errorf("unexpected check for 99: %+v", checks[3])
	}

	var sb strings.Builder
	WriteAnswerReport(&sb, checks)
	out := sb.String()
	for _, want := range []string{
		"✓ Question 12: Answer verified (B)",
		"⚠ Question 13: Answer may be incorrect (extracted: A)",
		"Context: 13. A child",
		"⚠ Question 99: Answer may be incorrect (extracted: none)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestVerifyAnswersTruncatesContext(t *testing.T) {
	text := "7. " + strings.Repeat("é", 300)
	checks := VerifyAnswers(text, []*MergedMCQ{{QuestionNumber: "7", CorrectAnswer: "A"}})
	if n := len([]rune(checks[0].Context)); n != 200 {
		t.Fatalf("expected 200 characters of context, got %d", n)
	}
}

func TestWriteRunSummary(t *testing.T) {
	stats := &RunStats{
		RunID:    "run-1",
		Source:   "March 2025.pdf",
		Table:    "march25_mcqs",
		Pages:    PageRange{438, 452},
		Batches:  1,
		Windows:  4,
		Subjects: map[Subject]int{SubjectSurgery: 3, SubjectUnknown: 1},
		Insert:   BatchResult{Inserted: 2, Updated: 1, Rejected: 1},
		Duration: 1500 * time.Millisecond,
	}

	var sb strings.Builder
	WriteRunSummary(&sb, stats)
	out := sb.String()
	for _, want := range []string{
		"pages 438-451 -> march25_mcqs",
		"Surgery: 3",
		"Unknown: 1",
		"Successfully saved: 3 MCQs (2 new, 1 updated)",
		"Failed to save: 1 MCQs",
		"Success rate: 75.0%",
		"Duration: 1.5s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Paeds") {
		t.Errorf("subjects without questions should be omitted:\n%s", out)
	}
}

func TestVerifyStorage(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, march)

	withExplanation := sampleMCQ("1", "Which is the most likely diagnosis?", "B", SubjectSurgery)
	withExplanation.Explanation = strings.Repeat("Detailed reasoning. ", 5)
	bare := sampleMCQ("2", "Which drug is first line for asthma?", "A", SubjectMedicine)
	bare.Explanation = ""
	for _, m := range []*MergedMCQ{withExplanation, bare} {
		if _, err := db.Insert(ctx, march, m, "March 2025.pdf:p1-4"); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if _, err := db.Insert(ctx, march, sampleMCQ("3", "Unrelated question from elsewhere", "C", SubjectGynae), "March 2025.pdf:p9-12"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var sb strings.Builder
	report, err := VerifyStorage(ctx, &sb, db, march, "March 2025.pdf:p1-4")
	if err != nil {
		t.Fatalf("verify storage: %v", err)
	}
	if *report != (StorageReport{Total: 3, Checked: 2, Complete: 2, Explanations: 1}) {
		t.Fatalf("unexpected report %+v", report)
	}
	if !strings.Contains(sb.String(), "Questions properly stored: 2/2") || !strings.Contains(sb.String(), "Explanation: Missing") {
		t.Fatalf("unexpected output:\n%s", sb.String())
	}

	sb.Reset()
	found, checked, err := VerifyExplanations(ctx, &sb, db, march, "March 2025.pdf:p1-4")
	if err != nil || found != 1 || checked != 2 {
		t.Fatalf("got %d/%d, %v", found, checked, err)
	}
	if !strings.Contains(sb.String(), "Explanation coverage: 1/2 MCQs") {
		t.Fatalf("unexpected output:\n%s", sb.String())
	}

	sb.Reset()
	report, err = VerifyStorage(ctx, &sb, db, march, "April 2025.pdf")
	if err != nil || report.Checked != 0 || !strings.Contains(sb.String(), "No MCQs found") {
		t.Fatalf("expected nothing found, got %+v, %v:\n%s", report, err, sb.String())
	}
}

func TestWriteStatistics(t *testing.T) {
	earliest := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	stats := &Statistics{
		Table: march,
		Subjects: []SubjectStats{
			{Subject: SubjectSurgery, Total: 4, UniqueSources: 2, EarliestDate: &earliest, LatestDate: &earliest, Repeated: 1},
		},
		MostRepeated: []RepeatedQuestion{{QuestionNumber: "9", AppearanceCount: 3}},
	}

	var sb strings.Builder
	WriteStatistics(&sb, stats)
	out := sb.String()
	for _, want := range []string{"MARCH25_MCQS Statistics", "Total questions: 4", "Date range: 2025-03-01 to 2025-03-01", "Q9: 3 appearances"} {
		if !strings.Contains(out, want) {
			t.Errorf("statistics missing %q:\n%s", want, out)
		}
	}

	sb.Reset()
	WriteStatistics(&sb, &Statistics{Table: march})
	if !strings.Contains(sb.String(), "No questions stored") {
		t.Errorf("unexpected output for an empty table:\n%s", sb.String())
	}
}
