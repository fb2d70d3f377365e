package mcqbank

import "testing"

func TestNormalizeQuestionIgnoresCaseNewlinesAndPunctuation(t *testing.T) {
	pairs := [][2]string{
		{"A patient with fever.", "a patient with FEVER"},
		{"Which drug is used\nfor asthma?", "which drug is used for asthma"},
		{"Which drug is used\r\nfor asthma?", "Which drug is used for asthma?"},
		{`Which drug is used\nfor asthma?`, "Which drug is used for asthma"},
		{"The  child's   rash -- what is it?", "childs rash what is it"},
		{"Pulmonary ﬁbrosis?", "pulmonary fibrosis"},
	}
	for _, p := range pairs {
		a, b := NormalizeQuestion(p[0]), NormalizeQuestion(p[1])
		if a != b {
			t.Errorf("fingerprints differ for %q (%q) and %q (%q)", p[0], normalizedText(p[0]), p[1], normalizedText(p[1]))
		}
	}
}

func TestNormalizeQuestionDistinguishesContent(t *testing.T) {
	if NormalizeQuestion("Which drug treats asthma?") == NormalizeQuestion("Which drug treats angina?") {
		t.Fatal("different questions share a fingerprint")
	}
}

func TestNormalizeQuestionShape(t *testing.T) {
	fp := NormalizeQuestion("Which drug treats asthma?")
	if len(fp) != 32 {
		t.Fatalf("expected a 32 character fingerprint, got %q", fp)
	}
	if NormalizeQuestion("") != "" || NormalizeQuestion("  \n ") != "" {
		t.Fatal("blank text should have no fingerprint")
	}
}

func TestCleanText(t *testing.T) {
	if got := CleanText(`Line one\nline   two` + "\n\tend"); got != "Line one line two end" {
		t.Fatalf("got %q", got)
	}
}
