package splitter

import (
	"strings"
	"testing"
)

func texts(raw string) []string {
	qs := Split(raw)
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.Text
	}
	return out
}

func TestSplitQuestionMarks(t *testing.T) {
	got := texts("What is the leave policy? How do I reset my password?")
	want := []string{"What is the leave policy?", "How do I reset my password?"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Split() = %q, want %q", got, want)
	}
}

func TestSplitReconstructsInput(t *testing.T) {
	raw := "What is the leave policy? How many sick days do I get? Who approves them?"
	parts := texts(raw)
	if len(parts) < 2 {
		t.Fatalf("expected multi-question split, got %d parts", len(parts))
	}
	stripped := func(s string) string {
		return strings.Join(strings.Fields(s), "")
	}
	if stripped(strings.Join(parts, "")) != stripped(raw) {
		t.Errorf("parts do not reconstruct input: %q", parts)
	}
}

func TestSplitKeepsRepeatedMarks(t *testing.T) {
	got := texts("Is this allowed?? What about remote work?")
	if len(got) != 2 {
		t.Fatalf("got %d parts, want 2: %q", len(got), got)
	}
	if !strings.HasSuffix(got[0], "??") {
		t.Errorf("repeated marks not preserved: %q", got[0])
	}
}

func TestSplitSingleQuestionPassthrough(t *testing.T) {
	for _, raw := range []string{
		"What is the vacation policy?",
		"How do I enroll in benefits",
	} {
		got := texts(raw)
		if len(got) != 1 || got[0] != strings.TrimSpace(raw) {
			t.Errorf("Split(%q) = %q, want single trimmed element", raw, got)
		}
	}
}

func TestSplitEmptyInput(t *testing.T) {
	for _, raw := range []string{"", "   "} {
		got := Split(raw)
		if len(got) != 1 {
			t.Fatalf("Split(%q) returned %d elements, want 1", raw, len(got))
		}
		if got[0].Text != raw {
			t.Errorf("Split(%q)[0].Text = %q", raw, got[0].Text)
		}
	}
}

func TestSplitListStyleQuery(t *testing.T) {
	got := texts("what are the hr policy objectives, employment types and byod policy")
	want := []string{
		"what are the hr policy objectives",
		"what are employment types",
		"what are byod policy",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d parts, want %d: %q", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("part %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitConnector(t *testing.T) {
	got := texts("how do I request leave and how do I check my balance")
	if len(got) != 2 {
		t.Fatalf("got %d parts, want 2: %q", len(got), got)
	}
	if got[0] != "how do I request leave" || got[1] != "how do I check my balance" {
		t.Errorf("unexpected parts: %q", got)
	}
}

func TestSplitConnectorRejectsFragments(t *testing.T) {
	// "salt and pepper" splits on " and " but neither side survives
	// validation, so the input stays whole.
	got := texts("salt and pepper")
	if len(got) != 1 {
		t.Fatalf("got %d parts, want 1: %q", len(got), got)
	}
}

func TestSplitSetsMultiFlag(t *testing.T) {
	multi := Split("What is A? What is B?")
	for i, q := range multi {
		if !q.Multi {
			t.Errorf("question %d missing Multi flag", i)
		}
	}
	single := Split("What is the dress code?")
	if single[0].Multi {
		t.Error("single question should not be flagged Multi")
	}
}

func TestSplitDeterministic(t *testing.T) {
	raw := "What is A? What is B? tell me about C and D"
	first := texts(raw)
	second := texts(raw)
	if len(first) != len(second) {
		t.Fatalf("non-deterministic length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("non-deterministic part %d: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestCombineEmpty(t *testing.T) {
	got := Combine(nil)
	if got != "I apologize, but I couldn't generate a response." {
		t.Errorf("Combine(nil) = %q", got)
	}
}

func TestCombineSinglePassthrough(t *testing.T) {
	got := Combine([]AnsweredQuestion{{Question: "What is X?", Answer: "X is a thing."}})
	if got != "X is a thing." {
		t.Errorf("Combine(single) = %q", got)
	}
}

func TestCombineMultipleFormatsHeaders(t *testing.T) {
	got := Combine([]AnsweredQuestion{
		{Question: "What is the leave policy?", Answer: "20 days per year."},
		{Question: "What is the password policy?", Answer: "Rotate every 90 days."},
	})
	want := "**What is the leave policy:**\n\n20 days per year." +
		"\n\n---\n\n" +
		"**What is the password policy:**\n\nRotate every 90 days."
	if got != want {
		t.Errorf("Combine() = %q, want %q", got, want)
	}
}

func TestCombineFillsMissingFields(t *testing.T) {
	got := Combine([]AnsweredQuestion{
		{Question: "", Answer: "First."},
		{Question: "Second question", Answer: ""},
	})
	if !strings.Contains(got, "**Question 1:**") {
		t.Errorf("missing question placeholder: %q", got)
	}
	if !strings.Contains(got, "No answer provided") {
		t.Errorf("missing answer placeholder: %q", got)
	}
}
