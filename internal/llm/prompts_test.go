package llm

import (
	"strings"
	"testing"
)

func TestBuildGradeSystemPrompt(t *testing.T) {
	p := GradePrompt{
		Statement:       "Explain the water cycle.",
		ExpectedAnswer:  "Evaporation, condensation, precipitation.",
		GradingCriteria: "Names all three phases.",
		MaxPoints:       5,
	}
	got := BuildGradeSystemPrompt(p)
	for _, want := range []string{
		"Explain the water cycle.",
		"MAX POINTS: 5",
		"Evaporation, condensation, precipitation.",
		"Names all three phases.",
		`"score"`,
		`"feedback"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestBuildGradeSystemPromptOmitsEmptySections(t *testing.T) {
	got := BuildGradeSystemPrompt(GradePrompt{Statement: "Q", MaxPoints: 2})
	if strings.Contains(got, "EXPECTED ANSWER") {
		t.Error("empty expected answer still rendered")
	}
	if strings.Contains(got, "GRADING CRITERIA") {
		t.Error("empty criteria still rendered")
	}
}

func TestBuildGradeUserPrompt(t *testing.T) {
	got := BuildGradeUserPrompt(GradePrompt{StudentAnswer: "  water evaporates  "})
	if !strings.Contains(got, "water evaporates") {
		t.Errorf("user prompt = %q", got)
	}
	got = BuildGradeUserPrompt(GradePrompt{StudentAnswer: "   "})
	if !strings.Contains(got, "(no answer given)") {
		t.Errorf("blank answer prompt = %q", got)
	}
}

func TestBuildDraftSystemPrompt(t *testing.T) {
	got := BuildDraftSystemPrompt(DraftPrompt{
		QuestionType: "multiple_choice",
		Difficulty:   "hard",
		Topic:        "thermodynamics",
		Count:        3,
	})
	for _, want := range []string{"3", "multiple_choice", "hard", "thermodynamics", `"items"`, "payload"} {
		if !strings.Contains(got, want) {
			t.Errorf("draft prompt missing %q", want)
		}
	}
}
