package llm

import (
	"fmt"
	"strings"
)

// GradePrompt carries everything the grader prompt needs for one answer.
type GradePrompt struct {
	Statement       string
	ExpectedAnswer  string
	GradingCriteria string
	MaxPoints       float64
	StudentAnswer   string
}

// BuildGradeSystemPrompt instructs the model to act as a grader and answer
// with a strict {score, feedback} JSON object.
func BuildGradeSystemPrompt(p GradePrompt) string {
	var sb strings.Builder
	sb.WriteString("You are grading one answer from a written exam.\n\n")
	sb.WriteString("QUESTION: " + p.Statement + "\n\n")
	sb.WriteString(fmt.Sprintf("MAX POINTS: %g\n\n", p.MaxPoints))
	if p.ExpectedAnswer != "" {
		sb.WriteString("EXPECTED ANSWER (not shown to the student):\n" + p.ExpectedAnswer + "\n\n")
	}
	if p.GradingCriteria != "" {
		sb.WriteString("GRADING CRITERIA:\n" + p.GradingCriteria + "\n\n")
	}
	sb.WriteString("Evaluate the student's answer for correctness and completeness. ")
	sb.WriteString("Partial credit is allowed.\n")
	sb.WriteString("Respond ONLY with a JSON object:\n")
	sb.WriteString(fmt.Sprintf(`{"score": <number 0 to %g>, "feedback": "<brief feedback for the student>"}`, p.MaxPoints))
	sb.WriteString("\n")
	return sb.String()
}

func BuildGradeUserPrompt(p GradePrompt) string {
	answer := strings.TrimSpace(p.StudentAnswer)
	if answer == "" {
		answer = "(no answer given)"
	}
	return "STUDENT ANSWER:\n" + answer + "\n"
}

// DraftPrompt asks for a batch of new question drafts.
type DraftPrompt struct {
	QuestionType string
	Difficulty   string
	Topic        string
	Count        int
}

// BuildDraftSystemPrompt instructs the model to draft bank items in the same
// envelope format the store persists, so drafts can be validated directly.
func BuildDraftSystemPrompt(p DraftPrompt) string {
	var sb strings.Builder
	sb.WriteString("You write exam questions for teachers.\n")
	sb.WriteString(fmt.Sprintf("Produce %d questions of type %q, difficulty %q, about: %s\n\n",
		p.Count, p.QuestionType, p.Difficulty, p.Topic))
	sb.WriteString("Respond ONLY with a JSON object {\"items\": [...]}. Each item is an object\n")
	sb.WriteString(`{"type": "<question type>", "payload": <payload>}` + "\n")
	sb.WriteString("where payload depends on type:\n")
	sb.WriteString(`- multiple_choice: {"statement", "options_by_letter": {"a": ..., "b": ...}, "correct_letter"}` + "\n")
	sb.WriteString(`- true_false: {"statement", "correct_boolean"}` + "\n")
	sb.WriteString(`- open_ended: {"statement", "expected_answer", "grading_criteria"}` + "\n")
	sb.WriteString(`- matching: {"statement", "column_a": [...], "column_b": [...], "correct_matches": {"0": 1, ...}}` + "\n")
	return sb.String()
}
