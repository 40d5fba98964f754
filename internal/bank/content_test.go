package bank

import (
	"errors"
	"testing"
)

func TestContentRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		content Content
	}{
		{"multiple choice", MultipleChoiceContent{
			Statement:       "2+2?",
			OptionsByLetter: map[string]string{"A": "3", "B": "4"},
			CorrectLetter:   "B",
		}},
		{"true false", TrueFalseContent{Statement: "The sky is blue.", CorrectBoolean: true}},
		{"open ended", OpenEndedContent{
			Statement:       "Explain osmosis.",
			ExpectedAnswer:  "Diffusion of water across a membrane.",
			GradingCriteria: "Mentions membrane and concentration gradient.",
		}},
		{"matching", MatchingContent{
			Statement:      "Match element to symbol",
			ColumnA:        []string{"Gold", "Iron"},
			ColumnB:        []string{"Fe", "Au"},
			CorrectMatches: map[int]int{0: 1, 1: 0},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := MarshalContent(tc.content)
			if err != nil {
				t.Fatal(err)
			}
			got, err := UnmarshalContent(data)
			if err != nil {
				t.Fatal(err)
			}
			if got.Type() != tc.content.Type() {
				t.Errorf("type = %s, want %s", got.Type(), tc.content.Type())
			}
			if Statement(got) != Statement(tc.content) {
				t.Errorf("statement = %q, want %q", Statement(got), Statement(tc.content))
			}
		})
	}
}

func TestUnmarshalContentRejectsBadPayloads(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"unknown type", `{"type":"essay","payload":{}}`},
		{"mc missing options", `{"type":"multiple_choice","payload":{"statement":"x","correct_letter":"A"}}`},
		{"mc correct letter absent", `{"type":"multiple_choice","payload":{"statement":"x","options_by_letter":{"A":"1","B":"2"},"correct_letter":"C"}}`},
		{"tf empty statement", `{"type":"true_false","payload":{"statement":"  ","correct_boolean":true}}`},
		{"matching index out of range", `{"type":"matching","payload":{"statement":"x","column_a":["a"],"column_b":["b"],"correct_matches":{"0":3}}}`},
		{"matching no key", `{"type":"matching","payload":{"statement":"x","column_a":["a"],"column_b":["b"],"correct_matches":{}}}`},
		{"not json", `nope`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := UnmarshalContent([]byte(tc.data)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestItemValidate(t *testing.T) {
	ok := Item{
		OwnerID:    "t1",
		Type:       TypeTrueFalse,
		Difficulty: DifficultyEasy,
		Content:    TrueFalseContent{Statement: "Water boils at 100C at sea level.", CorrectBoolean: true},
	}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid item: %v", err)
	}

	bad := ok
	bad.Type = "riddle"
	if err := bad.Validate(); !errors.Is(err, ErrUnknownType) {
		t.Errorf("unknown type: err = %v, want ErrUnknownType", err)
	}

	mismatch := ok
	mismatch.Type = TypeOpenEnded
	if err := mismatch.Validate(); err == nil {
		t.Error("type/content mismatch accepted")
	}

	noDiff := ok
	noDiff.Difficulty = ""
	if err := noDiff.Validate(); err == nil {
		t.Error("empty difficulty accepted")
	}
}

func TestObjective(t *testing.T) {
	if !TypeMultipleChoice.Objective() || !TypeTrueFalse.Objective() {
		t.Error("choice types must be objective")
	}
	if TypeOpenEnded.Objective() || TypeMatching.Objective() {
		t.Error("open-ended and matching must not be objective")
	}
}
