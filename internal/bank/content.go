package bank

import (
	"encoding/json"
	"fmt"
	"strings"
)

// QuestionType discriminates the content payload of a bank item.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeTrueFalse      QuestionType = "true_false"
	TypeOpenEnded      QuestionType = "open_ended"
	TypeMatching       QuestionType = "matching"
)

// Objective reports whether items of this type are auto-gradable by rule.
// Open-ended and matching answers go through AI or teacher review instead.
func (t QuestionType) Objective() bool {
	return t == TypeMultipleChoice || t == TypeTrueFalse
}

func (t QuestionType) Valid() bool {
	switch t {
	case TypeMultipleChoice, TypeTrueFalse, TypeOpenEnded, TypeMatching:
		return true
	}
	return false
}

// Content is the type-specific payload of a bank item. Each concrete type
// validates its own shape; consumers switch exhaustively on the concrete type.
type Content interface {
	Type() QuestionType
	Validate() error
}

// MultipleChoiceContent holds lettered options and the single correct letter.
type MultipleChoiceContent struct {
	Statement       string            `json:"statement"`
	OptionsByLetter map[string]string `json:"options_by_letter"`
	CorrectLetter   string            `json:"correct_letter"`
}

func (MultipleChoiceContent) Type() QuestionType { return TypeMultipleChoice }

func (c MultipleChoiceContent) Validate() error {
	if strings.TrimSpace(c.Statement) == "" {
		return fmt.Errorf("multiple_choice: %w: statement", ErrMissingField)
	}
	if len(c.OptionsByLetter) < 2 {
		return fmt.Errorf("multiple_choice: at least two options required")
	}
	if _, ok := c.OptionsByLetter[c.CorrectLetter]; !ok {
		return fmt.Errorf("multiple_choice: correct letter %q not among options", c.CorrectLetter)
	}
	return nil
}

type TrueFalseContent struct {
	Statement      string `json:"statement"`
	CorrectBoolean bool   `json:"correct_boolean"`
}

func (TrueFalseContent) Type() QuestionType { return TypeTrueFalse }

func (c TrueFalseContent) Validate() error {
	if strings.TrimSpace(c.Statement) == "" {
		return fmt.Errorf("true_false: %w: statement", ErrMissingField)
	}
	return nil
}

// OpenEndedContent carries the model answer and criteria used by AI/teacher
// grading; neither is shown to students.
type OpenEndedContent struct {
	Statement       string `json:"statement"`
	ExpectedAnswer  string `json:"expected_answer"`
	GradingCriteria string `json:"grading_criteria,omitempty"`
}

func (OpenEndedContent) Type() QuestionType { return TypeOpenEnded }

func (c OpenEndedContent) Validate() error {
	if strings.TrimSpace(c.Statement) == "" {
		return fmt.Errorf("open_ended: %w: statement", ErrMissingField)
	}
	return nil
}

// MatchingContent pairs entries of column A with entries of column B.
// CorrectMatches maps an index into ColumnA to an index into ColumnB.
type MatchingContent struct {
	Statement      string      `json:"statement"`
	ColumnA        []string    `json:"column_a"`
	ColumnB        []string    `json:"column_b"`
	CorrectMatches map[int]int `json:"correct_matches"`
}

func (MatchingContent) Type() QuestionType { return TypeMatching }

func (c MatchingContent) Validate() error {
	if len(c.ColumnA) == 0 || len(c.ColumnB) == 0 {
		return fmt.Errorf("matching: both columns must be non-empty")
	}
	if len(c.CorrectMatches) == 0 {
		return fmt.Errorf("matching: %w: correct_matches", ErrMissingField)
	}
	for a, b := range c.CorrectMatches {
		if a < 0 || a >= len(c.ColumnA) {
			return fmt.Errorf("matching: match source %d out of range", a)
		}
		if b < 0 || b >= len(c.ColumnB) {
			return fmt.Errorf("matching: match target %d out of range", b)
		}
	}
	return nil
}

// contentEnvelope is the stored JSON form: the item row's type column is the
// discriminator, so the envelope only wraps the payload bytes.
type contentEnvelope struct {
	Type    QuestionType    `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// MarshalContent encodes a content payload with its type discriminator.
func MarshalContent(c Content) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("nil content")
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return json.Marshal(contentEnvelope{Type: c.Type(), Payload: payload})
}

// UnmarshalContent decodes an envelope produced by MarshalContent and checks
// that the payload shape matches the declared type.
func UnmarshalContent(data []byte) (Content, error) {
	var env contentEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("content envelope: %w", err)
	}
	var c Content
	switch env.Type {
	case TypeMultipleChoice:
		var v MultipleChoiceContent
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, fmt.Errorf("multiple_choice payload: %w", err)
		}
		c = v
	case TypeTrueFalse:
		var v TrueFalseContent
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, fmt.Errorf("true_false payload: %w", err)
		}
		c = v
	case TypeOpenEnded:
		var v OpenEndedContent
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, fmt.Errorf("open_ended payload: %w", err)
		}
		c = v
	case TypeMatching:
		var v MatchingContent
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, fmt.Errorf("matching payload: %w", err)
		}
		c = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Statement returns the student-facing prompt of any content payload.
func Statement(c Content) string {
	switch v := c.(type) {
	case MultipleChoiceContent:
		return v.Statement
	case TrueFalseContent:
		return v.Statement
	case OpenEndedContent:
		return v.Statement
	case MatchingContent:
		return v.Statement
	default:
		return ""
	}
}
