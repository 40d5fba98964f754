package grading

import (
	"strconv"
	"strings"

	"github.com/Posologia-Edu/prova-facil/internal/bank"
)

// Response is a student's answer to a single question. Selected carries the
// option letter or boolean string for objective types; Text the free-form
// answer; Matches the proposed column pairing.
type Response struct {
	Selected string      `json:"selected,omitempty"`
	Text     string      `json:"text,omitempty"`
	Matches  map[int]int `json:"matches,omitempty"`
}

func (r Response) Empty() bool {
	return strings.TrimSpace(r.Selected) == "" &&
		strings.TrimSpace(r.Text) == "" &&
		len(r.Matches) == 0
}

// Result is the outcome of grading one response.
type Result struct {
	IsCorrect    *bool   // nil until known (subjective types stay nil)
	PointsEarned float64 // 0 or full points for objective types
	MaxPoints    float64
	NeedsReview  bool // true when AI or teacher grading must decide
}

// Strategy grades a single response against the question content.
type Strategy interface {
	Grade(content bank.Content, points float64, resp Response) Result
}

// Grader routes by question type to the matching Strategy.
type Grader interface {
	Grade(content bank.Content, points float64, resp Response) Result
}

type defaultGrader struct {
	strategies map[bank.QuestionType]Strategy
}

// NewGrader installs the built-in strategies: exact-match scoring for
// objective types, review-required for subjective ones.
func NewGrader() Grader {
	return &defaultGrader{strategies: map[bank.QuestionType]Strategy{
		bank.TypeMultipleChoice: multipleChoiceStrategy{},
		bank.TypeTrueFalse:      trueFalseStrategy{},
		bank.TypeOpenEnded:      reviewStrategy{},
		bank.TypeMatching:       reviewStrategy{},
	}}
}

func (g *defaultGrader) Grade(content bank.Content, points float64, resp Response) Result {
	s, ok := g.strategies[content.Type()]
	if !ok {
		return Result{MaxPoints: points, NeedsReview: true}
	}
	return s.Grade(content, points, resp)
}

// multipleChoiceStrategy awards full points for the exact correct letter,
// zero otherwise. No partial credit.
type multipleChoiceStrategy struct{}

func (multipleChoiceStrategy) Grade(content bank.Content, points float64, resp Response) Result {
	res := Result{MaxPoints: points}
	c, ok := content.(bank.MultipleChoiceContent)
	if !ok {
		res.NeedsReview = true
		return res
	}
	correct := resp.Selected == c.CorrectLetter
	res.IsCorrect = &correct
	if correct {
		res.PointsEarned = points
	}
	return res
}

type trueFalseStrategy struct{}

func (trueFalseStrategy) Grade(content bank.Content, points float64, resp Response) Result {
	res := Result{MaxPoints: points}
	c, ok := content.(bank.TrueFalseContent)
	if !ok {
		res.NeedsReview = true
		return res
	}
	correct := resp.Selected == strconv.FormatBool(c.CorrectBoolean)
	res.IsCorrect = &correct
	if correct {
		res.PointsEarned = points
	}
	return res
}

// reviewStrategy defers open-ended and matching answers to AI or teacher
// grading: zero points, review required.
type reviewStrategy struct{}

func (reviewStrategy) Grade(_ bank.Content, points float64, _ Response) Result {
	return Result{MaxPoints: points, NeedsReview: true}
}
