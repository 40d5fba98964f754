package exam

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Posologia-Edu/prova-facil/internal/bank"
	"github.com/Posologia-Edu/prova-facil/internal/grading"
	"github.com/Posologia-Edu/prova-facil/internal/llm"
)

// Completer is the slice of the LLM client the AI grader needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) ([]byte, error)
}

// AIGrader runs the subjective grading batch for one submitted session. It is
// driven by the outbox worker, never by the student's browser.
type AIGrader struct {
	store  *SQLStore
	bank   bank.Store
	client Completer
	events Events
	log    *zap.Logger
}

func NewAIGrader(store *SQLStore, bankStore bank.Store, client Completer, events Events, log *zap.Logger) *AIGrader {
	if events == nil {
		events = NopEvents()
	}
	return &AIGrader{store: store, bank: bankStore, client: client, events: events, log: log}
}

type aiVerdict struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// GradeSession grades every pending subjective answer in the session, then
// recomputes the session total and marks the session graded. A single
// answer's failure is logged and skipped; terminal API errors (rate limit,
// quota) abort the batch so the outbox can record the failure.
func (g *AIGrader) GradeSession(ctx context.Context, sessionID string) error {
	sess, err := g.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Status == StatusInProgress {
		return ErrSessionClosed
	}
	pub, err := g.store.GetPublication(ctx, sess.PublicationID)
	if err != nil {
		return err
	}
	answers, err := g.store.GetAnswers(ctx, sessionID)
	if err != nil {
		return err
	}
	items, err := g.bank.GetMany(ctx, pub.Snapshot.BankItemIDs())
	if err != nil {
		return err
	}

	for _, a := range answers {
		if a.GradingStatus != GradingPending {
			continue
		}
		item, ok := items[a.QuestionID]
		if !ok || item.Type.Objective() {
			continue
		}
		if err := g.gradeOne(ctx, a, item); err != nil {
			if llm.Terminal(err) {
				return err
			}
			g.log.Warn("subjective grading skipped answer",
				zap.String("session", sessionID), zap.String("question", a.QuestionID), zap.Error(err))
		}
	}

	// The batch always closes with a full re-aggregation, even if some
	// answers stayed pending.
	answers, err = g.store.GetAnswers(ctx, sessionID)
	if err != nil {
		return err
	}
	scored := make([]grading.Scored, len(answers))
	for i, a := range answers {
		scored[i] = a.Scored()
	}
	total, max := grading.Aggregate(scored)
	if err := g.store.UpdateSessionTotals(ctx, sessionID, total, max, StatusGraded); err != nil {
		return err
	}
	g.events.Publish(ctx, Event{Type: "session_graded", PublicationID: pub.ID, SessionID: sessionID})
	return nil
}

func (g *AIGrader) gradeOne(ctx context.Context, a *Answer, item *bank.Item) error {
	p := llm.GradePrompt{
		Statement:     bank.Statement(item.Content),
		MaxPoints:     a.MaxPoints,
		StudentAnswer: answerText(item, a.Response),
	}
	switch c := item.Content.(type) {
	case bank.OpenEndedContent:
		p.ExpectedAnswer = c.ExpectedAnswer
		p.GradingCriteria = c.GradingCriteria
	case bank.MatchingContent:
		p.ExpectedAnswer = matchingKeyText(c)
	}
	raw, err := g.client.CompleteJSON(ctx, llm.BuildGradeSystemPrompt(p), llm.BuildGradeUserPrompt(p))
	if err != nil {
		return err
	}
	var v aiVerdict
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%w: %v", llm.ErrMalformed, err)
	}
	score := grading.Clamp(v.Score, a.MaxPoints)
	return g.store.UpdateAnswerAI(ctx, a.SessionID, a.QuestionID, score, v.Feedback)
}

// answerText flattens a structured response into prose for the grader prompt.
func answerText(item *bank.Item, resp grading.Response) string {
	if c, ok := item.Content.(bank.MatchingContent); ok && len(resp.Matches) > 0 {
		return matchingText(c, resp.Matches)
	}
	return resp.Text
}

func matchingKeyText(c bank.MatchingContent) string {
	return matchingText(c, c.CorrectMatches)
}

// matchingText renders pairs in column A order so the prompt is stable
// across runs.
func matchingText(c bank.MatchingContent, pairs map[int]int) string {
	keys := make([]int, 0, len(pairs))
	for a := range pairs {
		keys = append(keys, a)
	}
	sort.Ints(keys)
	var sb strings.Builder
	for _, a := range keys {
		b := pairs[a]
		if a < 0 || a >= len(c.ColumnA) || b < 0 || b >= len(c.ColumnB) {
			continue
		}
		fmt.Fprintf(&sb, "%s -> %s\n", c.ColumnA[a], c.ColumnB[b])
	}
	return sb.String()
}
