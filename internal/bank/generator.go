package bank

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/Posologia-Edu/prova-facil/internal/llm"
)

// Completer is the slice of the LLM client the generator needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) ([]byte, error)
}

// Generator drafts new bank items with the text-generation collaborator.
// Drafts are validated before being returned; the teacher reviews and saves
// them explicitly.
type Generator struct {
	client Completer
	log    *zap.Logger
}

func NewGenerator(client Completer, log *zap.Logger) *Generator {
	return &Generator{client: client, log: log}
}

type DraftRequest struct {
	OwnerID    string
	Type       QuestionType
	Difficulty Difficulty
	Topic      string
	Count      int
}

// Draft asks the LLM for req.Count question drafts. Malformed drafts are
// skipped, not fatal; terminal API errors (rate limit, quota) propagate so
// the handler can surface them distinctly.
func (g *Generator) Draft(ctx context.Context, req DraftRequest) ([]*Item, error) {
	if !req.Type.Valid() {
		return nil, ErrUnknownType
	}
	if req.Count < 1 {
		req.Count = 1
	}
	if req.Count > 10 {
		req.Count = 10
	}
	p := llm.DraftPrompt{
		QuestionType: string(req.Type),
		Difficulty:   string(req.Difficulty),
		Topic:        req.Topic,
		Count:        req.Count,
	}
	raw, err := g.client.CompleteJSON(ctx, llm.BuildDraftSystemPrompt(p), "Generate the questions now.")
	if err != nil {
		return nil, err
	}
	var env struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrMalformed, err)
	}
	out := make([]*Item, 0, len(env.Items))
	for i, rawItem := range env.Items {
		c, err := UnmarshalContent(rawItem)
		if err != nil {
			g.log.Warn("skipping malformed draft", zap.Int("index", i), zap.Error(err))
			continue
		}
		if c.Type() != req.Type {
			g.log.Warn("skipping draft of wrong type", zap.Int("index", i), zap.String("got", string(c.Type())))
			continue
		}
		out = append(out, &Item{
			OwnerID:    req.OwnerID,
			Type:       req.Type,
			Difficulty: req.Difficulty,
			Tags:       []string{},
			Content:    c,
			State:      StateActive,
		})
	}
	return out, nil
}
