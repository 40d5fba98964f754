package bank

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/Posologia-Edu/prova-facil/internal/llm"
)

type fakeCompleter struct {
	response []byte
	err      error
}

func (f fakeCompleter) CompleteJSON(context.Context, string, string) ([]byte, error) {
	return f.response, f.err
}

func TestDraftSkipsMalformedItems(t *testing.T) {
	resp := []byte(`{"items":[
		{"type":"true_false","payload":{"statement":"The sun is a star.","correct_boolean":true}},
		{"type":"true_false","payload":{"statement":""}},
		{"type":"multiple_choice","payload":{"statement":"wrong type","options_by_letter":{"A":"1","B":"2"},"correct_letter":"A"}},
		{"broken": true}
	]}`)
	g := NewGenerator(fakeCompleter{response: resp}, zap.NewNop())

	items, err := g.Draft(context.Background(), DraftRequest{
		OwnerID: "t1", Type: TypeTrueFalse, Difficulty: DifficultyEasy, Topic: "astronomy", Count: 4,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d drafts, want 1", len(items))
	}
	it := items[0]
	if it.OwnerID != "t1" || it.Type != TypeTrueFalse || it.State != StateActive {
		t.Errorf("draft metadata: %+v", it)
	}
	if err := it.Validate(); err != nil {
		t.Errorf("returned draft does not validate: %v", err)
	}
}

func TestDraftPropagatesTerminalErrors(t *testing.T) {
	g := NewGenerator(fakeCompleter{err: llm.ErrQuotaExhausted}, zap.NewNop())
	_, err := g.Draft(context.Background(), DraftRequest{Type: TypeOpenEnded, Difficulty: DifficultyHard, Count: 2})
	if !errors.Is(err, llm.ErrQuotaExhausted) {
		t.Fatalf("err = %v, want ErrQuotaExhausted", err)
	}
}

func TestDraftRejectsUnknownType(t *testing.T) {
	g := NewGenerator(fakeCompleter{}, zap.NewNop())
	if _, err := g.Draft(context.Background(), DraftRequest{Type: "haiku"}); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("err = %v, want ErrUnknownType", err)
	}
}

func TestDraftMalformedEnvelope(t *testing.T) {
	g := NewGenerator(fakeCompleter{response: []byte(`not json`)}, zap.NewNop())
	_, err := g.Draft(context.Background(), DraftRequest{Type: TypeTrueFalse, Difficulty: DifficultyEasy})
	if !errors.Is(err, llm.ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}
