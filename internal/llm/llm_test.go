package llm

import (
	"errors"
	"fmt"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"quota", &openai.APIError{HTTPStatusCode: 429, Type: "insufficient_quota"}, ErrQuotaExhausted},
		{"rate limit", &openai.APIError{HTTPStatusCode: 429, Type: "requests"}, ErrRateLimited},
		{"server error", &openai.APIError{HTTPStatusCode: 500}, nil},
		{"plain error", errors.New("connection refused"), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.err)
			if tc.want != nil {
				if !errors.Is(got, tc.want) {
					t.Errorf("classify = %v, want %v", got, tc.want)
				}
				return
			}
			if errors.Is(got, ErrRateLimited) || errors.Is(got, ErrQuotaExhausted) {
				t.Errorf("classify wrongly terminal: %v", got)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	if !Terminal(ErrRateLimited) || !Terminal(ErrQuotaExhausted) {
		t.Error("sentinels must be terminal")
	}
	if !Terminal(fmt.Errorf("wrapped: %w", ErrQuotaExhausted)) {
		t.Error("wrapped sentinel must be terminal")
	}
	if Terminal(ErrMalformed) {
		t.Error("malformed output is retryable, not terminal")
	}
	if Terminal(errors.New("boom")) {
		t.Error("arbitrary errors are not terminal")
	}
}
