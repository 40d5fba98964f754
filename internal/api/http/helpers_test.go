package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Posologia-Edu/prova-facil/internal/exam"
	"github.com/Posologia-Edu/prova-facil/internal/llm"
)

func TestGateErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{exam.ErrInvalidCode, http.StatusNotFound},
		{exam.ErrNotOpen, http.StatusForbidden},
		{exam.ErrClosed, http.StatusGone},
		{exam.ErrAlreadyCompleted, http.StatusConflict},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		if !gateError(rec, tc.err, nil) {
			t.Errorf("%v not handled", tc.err)
			continue
		}
		if rec.Code != tc.status {
			t.Errorf("%v: status = %d, want %d", tc.err, rec.Code, tc.status)
		}
	}

	// Unrelated errors pass through for the caller's generic handling.
	rec := httptest.NewRecorder()
	if gateError(rec, errors.New("boom"), nil) {
		t.Error("generic error consumed by gateError")
	}
}

func TestGateErrorCompletedIncludesSessionID(t *testing.T) {
	rec := httptest.NewRecorder()
	sess := &exam.Session{ID: "s1"}
	if !gateError(rec, fmt.Errorf("wrapped: %w", exam.ErrAlreadyCompleted), sess) {
		t.Fatal("not handled")
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["session_id"] != "s1" {
		t.Errorf("body = %v", body)
	}
}

func TestLLMErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{llm.ErrRateLimited, http.StatusTooManyRequests},
		{llm.ErrQuotaExhausted, http.StatusPaymentRequired},
		{llm.ErrMalformed, http.StatusBadGateway},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		if !llmError(rec, fmt.Errorf("call failed: %w", tc.err)) {
			t.Errorf("%v not handled", tc.err)
			continue
		}
		if rec.Code != tc.status {
			t.Errorf("%v: status = %d, want %d", tc.err, rec.Code, tc.status)
		}
	}
	rec := httptest.NewRecorder()
	if llmError(rec, errors.New("boom")) {
		t.Error("generic error consumed by llmError")
	}
}

func TestParseIntDefault(t *testing.T) {
	cases := []struct {
		in   string
		def  int
		want int
	}{
		{"", 5, 5},
		{"3", 5, 3},
		{"0", 5, 0},
		{"-2", 5, 5},
		{"abc", 5, 5},
	}
	for _, tc := range cases {
		if got := parseIntDefault(tc.in, tc.def); got != tc.want {
			t.Errorf("parseIntDefault(%q, %d) = %d, want %d", tc.in, tc.def, got, tc.want)
		}
	}
}
