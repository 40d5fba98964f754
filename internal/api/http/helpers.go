package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Posologia-Edu/prova-facil/internal/exam"
	"github.com/Posologia-Edu/prova-facil/internal/llm"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}

// gateError maps publication-gate failures to distinct user-facing responses.
func gateError(w http.ResponseWriter, err error, sess *exam.Session) bool {
	switch {
	case errors.Is(err, exam.ErrInvalidCode):
		http.Error(w, "invalid access code", http.StatusNotFound)
	case errors.Is(err, exam.ErrNotOpen):
		http.Error(w, "this exam has not opened yet", http.StatusForbidden)
	case errors.Is(err, exam.ErrClosed):
		http.Error(w, "this exam window has closed", http.StatusGone)
	case errors.Is(err, exam.ErrAlreadyCompleted):
		// Point the student at their existing result instead of a new attempt.
		payload := map[string]interface{}{"error": "exam already completed"}
		if sess != nil {
			payload["session_id"] = sess.ID
		}
		writeJSON(w, http.StatusConflict, payload)
	default:
		return false
	}
	return true
}

// llmError surfaces terminal text-generation failures with distinct messages;
// the user is told to wait or upgrade, never auto-retried.
func llmError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, llm.ErrRateLimited):
		http.Error(w, "AI service rate limit reached, try again in a moment", http.StatusTooManyRequests)
	case errors.Is(err, llm.ErrQuotaExhausted):
		http.Error(w, "AI quota exhausted, upgrade your plan or wait for the next cycle", http.StatusPaymentRequired)
	case errors.Is(err, llm.ErrMalformed):
		http.Error(w, "AI service returned an unusable response", http.StatusBadGateway)
	default:
		return false
	}
	return true
}
