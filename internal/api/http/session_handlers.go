package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Posologia-Edu/prova-facil/internal/exam"
	"github.com/Posologia-Edu/prova-facil/internal/grading"
	"github.com/Posologia-Edu/prova-facil/internal/rbac"
)

// POST /sessions  { "access_code": "..." } is the publication gate. Resumes an
// in-progress session, refuses a completed one, creates a fresh one
// otherwise.
func EnterExamHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AccessCode string `json:"access_code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		student := rbac.SubjectFromContext(r.Context())
		sess, pub, err := svc.Enter(r.Context(), req.AccessCode, student)
		if err != nil {
			if gateError(w, err, sess) {
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"session":            sess,
			"time_limit_minutes": pub.TimeLimitMinutes,
		})
	}
}

// GET /sessions/{sessionID} serves the session plus the answer-key-free
// question set and the remaining seconds. An expired session is submitted
// before anything is returned.
func GetSessionHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, pub, remaining, err := svc.Load(r.Context(), chi.URLParam(r, "sessionID"), "")
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if !canViewSession(r, sess, pub) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		questions, err := svc.StudentView(r.Context(), pub)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"session":           sess,
			"sections":          questions,
			"remaining_seconds": int(remaining.Seconds()),
		})
	}
}

// PUT /sessions/{sessionID}/answers/{questionID} upserts one response while
// the clock runs.
func SaveAnswerHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var resp grading.Response
		if err := json.NewDecoder(r.Body).Decode(&resp); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		student := rbac.SubjectFromContext(r.Context())
		err := svc.SaveAnswer(r.Context(), chi.URLParam(r, "sessionID"), student, chi.URLParam(r, "questionID"), resp)
		if err != nil {
			switch err {
			case exam.ErrTimeUp, exam.ErrSessionClosed:
				http.Error(w, err.Error(), http.StatusConflict)
			case exam.ErrUnknownQuestion:
				http.Error(w, err.Error(), http.StatusNotFound)
			default:
				http.Error(w, err.Error(), http.StatusBadRequest)
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
	}
}

// GET /sessions/{sessionID}/summary feeds the manual-submit confirmation
// dialog with the unanswered count.
func SessionSummaryHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		sess, pub, _, err := svc.Load(r.Context(), id, "")
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if !canViewSession(r, sess, pub) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		n, err := svc.Unanswered(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"unanswered": n})
	}
}

// POST /sessions/{sessionID}/submit finalizes the attempt. Idempotent:
// resubmitting returns the already-submitted session.
func SubmitSessionHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		loaded, pub, _, err := svc.Load(r.Context(), id, "")
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if !canViewSession(r, loaded, pub) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		sess, err := svc.Submit(r.Context(), id, false)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

// canViewSession reports whether the caller may read the session: the
// student it belongs to, the teacher who owns the publication, or an admin.
func canViewSession(r *http.Request, sess *exam.Session, pub *exam.Publication) bool {
	sub := rbac.SubjectFromContext(r.Context())
	switch rbac.RoleFromContext(r.Context()) {
	case "admin":
		return true
	case "teacher":
		return pub.OwnerID == sub
	default:
		return sess.StudentID == sub
	}
}
