package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Posologia-Edu/prova-facil/internal/exam"
	"github.com/Posologia-Edu/prova-facil/internal/rbac"
)

// ownedSession resolves the session and requires the caller to own its
// publication (admins pass). Writes the error response itself on failure.
func ownedSession(w http.ResponseWriter, r *http.Request, svc *exam.Service, id string) bool {
	sess, err := svc.Store().GetSession(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return false
	}
	pub, err := svc.Store().GetPublication(r.Context(), sess.PublicationID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return false
	}
	if pub.OwnerID != rbac.SubjectFromContext(r.Context()) && rbac.RoleFromContext(r.Context()) != "admin" {
		http.Error(w, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

// GET /sessions/{sessionID}/answers is the teacher review view, answer keys and
// AI feedback included.
func GetSessionAnswersHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		if !ownedSession(w, r, svc, id) {
			return
		}
		answers, err := svc.Store().GetAnswers(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if answers == nil {
			answers = []*exam.Answer{}
		}
		writeJSON(w, http.StatusOK, answers)
	}
}

// POST /sessions/{sessionID}/answers/{questionID}/grade records a teacher
// override. The stored session total is NOT recomputed here; use the
// recompute endpoint.
func TeacherGradeHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Score    float64 `json:"score"`
			Feedback string  `json:"feedback,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		id := chi.URLParam(r, "sessionID")
		if !ownedSession(w, r, svc, id) {
			return
		}
		err := svc.TeacherGrade(r.Context(), id, chi.URLParam(r, "questionID"),
			req.Score, req.Feedback)
		if err != nil {
			switch {
			case errors.Is(err, exam.ErrSessionClosed):
				http.Error(w, "session is still in progress", http.StatusConflict)
			case errors.Is(err, exam.ErrUnknownQuestion), errors.Is(err, exam.ErrSessionNotFound):
				http.Error(w, err.Error(), http.StatusNotFound)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "graded"})
	}
}

// POST /sessions/{sessionID}/recompute re-aggregates the session total from
// the stored answers, honoring teacher overrides.
func RecomputeSessionHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		if !ownedSession(w, r, svc, id) {
			return
		}
		sess, err := svc.Recompute(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, exam.ErrSessionClosed):
				http.Error(w, "session is still in progress", http.StatusConflict)
			case errors.Is(err, exam.ErrSessionNotFound):
				http.Error(w, err.Error(), http.StatusNotFound)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}
