package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Posologia-Edu/prova-facil/internal/blueprint"
	"github.com/Posologia-Edu/prova-facil/internal/exam"
	"github.com/Posologia-Edu/prova-facil/internal/rbac"
)

// POST /exams/{examID}/publish freezes the blueprint into a publication and
// returns its access code.
func PublishExamHandler(svc *exam.Service, store blueprint.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TimeLimitMinutes int        `json:"time_limit_minutes"`
			StartAt          *time.Time `json:"start_at,omitempty"`
			EndAt            *time.Time `json:"end_at,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		bp, _ := loadOwnedBlueprint(store, w, r)
		if bp == nil {
			return
		}
		pub, err := svc.Publish(r.Context(), bp, rbac.SubjectFromContext(r.Context()), exam.PublishOpts{
			TimeLimitMinutes: req.TimeLimitMinutes,
			StartAt:          req.StartAt,
			EndAt:            req.EndAt,
		})
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, exam.ErrEmptyExam) {
				status = http.StatusUnprocessableEntity
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, http.StatusOK, pub)
	}
}

// POST /publications/{publicationID}/close
func ClosePublicationHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := rbac.SubjectFromContext(r.Context())
		err := svc.Store().SetPublicationActive(r.Context(), owner, chi.URLParam(r, "publicationID"), false)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
	}
}

func ListPublicationsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.Store().ListPublications(r.Context(), rbac.SubjectFromContext(r.Context()))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []*exam.Publication{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /publications/{publicationID}/sessions backs the monitoring dashboard:
// consumers re-fetch this list whenever the event stream fires.
func ListPublicationSessionsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pubID := chi.URLParam(r, "publicationID")
		pub, err := svc.Store().GetPublication(r.Context(), pubID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if pub.OwnerID != rbac.SubjectFromContext(r.Context()) && rbac.RoleFromContext(r.Context()) != "admin" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		sessions, err := svc.Store().ListSessions(r.Context(), pubID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if sessions == nil {
			sessions = []*exam.Session{}
		}
		writeJSON(w, http.StatusOK, sessions)
	}
}
