package http

import (
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Posologia-Edu/prova-facil/internal/bank"
	"github.com/Posologia-Edu/prova-facil/internal/blueprint"
	"github.com/Posologia-Edu/prova-facil/internal/print"
	"github.com/Posologia-Edu/prova-facil/internal/rbac"
)

// POST /exams and PUT /exams/{examID}: title and header only; sections are
// edited through the dedicated operations below.
func PutBlueprintHandler(store blueprint.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title  string           `json:"title"`
			Header blueprint.Header `json:"header"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Title == "" {
			http.Error(w, "title required", http.StatusBadRequest)
			return
		}
		owner := rbac.SubjectFromContext(r.Context())
		id := chi.URLParam(r, "examID")
		bp := &blueprint.Blueprint{ID: id, OwnerID: owner, Title: req.Title, Header: req.Header}
		if id != "" {
			existing, _ := loadOwnedBlueprint(store, w, r)
			if existing == nil {
				return
			}
			existing.Title = req.Title
			existing.Header = req.Header
			bp = existing
		}
		if err := store.Put(r.Context(), bp); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, bp)
	}
}

func GetBlueprintHandler(store blueprint.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bp, _ := loadOwnedBlueprint(store, w, r)
		if bp == nil {
			return
		}
		writeJSON(w, http.StatusOK, bp)
	}
}

func ListBlueprintsHandler(store blueprint.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := store.List(r.Context(), blueprint.ListOpts{
			OwnerID: rbac.SubjectFromContext(r.Context()),
			Limit:   parseIntDefault(q.Get("limit"), 50),
			Offset:  parseIntDefault(q.Get("offset"), 0),
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []blueprint.Summary{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func DeleteBlueprintHandler(store blueprint.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := rbac.SubjectFromContext(r.Context())
		if err := store.Delete(r.Context(), owner, chi.URLParam(r, "examID")); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// POST /exams/{examID}/sections
func AddSectionHandler(store blueprint.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		bp, _ := loadOwnedBlueprint(store, w, r)
		if bp == nil {
			return
		}
		sec := bp.AddSection(req.Name)
		if err := store.Put(r.Context(), bp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, sec)
	}
}

// POST /exams/{examID}/sections/{sectionID}/questions
func AddQuestionHandler(store blueprint.Store, bankStore bank.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			BankItemID string  `json:"bank_item_id"`
			Points     float64 `json:"points"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		bp, _ := loadOwnedBlueprint(store, w, r)
		if bp == nil {
			return
		}
		// Trashed items cannot be composed into exams.
		item, err := bankStore.Get(r.Context(), req.BankItemID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if item.State != bank.StateActive {
			http.Error(w, "bank item is in the trash", http.StatusConflict)
			return
		}
		ref, err := bp.AddQuestion(chi.URLParam(r, "sectionID"), req.BankItemID, req.Points)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, blueprint.ErrDuplicateQuestion) {
				status = http.StatusConflict
			}
			http.Error(w, err.Error(), status)
			return
		}
		if err := store.Put(r.Context(), bp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, ref)
	}
}

// DELETE /exams/{examID}/sections/{sectionID}/questions/{refID}
func RemoveQuestionHandler(store blueprint.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bp, _ := loadOwnedBlueprint(store, w, r)
		if bp == nil {
			return
		}
		if err := bp.RemoveQuestion(chi.URLParam(r, "sectionID"), chi.URLParam(r, "refID")); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err := store.Put(r.Context(), bp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	}
}

// GET /exams/{examID}/print?versions=2 renders the shuffled print variants
// and their answer keys for the PDF step.
func PrintBlueprintHandler(store blueprint.Store, bankStore bank.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bp, _ := loadOwnedBlueprint(store, w, r)
		if bp == nil {
			return
		}
		n := parseIntDefault(r.URL.Query().Get("versions"), 1)
		items, err := bankStore.GetMany(r.Context(), bp.BankItemIDs())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		pages, err := print.RenderVersions(bp, items, n, rng)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, print.ErrEmptyBlueprint) {
				status = http.StatusUnprocessableEntity
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, http.StatusOK, pages)
	}
}

// loadOwnedBlueprint fetches the exam and enforces ownership; it writes the
// error response itself and returns nil when the caller should stop.
func loadOwnedBlueprint(store blueprint.Store, w http.ResponseWriter, r *http.Request) (*blueprint.Blueprint, error) {
	bp, err := store.Get(r.Context(), chi.URLParam(r, "examID"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return nil, err
	}
	if bp.OwnerID != rbac.SubjectFromContext(r.Context()) && rbac.RoleFromContext(r.Context()) != "admin" {
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil, errors.New("forbidden")
	}
	return bp, nil
}
