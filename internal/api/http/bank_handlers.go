package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Posologia-Edu/prova-facil/internal/bank"
	"github.com/Posologia-Edu/prova-facil/internal/rbac"
)

type bankItemReq struct {
	Type       bank.QuestionType `json:"type"`
	Difficulty bank.Difficulty   `json:"difficulty"`
	BloomLevel string            `json:"bloom_level,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
	Content    json.RawMessage   `json:"content"`
}

func (r bankItemReq) toItem(ownerID, id string) (*bank.Item, error) {
	env, err := json.Marshal(struct {
		Type    bank.QuestionType `json:"type"`
		Payload json.RawMessage   `json:"payload"`
	}{r.Type, r.Content})
	if err != nil {
		return nil, err
	}
	content, err := bank.UnmarshalContent(env)
	if err != nil {
		return nil, err
	}
	return &bank.Item{
		ID:         id,
		OwnerID:    ownerID,
		Type:       r.Type,
		Difficulty: r.Difficulty,
		BloomLevel: r.BloomLevel,
		Tags:       r.Tags,
		Content:    content,
	}, nil
}

// POST /bank-items and PUT /bank-items/{itemID}
func PutBankItemHandler(store bank.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bankItemReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		owner := rbac.SubjectFromContext(r.Context())
		it, err := req.toItem(owner, chi.URLParam(r, "itemID"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := store.Put(r.Context(), it); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, it)
	}
}

func GetBankItemHandler(store bank.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		it, err := store.Get(r.Context(), chi.URLParam(r, "itemID"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if it.OwnerID != rbac.SubjectFromContext(r.Context()) && rbac.RoleFromContext(r.Context()) != "admin" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		writeJSON(w, http.StatusOK, it)
	}
}

// GET /bank-items?type=...&difficulty=...&tag=...&trashed=1
func ListBankItemsHandler(store bank.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		items, err := store.List(r.Context(), bank.ListOpts{
			OwnerID:    rbac.SubjectFromContext(r.Context()),
			Type:       bank.QuestionType(q.Get("type")),
			Difficulty: bank.Difficulty(q.Get("difficulty")),
			Tag:        q.Get("tag"),
			Trashed:    q.Get("trashed") == "1",
			Limit:      parseIntDefault(q.Get("limit"), 50),
			Offset:     parseIntDefault(q.Get("offset"), 0),
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if items == nil {
			items = []*bank.Item{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// DELETE /bank-items/{itemID} moves the item to the trash; the purge itself
// is the sweeper's job.
func TrashBankItemHandler(store bank.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := rbac.SubjectFromContext(r.Context())
		if err := store.Trash(r.Context(), owner, chi.URLParam(r, "itemID")); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "trashed"})
	}
}

func RestoreBankItemHandler(store bank.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := rbac.SubjectFromContext(r.Context())
		err := store.Restore(r.Context(), owner, chi.URLParam(r, "itemID"))
		if err != nil {
			status := http.StatusNotFound
			if errors.Is(err, bank.ErrNotTrashed) {
				status = http.StatusConflict
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
	}
}

// DELETE /bank-items/trash empties the caller's trash immediately.
func EmptyTrashHandler(store bank.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := rbac.SubjectFromContext(r.Context())
		n, err := store.EmptyTrash(r.Context(), owner)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"purged": n})
	}
}

// POST /bank-items/generate asks the AI collaborator for draft questions.
// Drafts are returned for review, not saved.
func GenerateBankItemsHandler(gen *bank.Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Type       bank.QuestionType `json:"type"`
			Difficulty bank.Difficulty   `json:"difficulty"`
			Topic      string            `json:"topic"`
			Count      int               `json:"count"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		drafts, err := gen.Draft(r.Context(), bank.DraftRequest{
			OwnerID:    rbac.SubjectFromContext(r.Context()),
			Type:       req.Type,
			Difficulty: req.Difficulty,
			Topic:      req.Topic,
			Count:      req.Count,
		})
		if err != nil {
			if llmError(w, err) {
				return
			}
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, drafts)
	}
}
