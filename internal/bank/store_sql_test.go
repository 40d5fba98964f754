package bank

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Posologia-Edu/prova-facil/internal/db"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	h, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { h.Close() })
	return NewSQLStore(h)
}

func testItem(owner string) *Item {
	return &Item{
		OwnerID:    owner,
		Type:       TypeMultipleChoice,
		Difficulty: DifficultyMedium,
		Tags:       []string{"algebra"},
		Content: MultipleChoiceContent{
			Statement:       "Solve x+1=2",
			OptionsByLetter: map[string]string{"A": "0", "B": "1"},
			CorrectLetter:   "B",
		},
	}
}

func TestStorePutGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	it := testItem("t1")
	if err := s.Put(ctx, it); err != nil {
		t.Fatal(err)
	}
	if it.ID == "" {
		t.Fatal("Put did not assign an id")
	}

	got, err := s.Get(ctx, it.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != StateActive {
		t.Errorf("state = %s, want active", got.State)
	}
	mc, ok := got.Content.(MultipleChoiceContent)
	if !ok {
		t.Fatalf("content type = %T", got.Content)
	}
	if mc.CorrectLetter != "B" {
		t.Errorf("correct letter = %q", mc.CorrectLetter)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "algebra" {
		t.Errorf("tags = %v", got.Tags)
	}

	// Update in place keeps the id and created_at.
	mc.Statement = "Solve x+2=3"
	got.Content = mc
	if err := s.Put(ctx, got); err != nil {
		t.Fatal(err)
	}
	again, err := s.Get(ctx, it.ID)
	if err != nil {
		t.Fatal(err)
	}
	if Statement(again.Content) != "Solve x+2=3" {
		t.Errorf("statement not updated: %q", Statement(again.Content))
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing id: err = %v, want ErrNotFound", err)
	}
}

func TestStorePutRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	bad := testItem("t1")
	bad.Difficulty = "impossible"
	if err := s.Put(context.Background(), bad); err == nil {
		t.Fatal("invalid difficulty accepted")
	}
}

func TestStoreListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := testItem("t1")
	if err := s.Put(ctx, a); err != nil {
		t.Fatal(err)
	}
	b := &Item{
		OwnerID:    "t1",
		Type:       TypeOpenEnded,
		Difficulty: DifficultyHard,
		Tags:       []string{"biology"},
		Content:    OpenEndedContent{Statement: "Describe mitosis."},
	}
	if err := s.Put(ctx, b); err != nil {
		t.Fatal(err)
	}
	other := testItem("t2")
	if err := s.Put(ctx, other); err != nil {
		t.Fatal(err)
	}

	got, err := s.List(ctx, ListOpts{OwnerID: "t1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("owner filter: got %d items, want 2", len(got))
	}

	got, err = s.List(ctx, ListOpts{OwnerID: "t1", Type: TypeOpenEnded})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("type filter: got %v", got)
	}

	got, err = s.List(ctx, ListOpts{OwnerID: "t1", Tag: "biology"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("tag filter: got %v", got)
	}
}

func TestTrashLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	it := testItem("t1")
	if err := s.Put(ctx, it); err != nil {
		t.Fatal(err)
	}

	if err := s.Trash(ctx, "t1", it.ID); err != nil {
		t.Fatal(err)
	}
	// Trashing twice, or someone else's item, is not found.
	if err := s.Trash(ctx, "t1", it.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double trash: err = %v", err)
	}
	if err := s.Trash(ctx, "t2", it.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign trash: err = %v", err)
	}

	// Trashed items leave the active list but appear in the trash list.
	active, err := s.List(ctx, ListOpts{OwnerID: "t1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Errorf("active list after trash: %d items", len(active))
	}
	trashed, err := s.List(ctx, ListOpts{OwnerID: "t1", Trashed: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(trashed) != 1 || trashed[0].TrashedAt == nil {
		t.Fatalf("trash list: %v", trashed)
	}

	if err := s.Restore(ctx, "t1", it.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Restore(ctx, "t1", it.ID); !errors.Is(err, ErrNotTrashed) {
		t.Errorf("restore active item: err = %v, want ErrNotTrashed", err)
	}
	got, err := s.Get(ctx, it.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != StateActive || got.TrashedAt != nil {
		t.Errorf("after restore: state=%s trashedAt=%v", got.State, got.TrashedAt)
	}
}

func TestEmptyTrashAndPurge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		it := testItem("t1")
		if err := s.Put(ctx, it); err != nil {
			t.Fatal(err)
		}
		if i < 2 {
			if err := s.Trash(ctx, "t1", it.ID); err != nil {
				t.Fatal(err)
			}
		}
	}

	n, err := s.EmptyTrash(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("EmptyTrash removed %d, want 2", n)
	}
	// The active item survived.
	active, err := s.List(ctx, ListOpts{OwnerID: "t1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 {
		t.Fatalf("active after empty trash: %d", len(active))
	}

	// Purge only removes items trashed at or before the cutoff.
	it := testItem("t1")
	if err := s.Put(ctx, it); err != nil {
		t.Fatal(err)
	}
	if err := s.Trash(ctx, "t1", it.ID); err != nil {
		t.Fatal(err)
	}
	n, err = s.PurgeTrashedBefore(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("purge with old cutoff removed %d, want 0", n)
	}
	n, err = s.PurgeTrashedBefore(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("purge removed %d, want 1", n)
	}
	if _, err := s.Get(ctx, it.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("purged item still readable: err = %v", err)
	}
}

func TestGetMany(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := testItem("t1")
	b := testItem("t1")
	for _, it := range []*Item{a, b} {
		if err := s.Put(ctx, it); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.GetMany(ctx, []string{a.ID, b.ID, "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d items, want 2", len(got))
	}
	if _, ok := got["missing"]; ok {
		t.Error("missing id present in result")
	}

	empty, err := s.GetMany(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("nil ids: got %d items", len(empty))
	}
}
