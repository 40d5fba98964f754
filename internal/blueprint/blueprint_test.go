package blueprint

import (
	"errors"
	"testing"
)

func newTestBlueprint(t *testing.T) *Blueprint {
	t.Helper()
	b := &Blueprint{ID: "bp1", OwnerID: "t1", Title: "Biology midterm"}
	sec := b.AddSection("Multiple choice")
	if _, err := b.AddQuestion(sec.ID, "q1", 2); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddQuestion(sec.ID, "q2", 3); err != nil {
		t.Fatal(err)
	}
	return b
}

func TestAddQuestionRejectsDuplicateAcrossSections(t *testing.T) {
	b := newTestBlueprint(t)
	other := b.AddSection("Essay")

	if _, err := b.AddQuestion(other.ID, "q1", 5); !errors.Is(err, ErrDuplicateQuestion) {
		t.Fatalf("duplicate in another section: err = %v, want ErrDuplicateQuestion", err)
	}
	if _, err := b.AddQuestion(b.Sections[0].ID, "q2", 5); !errors.Is(err, ErrDuplicateQuestion) {
		t.Fatalf("duplicate in same section: err = %v, want ErrDuplicateQuestion", err)
	}
	if _, err := b.AddQuestion(other.ID, "q3", 5); err != nil {
		t.Fatalf("fresh item: err = %v", err)
	}
}

func TestAddQuestionValidation(t *testing.T) {
	b := newTestBlueprint(t)
	if _, err := b.AddQuestion(b.Sections[0].ID, "q9", 0); !errors.Is(err, ErrInvalidPoints) {
		t.Errorf("zero points: err = %v, want ErrInvalidPoints", err)
	}
	if _, err := b.AddQuestion(b.Sections[0].ID, "q9", -1); !errors.Is(err, ErrInvalidPoints) {
		t.Errorf("negative points: err = %v, want ErrInvalidPoints", err)
	}
	if _, err := b.AddQuestion("nope", "q9", 1); !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("unknown section: err = %v, want ErrSectionNotFound", err)
	}
}

func TestRemoveQuestion(t *testing.T) {
	b := newTestBlueprint(t)
	sec := b.Sections[0]
	refID := sec.Questions[0].ID

	if err := b.RemoveQuestion(sec.ID, refID); err != nil {
		t.Fatal(err)
	}
	if b.HasBankItem("q1") {
		t.Error("q1 still referenced after removal")
	}
	// The freed item can be added again.
	if _, err := b.AddQuestion(sec.ID, "q1", 4); err != nil {
		t.Fatalf("re-add after removal: %v", err)
	}
	if err := b.RemoveQuestion(sec.ID, refID); !errors.Is(err, ErrQuestionNotFound) {
		t.Errorf("second removal: err = %v, want ErrQuestionNotFound", err)
	}
}

func TestMaxScoreAndCount(t *testing.T) {
	b := newTestBlueprint(t)
	sec := b.AddSection("Essay")
	if _, err := b.AddQuestion(sec.ID, "q3", 5); err != nil {
		t.Fatal(err)
	}
	if got := b.MaxScore(); got != 10 {
		t.Errorf("MaxScore = %v, want 10", got)
	}
	if got := b.QuestionCount(); got != 3 {
		t.Errorf("QuestionCount = %v, want 3", got)
	}
	ids := b.BankItemIDs()
	want := []string{"q1", "q2", "q3"}
	if len(ids) != len(want) {
		t.Fatalf("BankItemIDs = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("BankItemIDs[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}
