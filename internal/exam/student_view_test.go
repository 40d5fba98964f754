package exam

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestStudentViewStripsAnswerKeys(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	pub := e.publish(t, PublishOpts{})

	sections, err := e.svc.StudentView(ctx, pub)
	if err != nil {
		t.Fatal(err)
	}
	if len(sections) != 1 || len(sections[0].Questions) != 2 {
		t.Fatalf("sections = %+v", sections)
	}

	data, err := json.Marshal(sections)
	if err != nil {
		t.Fatal(err)
	}
	serialized := string(data)
	for _, secret := range []string{"correct_letter", "correct_boolean", "expected_answer", "Rayleigh scattering"} {
		if strings.Contains(serialized, secret) {
			t.Errorf("student view leaks %q", secret)
		}
	}
	// Options are still there for the student to pick from.
	if !strings.Contains(serialized, "Jupiter") {
		t.Error("multiple choice options missing from student view")
	}
}

func TestStudentViewOmitsPurgedItems(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	pub := e.publish(t, PublishOpts{})

	if err := e.bank.Trash(ctx, "t1", e.oe.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := e.bank.EmptyTrash(ctx, "t1"); err != nil {
		t.Fatal(err)
	}

	sections, err := e.svc.StudentView(ctx, pub)
	if err != nil {
		t.Fatal(err)
	}
	if len(sections[0].Questions) != 1 {
		t.Fatalf("questions = %d, want 1 after purge", len(sections[0].Questions))
	}
	if sections[0].Questions[0].ID != e.mc.ID {
		t.Errorf("surviving question = %s", sections[0].Questions[0].ID)
	}
}
