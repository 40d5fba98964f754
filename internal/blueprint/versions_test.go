package blueprint

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
)

func versionBlueprint(t *testing.T, perSection int) *Blueprint {
	t.Helper()
	b := &Blueprint{ID: "bp1", OwnerID: "t1", Title: "Final"}
	for s := 0; s < 2; s++ {
		sec := b.AddSection(fmt.Sprintf("Part %d", s+1))
		for q := 0; q < perSection; q++ {
			if _, err := b.AddQuestion(sec.ID, fmt.Sprintf("s%dq%d", s, q), float64(q+1)); err != nil {
				t.Fatal(err)
			}
		}
	}
	return b
}

func TestGenerateVersionsCountBounds(t *testing.T) {
	b := versionBlueprint(t, 3)
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{0, -1, 5} {
		if _, err := GenerateVersions(b, n, rng); !errors.Is(err, ErrVersionCount) {
			t.Errorf("n=%d: err = %v, want ErrVersionCount", n, err)
		}
	}
	vs, err := GenerateVersions(b, 4, rng)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 4 {
		t.Fatalf("got %d versions, want 4", len(vs))
	}
	for i, label := range []string{"A", "B", "C", "D"} {
		if vs[i].Label != label {
			t.Errorf("version %d label = %q, want %q", i, vs[i].Label, label)
		}
	}
}

func TestGenerateSingleVersionKeepsOrder(t *testing.T) {
	b := versionBlueprint(t, 5)
	vs, err := GenerateVersions(b, 1, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	for si, sec := range vs[0].Sections {
		for qi, q := range sec.Questions {
			if q.BankItemID != b.Sections[si].Questions[qi].BankItemID {
				t.Fatalf("single version reordered section %d", si)
			}
		}
	}
}

func TestGenerateVersionsPermutesWithinSections(t *testing.T) {
	b := versionBlueprint(t, 6)
	vs, err := GenerateVersions(b, 2, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range vs {
		if len(v.Sections) != len(b.Sections) {
			t.Fatalf("version %s changed section count", v.Label)
		}
		for si, sec := range v.Sections {
			orig := b.Sections[si]
			if sec.Name != orig.Name {
				t.Errorf("version %s reordered sections", v.Label)
			}
			// Same multiset of refs with their original point values.
			points := map[string]float64{}
			for _, q := range orig.Questions {
				points[q.BankItemID] = q.Points
			}
			if len(sec.Questions) != len(orig.Questions) {
				t.Fatalf("version %s section %d lost questions", v.Label, si)
			}
			for _, q := range sec.Questions {
				want, ok := points[q.BankItemID]
				if !ok {
					t.Fatalf("version %s section %d gained foreign question %s", v.Label, si, q.BankItemID)
				}
				if q.Points != want {
					t.Errorf("version %s: question %s points = %v, want %v", v.Label, q.BankItemID, q.Points, want)
				}
				delete(points, q.BankItemID)
			}
		}
	}
}

func TestGenerateVersionsDoesNotMutateOriginal(t *testing.T) {
	b := versionBlueprint(t, 6)
	before := b.BankItemIDs()
	if _, err := GenerateVersions(b, 3, rand.New(rand.NewSource(7))); err != nil {
		t.Fatal(err)
	}
	after := b.BankItemIDs()
	for i := range before {
		if before[i] != after[i] {
			t.Fatal("GenerateVersions mutated the blueprint")
		}
	}
}
