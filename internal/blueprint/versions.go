package blueprint

import (
	"errors"
	"math/rand"
)

// MaxVersions bounds the number of print variants.
const MaxVersions = 4

var versionLabels = []string{"A", "B", "C", "D"}

var ErrVersionCount = errors.New("version count must be between 1 and 4")

// Version is a print-time variant of a blueprint. It is never persisted;
// only the rendered pages and answer keys leave this package.
type Version struct {
	Label    string    `json:"label"`
	Sections []Section `json:"sections"`
}

// GenerateVersions produces n letter-labeled variants. For n=1 the original
// order is kept. For n>1 every variant (including A) permutes each section's
// questions independently with a Fisher-Yates shuffle; section order and
// point values are untouched.
func GenerateVersions(b *Blueprint, n int, rng *rand.Rand) ([]Version, error) {
	if n < 1 || n > MaxVersions {
		return nil, ErrVersionCount
	}
	out := make([]Version, 0, n)
	for v := 0; v < n; v++ {
		sections := cloneSections(b.Sections)
		if n > 1 {
			for i := range sections {
				shuffleRefs(sections[i].Questions, rng)
			}
		}
		out = append(out, Version{Label: versionLabels[v], Sections: sections})
	}
	return out, nil
}

func cloneSections(src []Section) []Section {
	out := make([]Section, len(src))
	for i, s := range src {
		qs := make([]QuestionRef, len(s.Questions))
		copy(qs, s.Questions)
		out[i] = Section{ID: s.ID, Name: s.Name, Questions: qs}
	}
	return out
}

func shuffleRefs(qs []QuestionRef, rng *rand.Rand) {
	for i := len(qs) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		qs[i], qs[j] = qs[j], qs[i]
	}
}
