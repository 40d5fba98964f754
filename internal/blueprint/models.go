package blueprint

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("blueprint not found")
	ErrSectionNotFound   = errors.New("section not found")
	ErrQuestionNotFound  = errors.New("question reference not found")
	ErrDuplicateQuestion = errors.New("bank item already used in this exam")
	ErrInvalidPoints     = errors.New("points must be positive")
)

// Header is the printable exam header block.
type Header struct {
	Institution  string `json:"institution,omitempty"`
	Teacher      string `json:"teacher,omitempty"`
	Date         string `json:"date,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// QuestionRef ties a bank item into an exam with an exam-specific weight.
// Position is the slice index, never stored separately.
type QuestionRef struct {
	ID         string  `json:"id"`
	BankItemID string  `json:"bank_item_id"`
	Points     float64 `json:"points"`
}

type Section struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Questions []QuestionRef `json:"questions"`
}

// Blueprint is the teacher-authored exam document.
type Blueprint struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Header    Header    `json:"header"`
	Sections  []Section `json:"sections"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AddSection appends an empty named section. Section names need not be
// unique.
func (b *Blueprint) AddSection(name string) *Section {
	b.Sections = append(b.Sections, Section{ID: uuid.NewString(), Name: name})
	return &b.Sections[len(b.Sections)-1]
}

// AddQuestion appends a reference to the given section. A bank item may
// appear at most once per blueprint, checked across every section.
func (b *Blueprint) AddQuestion(sectionID, bankItemID string, points float64) (*QuestionRef, error) {
	if points <= 0 {
		return nil, ErrInvalidPoints
	}
	if b.HasBankItem(bankItemID) {
		return nil, ErrDuplicateQuestion
	}
	for i := range b.Sections {
		if b.Sections[i].ID != sectionID {
			continue
		}
		b.Sections[i].Questions = append(b.Sections[i].Questions, QuestionRef{
			ID:         uuid.NewString(),
			BankItemID: bankItemID,
			Points:     points,
		})
		return &b.Sections[i].Questions[len(b.Sections[i].Questions)-1], nil
	}
	return nil, ErrSectionNotFound
}

// RemoveQuestion deletes one reference. Positions are derived from order, so
// no renumbering happens.
func (b *Blueprint) RemoveQuestion(sectionID, refID string) error {
	for i := range b.Sections {
		if b.Sections[i].ID != sectionID {
			continue
		}
		qs := b.Sections[i].Questions
		for j := range qs {
			if qs[j].ID == refID {
				b.Sections[i].Questions = append(qs[:j], qs[j+1:]...)
				return nil
			}
		}
		return ErrQuestionNotFound
	}
	return ErrSectionNotFound
}

// HasBankItem reports whether the bank item is referenced anywhere in the
// blueprint.
func (b *Blueprint) HasBankItem(bankItemID string) bool {
	for _, s := range b.Sections {
		for _, q := range s.Questions {
			if q.BankItemID == bankItemID {
				return true
			}
		}
	}
	return false
}

// MaxScore is the sum of every reference's points across all sections.
func (b *Blueprint) MaxScore() float64 {
	total := 0.0
	for _, s := range b.Sections {
		for _, q := range s.Questions {
			total += q.Points
		}
	}
	return total
}

// QuestionCount counts references across all sections.
func (b *Blueprint) QuestionCount() int {
	n := 0
	for _, s := range b.Sections {
		n += len(s.Questions)
	}
	return n
}

// BankItemIDs returns every referenced bank item id in document order.
func (b *Blueprint) BankItemIDs() []string {
	out := make([]string, 0, b.QuestionCount())
	for _, s := range b.Sections {
		for _, q := range s.Questions {
			out = append(out, q.BankItemID)
		}
	}
	return out
}

// FindRef locates a reference by bank item id.
func (b *Blueprint) FindRef(bankItemID string) (QuestionRef, bool) {
	for _, s := range b.Sections {
		for _, q := range s.Questions {
			if q.BankItemID == bankItemID {
				return q, true
			}
		}
	}
	return QuestionRef{}, false
}
