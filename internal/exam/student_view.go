package exam

import (
	"context"

	"github.com/Posologia-Edu/prova-facil/internal/bank"
)

// StudentQuestion is the answer-key-free view of one question served to a
// student in session.
type StudentQuestion struct {
	ID        string            `json:"id"`
	Type      bank.QuestionType `json:"type"`
	Statement string            `json:"statement"`
	Options   map[string]string `json:"options,omitempty"`
	ColumnA   []string          `json:"column_a,omitempty"`
	ColumnB   []string          `json:"column_b,omitempty"`
	Points    float64           `json:"points"`
}

type StudentSection struct {
	Name      string            `json:"name"`
	Questions []StudentQuestion `json:"questions"`
}

// StudentView resolves the publication snapshot against the bank and strips
// every answer key. Purged questions are omitted.
func (s *Service) StudentView(ctx context.Context, pub *Publication) ([]StudentSection, error) {
	items, err := s.bank.GetMany(ctx, pub.Snapshot.BankItemIDs())
	if err != nil {
		return nil, err
	}
	out := make([]StudentSection, 0, len(pub.Snapshot.Sections))
	for _, sec := range pub.Snapshot.Sections {
		sv := StudentSection{Name: sec.Name}
		for _, ref := range sec.Questions {
			item, ok := items[ref.BankItemID]
			if !ok {
				continue
			}
			q := StudentQuestion{
				ID:        ref.BankItemID,
				Type:      item.Type,
				Statement: bank.Statement(item.Content),
				Points:    ref.Points,
			}
			switch c := item.Content.(type) {
			case bank.MultipleChoiceContent:
				q.Options = c.OptionsByLetter
			case bank.MatchingContent:
				q.ColumnA = c.ColumnA
				q.ColumnB = c.ColumnB
			}
			sv.Questions = append(sv.Questions, q)
		}
		out = append(out, sv)
	}
	return out, nil
}
