package bank

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("bank item not found")
	ErrUnknownType  = errors.New("unknown question type")
	ErrMissingField = errors.New("missing required field")
	ErrNotTrashed   = errors.New("bank item is not in the trash")
)

// ItemState is the lifecycle of a bank item. Purged items have no row;
// the state exists so the sweep job is the only path out of the trash.
type ItemState string

const (
	StateActive  ItemState = "active"
	StateTrashed ItemState = "trashed"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Item is one unit of assessment content owned by a teacher.
type Item struct {
	ID         string       `json:"id"`
	OwnerID    string       `json:"owner_id"`
	Type       QuestionType `json:"type"`
	Difficulty Difficulty   `json:"difficulty"`
	BloomLevel string       `json:"bloom_level,omitempty"`
	Tags       []string     `json:"tags,omitempty"`
	Content    Content      `json:"content"`
	State      ItemState    `json:"state"`
	TrashedAt  *time.Time   `json:"trashed_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Validate checks the item's metadata and that the content payload shape
// matches the declared type.
func (it *Item) Validate() error {
	if !it.Type.Valid() {
		return ErrUnknownType
	}
	switch it.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		return errors.New("invalid difficulty")
	}
	if it.Content == nil {
		return errors.New("content required")
	}
	if it.Content.Type() != it.Type {
		return errors.New("content shape does not match item type")
	}
	return it.Content.Validate()
}

type ListOpts struct {
	OwnerID    string
	Type       QuestionType
	Difficulty Difficulty
	Tag        string
	Trashed    bool // list trash instead of active items
	Limit      int
	Offset     int
}
