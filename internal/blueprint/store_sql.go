package blueprint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

type ListOpts struct {
	OwnerID string
	Limit   int
	Offset  int
}

type Summary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	QuestionCount int       `json:"question_count"`
	MaxScore      float64   `json:"max_score"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Store interface {
	Put(ctx context.Context, b *Blueprint) error
	Get(ctx context.Context, id string) (*Blueprint, error)
	List(ctx context.Context, opts ListOpts) ([]Summary, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// SQLStore persists blueprints with sections as a JSON column, the same way
// exams keep their question list in one document row.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Put(ctx context.Context, b *Blueprint) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Title == "" {
		return errors.New("title required")
	}
	hj, err := json.Marshal(b.Header)
	if err != nil {
		return err
	}
	if b.Sections == nil {
		b.Sections = []Section{}
	}
	sj, err := json.Marshal(b.Sections)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	_, err = s.db.ExecContext(ctx, `INSERT INTO blueprints (id,owner_id,title,header_json,sections_json,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			title=EXCLUDED.title, header_json=EXCLUDED.header_json,
			sections_json=EXCLUDED.sections_json, updated_at=EXCLUDED.updated_at`,
		b.ID, b.OwnerID, b.Title, string(hj), string(sj), b.CreatedAt.Unix(), b.UpdatedAt.Unix())
	return err
}

func (s *SQLStore) Get(ctx context.Context, id string) (*Blueprint, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,owner_id,title,header_json,sections_json,created_at,updated_at
		FROM blueprints WHERE id=$1`, id)
	var b Blueprint
	var hj, sj string
	var createdAt, updatedAt int64
	if err := row.Scan(&b.ID, &b.OwnerID, &b.Title, &hj, &sj, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(hj), &b.Header); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sj), &b.Sections); err != nil {
		return nil, err
	}
	b.CreatedAt = time.Unix(createdAt, 0).UTC()
	b.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &b, nil
}

func (s *SQLStore) List(ctx context.Context, opts ListOpts) ([]Summary, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id,title,sections_json,updated_at
		FROM blueprints WHERE owner_id=$1 ORDER BY updated_at DESC LIMIT $2 OFFSET $3`,
		opts.OwnerID, limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Summary
	for rows.Next() {
		var sum Summary
		var sj string
		var updatedAt int64
		if err := rows.Scan(&sum.ID, &sum.Title, &sj, &updatedAt); err != nil {
			return nil, err
		}
		var sections []Section
		if err := json.Unmarshal([]byte(sj), &sections); err != nil {
			return nil, err
		}
		tmp := Blueprint{Sections: sections}
		sum.QuestionCount = tmp.QuestionCount()
		sum.MaxScore = tmp.MaxScore()
		sum.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLStore) Delete(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM blueprints WHERE id=$1 AND owner_id=$2`, id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
