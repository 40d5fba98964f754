package bank

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store persists bank items. Lifecycle: Put creates/updates active items,
// Trash/Restore move items in and out of the trash, PurgeTrashedBefore is
// called by the sweeper only.
type Store interface {
	Put(ctx context.Context, it *Item) error
	Get(ctx context.Context, id string) (*Item, error)
	List(ctx context.Context, opts ListOpts) ([]*Item, error)
	GetMany(ctx context.Context, ids []string) (map[string]*Item, error)
	Trash(ctx context.Context, ownerID, id string) error
	Restore(ctx context.Context, ownerID, id string) error
	EmptyTrash(ctx context.Context, ownerID string) (int64, error)
	PurgeTrashedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Put(ctx context.Context, it *Item) error {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.State == "" {
		it.State = StateActive
	}
	if err := it.Validate(); err != nil {
		return err
	}
	cj, err := MarshalContent(it.Content)
	if err != nil {
		return err
	}
	tj, _ := json.Marshal(it.Tags)
	now := time.Now().UTC()
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	it.UpdatedAt = now
	_, err = s.db.ExecContext(ctx, `INSERT INTO bank_items
		(id,owner_id,type,difficulty,bloom_level,tags_json,content_json,state,trashed_at,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULL,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			type=EXCLUDED.type, difficulty=EXCLUDED.difficulty, bloom_level=EXCLUDED.bloom_level,
			tags_json=EXCLUDED.tags_json, content_json=EXCLUDED.content_json, updated_at=EXCLUDED.updated_at`,
		it.ID, it.OwnerID, string(it.Type), string(it.Difficulty), it.BloomLevel,
		string(tj), string(cj), string(it.State), it.CreatedAt.Unix(), it.UpdatedAt.Unix())
	return err
}

func (s *SQLStore) Get(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,owner_id,type,difficulty,bloom_level,tags_json,content_json,state,trashed_at,created_at,updated_at
		FROM bank_items WHERE id=$1`, id)
	return scanItem(row)
}

func (s *SQLStore) List(ctx context.Context, opts ListOpts) ([]*Item, error) {
	where := []string{}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if opts.Trashed {
		where = append(where, "state='trashed'")
	} else {
		where = append(where, "state='active'")
	}
	if opts.OwnerID != "" {
		where = append(where, "owner_id="+arg(opts.OwnerID))
	}
	if opts.Type != "" {
		where = append(where, "type="+arg(string(opts.Type)))
	}
	if opts.Difficulty != "" {
		where = append(where, "difficulty="+arg(string(opts.Difficulty)))
	}
	if opts.Tag != "" {
		// tags are a small JSON array; substring match is enough for both drivers
		where = append(where, "tags_json LIKE "+arg("%\""+opts.Tag+"\"%"))
	}
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := `SELECT id,owner_id,type,difficulty,bloom_level,tags_json,content_json,state,trashed_at,created_at,updated_at
		FROM bank_items WHERE ` + strings.Join(where, " AND ") +
		" ORDER BY created_at DESC LIMIT " + arg(limit) + " OFFSET " + arg(opts.Offset)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// GetMany fetches a batch of items by id (active or trashed) and returns them
// keyed by id. Missing ids are simply absent from the result.
func (s *SQLStore) GetMany(ctx context.Context, ids []string) (map[string]*Item, error) {
	out := make(map[string]*Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	ph := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		ph[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id,owner_id,type,difficulty,bloom_level,tags_json,content_json,state,trashed_at,created_at,updated_at
		FROM bank_items WHERE id IN (`+strings.Join(ph, ",")+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out[it.ID] = it
	}
	return out, rows.Err()
}

func (s *SQLStore) Trash(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bank_items SET state='trashed', trashed_at=$1 WHERE id=$2 AND owner_id=$3 AND state='active'`,
		time.Now().Unix(), id, ownerID)
	if err != nil {
		return err
	}
	return oneRowOr(res, ErrNotFound)
}

func (s *SQLStore) Restore(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bank_items SET state='active', trashed_at=NULL WHERE id=$1 AND owner_id=$2 AND state='trashed'`,
		id, ownerID)
	if err != nil {
		return err
	}
	return oneRowOr(res, ErrNotTrashed)
}

func (s *SQLStore) EmptyTrash(ctx context.Context, ownerID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM bank_items WHERE owner_id=$1 AND state='trashed'`, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PurgeTrashedBefore permanently deletes items trashed at or before cutoff.
// Only the sweep job calls this.
func (s *SQLStore) PurgeTrashedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM bank_items WHERE state='trashed' AND trashed_at <= $1`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*Item, error) {
	var it Item
	var tagsJSON, contentJSON, state string
	var trashedAt sql.NullInt64
	var createdAt, updatedAt int64
	err := row.Scan(&it.ID, &it.OwnerID, (*string)(&it.Type), (*string)(&it.Difficulty),
		&it.BloomLevel, &tagsJSON, &contentJSON, &state, &trashedAt, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	it.State = ItemState(state)
	if trashedAt.Valid {
		t := time.Unix(trashedAt.Int64, 0).UTC()
		it.TrashedAt = &t
	}
	it.CreatedAt = time.Unix(createdAt, 0).UTC()
	it.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	if tagsJSON != "" {
		_ = json.Unmarshal([]byte(tagsJSON), &it.Tags)
	}
	c, err := UnmarshalContent([]byte(contentJSON))
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", it.ID, err)
	}
	it.Content = c
	return &it, nil
}

func oneRowOr(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
