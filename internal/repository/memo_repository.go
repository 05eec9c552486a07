package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/iliyamo/memos/internal/apperr"
	"github.com/iliyamo/memos/internal/dbx"
	"github.com/iliyamo/memos/internal/model"
)

const memoColumns = "id, uid, creator_id, content, visibility, tags, payload, pinned, created_at, updated_at"

// memoOrder is the one ordering every memo listing uses.
const memoOrder = " ORDER BY created_at DESC, id DESC"

// MemoRepo reads and writes the `memos` table.
type MemoRepo struct{ DB *sql.DB }

func NewMemoRepo(db *sql.DB) *MemoRepo { return &MemoRepo{DB: db} }

func scanMemo(s rowScanner) (*model.Memo, error) {
	var (
		m          model.Memo
		visibility string
		tags       []byte
		payload    []byte
		updated    sql.NullTime
	)
	if err := s.Scan(&m.ID, &m.UID, &m.CreatorID, &m.Content, &visibility, &tags, &payload, &m.Pinned, &m.CreatedAt, &updated); err != nil {
		return nil, err
	}
	m.Visibility = model.Visibility(visibility)
	m.Tags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &m.Tags); err != nil {
			return nil, err
		}
	}
	if len(payload) > 0 {
		m.Payload = json.RawMessage(payload)
	}
	if updated.Valid {
		t := updated.Time
		m.UpdatedAt = &t
	}
	return &m, nil
}

func encodeTags(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	return json.Marshal(tags)
}

func nullPayload(p json.RawMessage) any {
	if len(p) == 0 {
		return nil
	}
	return []byte(p)
}

// Create inserts m and fills in its ID.
func (r *MemoRepo) Create(ctx context.Context, m *model.Memo) error {
	tags, err := encodeTags(m.Tags)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO memos (uid, creator_id, content, visibility, tags, payload, pinned, created_at) VALUES (?,?,?,?,?,?,?,?)",
		m.UID, m.CreatorID, m.Content, string(m.Visibility), tags, nullPayload(m.Payload), m.Pinned, m.CreatedAt)
	if err != nil {
		if dbx.IsDuplicateKey(err) {
			return apperr.New(apperr.ErrConflict, "memo uid already exists")
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

func (r *MemoRepo) getOne(ctx context.Context, q dbx.DBTX, where string, arg any) (*model.Memo, error) {
	m, err := scanMemo(q.QueryRowContext(ctx, "SELECT "+memoColumns+" FROM memos WHERE "+where+" LIMIT 1", arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	return m, err
}

// GetByID fetches one memo.  Missing rows yield apperr.ErrNotFound.
func (r *MemoRepo) GetByID(ctx context.Context, id uint64) (*model.Memo, error) {
	return r.getOne(ctx, r.DB, "id = ?", id)
}

// GetByUID fetches one memo by its public uid.
func (r *MemoRepo) GetByUID(ctx context.Context, uid string) (*model.Memo, error) {
	return r.getOne(ctx, r.DB, "uid = ?", uid)
}

// Query returns the memos matching f, newest first, within page.
func (r *MemoRepo) Query(ctx context.Context, f MemoFilter, page Page) ([]model.Memo, error) {
	where, args := buildMemoWhere(f)
	q := "SELECT " + memoColumns + " FROM memos WHERE " + where + memoOrder
	if !page.Unbounded() {
		q += " LIMIT ? OFFSET ?"
		args = append(args, page.Limit, page.Offset)
	}
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Memo, 0)
	for rows.Next() {
		m, err := scanMemo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// Update locks the memo row, hands it to mutate and persists whatever
// mutate leaves behind.  If mutate returns an error nothing is written
// and that error is returned unchanged, so ownership checks made inside
// mutate see the same row that would be written.
func (r *MemoRepo) Update(ctx context.Context, id uint64, mutate func(*model.Memo) error) (*model.Memo, error) {
	var out *model.Memo
	err := dbx.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		m, err := scanMemo(tx.QueryRowContext(ctx, "SELECT "+memoColumns+" FROM memos WHERE id = ? FOR UPDATE", id))
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := mutate(m); err != nil {
			return err
		}
		tags, err := encodeTags(m.Tags)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE memos SET content = ?, visibility = ?, tags = ?, pinned = ?, updated_at = ? WHERE id = ?",
			m.Content, string(m.Visibility), tags, m.Pinned, m.UpdatedAt, m.ID); err != nil {
			return err
		}
		out = m
		return nil
	})
	return out, err
}

// Delete locks the memo row, lets guard veto the deletion and then
// removes the memo together with its attachments, reactions and every
// relation that points at it in either direction.  The deleted memo is
// returned.
func (r *MemoRepo) Delete(ctx context.Context, id uint64, guard func(*model.Memo) error) (*model.Memo, error) {
	var out *model.Memo
	err := dbx.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		m, err := scanMemo(tx.QueryRowContext(ctx, "SELECT "+memoColumns+" FROM memos WHERE id = ? FOR UPDATE", id))
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := guard(m); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM attachments WHERE memo_id = ?", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM reactions WHERE memo_id = ?", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM memo_relations WHERE memo_id = ? OR related_memo_id = ?", id, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM memos WHERE id = ?", id); err != nil {
			return err
		}
		out = m
		return nil
	})
	return out, err
}
