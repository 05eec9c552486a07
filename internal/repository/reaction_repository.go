package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/memos/internal/apperr"
	"github.com/iliyamo/memos/internal/dbx"
	"github.com/iliyamo/memos/internal/model"
)

// ReactionRepo reads and writes the `reactions` table.
type ReactionRepo struct{ DB *sql.DB }

func NewReactionRepo(db *sql.DB) *ReactionRepo { return &ReactionRepo{DB: db} }

// Create inserts rc.  A user may leave a given reaction on a memo once.
func (r *ReactionRepo) Create(ctx context.Context, rc *model.Reaction) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO reactions (creator_id, memo_id, reaction, created_at) VALUES (?,?,?,?)",
		rc.CreatorID, rc.MemoID, rc.Reaction, rc.CreatedAt)
	if err != nil {
		if dbx.IsDuplicateKey(err) {
			return apperr.New(apperr.ErrConflict, "reaction already exists")
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rc.ID = uint64(id)
	return nil
}

// ListByMemo returns the memo's reactions in creation order.
func (r *ReactionRepo) ListByMemo(ctx context.Context, memoID uint64) ([]model.Reaction, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, creator_id, memo_id, reaction, created_at FROM reactions WHERE memo_id = ? ORDER BY created_at ASC, id ASC",
		memoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reaction, 0)
	for rows.Next() {
		var rc model.Reaction
		if err := rows.Scan(&rc.ID, &rc.CreatorID, &rc.MemoID, &rc.Reaction, &rc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

// DeleteByIDAndCreator removes reaction id only if creatorID left it;
// otherwise apperr.ErrNotFound.
func (r *ReactionRepo) DeleteByIDAndCreator(ctx context.Context, id, creatorID uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM reactions WHERE id = ? AND creator_id = ?", id, creatorID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
