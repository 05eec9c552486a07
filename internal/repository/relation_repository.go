package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/memos/internal/apperr"
	"github.com/iliyamo/memos/internal/dbx"
	"github.com/iliyamo/memos/internal/model"
)

// Relation types.
const (
	RelationReference = "REFERENCE"
	RelationComment   = "COMMENT"
)

// RelationRepo reads and writes the `memo_relations` table.
type RelationRepo struct{ DB *sql.DB }

func NewRelationRepo(db *sql.DB) *RelationRepo { return &RelationRepo{DB: db} }

// Create inserts rel.  The (memo, related memo, type) triple is unique.
func (r *RelationRepo) Create(ctx context.Context, rel *model.MemoRelation) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO memo_relations (memo_id, related_memo_id, type, created_at) VALUES (?,?,?,?)",
		rel.MemoID, rel.RelatedMemoID, rel.Type, rel.CreatedAt)
	if err != nil {
		if dbx.IsDuplicateKey(err) {
			return apperr.New(apperr.ErrConflict, "relation already exists")
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rel.ID = uint64(id)
	return nil
}

// ListByMemo returns the outgoing relations of memoID.
func (r *RelationRepo) ListByMemo(ctx context.Context, memoID uint64) ([]model.MemoRelation, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, memo_id, related_memo_id, type, created_at FROM memo_relations WHERE memo_id = ? ORDER BY id ASC",
		memoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.MemoRelation, 0)
	for rows.Next() {
		var rel model.MemoRelation
		if err := rows.Scan(&rel.ID, &rel.MemoID, &rel.RelatedMemoID, &rel.Type, &rel.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}
