package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/memos/internal/apperr"
	"github.com/iliyamo/memos/internal/dbx"
	"github.com/iliyamo/memos/internal/model"
)

const attachmentColumns = "id, uid, creator_id, memo_id, filename, file_type, file_size, storage_type, reference, created_at"

// AttachmentRepo reads and writes the `attachments` table.
type AttachmentRepo struct{ DB *sql.DB }

func NewAttachmentRepo(db *sql.DB) *AttachmentRepo { return &AttachmentRepo{DB: db} }

func scanAttachment(s rowScanner) (*model.Attachment, error) {
	var (
		a        model.Attachment
		memoID   sql.NullInt64
		fileType sql.NullString
	)
	if err := s.Scan(&a.ID, &a.UID, &a.CreatorID, &memoID, &a.Filename, &fileType, &a.FileSize, &a.StorageType, &a.Reference, &a.CreatedAt); err != nil {
		return nil, err
	}
	if memoID.Valid {
		id := uint64(memoID.Int64)
		a.MemoID = &id
	}
	a.FileType = fileType.String
	return &a, nil
}

// Create inserts a and fills in its ID.
func (r *AttachmentRepo) Create(ctx context.Context, a *model.Attachment) error {
	var memoID any
	if a.MemoID != nil {
		memoID = *a.MemoID
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO attachments (uid, creator_id, memo_id, filename, file_type, file_size, storage_type, reference, created_at) VALUES (?,?,?,?,?,?,?,?,?)",
		a.UID, a.CreatorID, memoID, a.Filename, nullString(a.FileType), a.FileSize, a.StorageType, a.Reference, a.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// GetByID fetches one attachment.
func (r *AttachmentRepo) GetByID(ctx context.Context, id uint64) (*model.Attachment, error) {
	a, err := scanAttachment(r.DB.QueryRowContext(ctx, "SELECT "+attachmentColumns+" FROM attachments WHERE id = ? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	return a, err
}

// DeleteByID locks the attachment row, lets guard veto the deletion and
// removes it.  The deleted attachment is returned so the caller can
// drop its file.
func (r *AttachmentRepo) DeleteByID(ctx context.Context, id uint64, guard func(*model.Attachment) error) (*model.Attachment, error) {
	var out *model.Attachment
	err := dbx.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		a, err := scanAttachment(tx.QueryRowContext(ctx, "SELECT "+attachmentColumns+" FROM attachments WHERE id = ? FOR UPDATE", id))
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := guard(a); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM attachments WHERE id = ?", id); err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}

// ListByCreator returns the creator's attachments, newest first.
func (r *AttachmentRepo) ListByCreator(ctx context.Context, creatorID uint64, page Page) ([]model.Attachment, error) {
	return r.list(ctx, "creator_id = ?", creatorID, page)
}

// ListByMemo returns the attachments bound to memoID, newest first.
func (r *AttachmentRepo) ListByMemo(ctx context.Context, memoID uint64) ([]model.Attachment, error) {
	return r.list(ctx, "memo_id = ?", memoID, Page{})
}

func (r *AttachmentRepo) list(ctx context.Context, where string, arg any, page Page) ([]model.Attachment, error) {
	q := "SELECT " + attachmentColumns + " FROM attachments WHERE " + where + " ORDER BY created_at DESC, id DESC"
	args := []any{arg}
	if !page.Unbounded() {
		q += " LIMIT ? OFFSET ?"
		args = append(args, page.Limit, page.Offset)
	}
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Attachment, 0)
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
