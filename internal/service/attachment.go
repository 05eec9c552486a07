package service

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/memos/internal/apperr"
	"github.com/iliyamo/memos/internal/model"
	"github.com/iliyamo/memos/internal/repository"
)

// BlobStore writes and removes attachment bytes.  Satisfied by
// storage.LocalStore.
type BlobStore interface {
	Save(userID uint64, filename string, r io.Reader, max int64) (ref string, size int64, err error)
	Remove(ref string) error
}

// Upload describes one incoming file.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
	MemoID      *uint64
}

// AttachmentService stores files for their owner.  Attachments are
// private to their creator.
type AttachmentService struct {
	attachments AttachmentStore
	memos       MemoStore
	blobs       BlobStore
	storageType string
	maxBytes    int64
	now         func() time.Time
}

func NewAttachmentService(attachments AttachmentStore, memos MemoStore, blobs BlobStore, storageType string, maxBytes int64) *AttachmentService {
	return &AttachmentService{
		attachments: attachments, memos: memos, blobs: blobs,
		storageType: storageType, maxBytes: maxBytes, now: time.Now,
	}
}

// Create stores up.Body and records its metadata.  When up.MemoID is
// set, the memo must belong to the caller.
func (s *AttachmentService) Create(ctx context.Context, p model.Principal, up Upload) (*model.Attachment, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	name := filepath.Base(strings.TrimSpace(up.Filename))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return nil, invalid("filename is required")
	}
	if up.MemoID != nil {
		m, err := s.memos.GetByID(ctx, *up.MemoID)
		if err != nil {
			return nil, err
		}
		if m.CreatorID != p.UserID {
			return nil, apperr.New(apperr.ErrForbidden, "cannot attach to another user's memo")
		}
	}

	ref, size, err := s.blobs.Save(p.UserID, name, up.Body, s.maxBytes)
	if err != nil {
		return nil, err
	}
	ctype := up.ContentType
	if ctype == "" || ctype == "application/octet-stream" {
		if guessed := mime.TypeByExtension(filepath.Ext(name)); guessed != "" {
			ctype = guessed
		}
	}
	a := &model.Attachment{
		UID:         uuid.NewString(),
		CreatorID:   p.UserID,
		MemoID:      up.MemoID,
		Filename:    name,
		FileType:    ctype,
		FileSize:    size,
		StorageType: s.storageType,
		Reference:   ref,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.attachments.Create(ctx, a); err != nil {
		_ = s.blobs.Remove(ref)
		return nil, err
	}
	return a, nil
}

// List returns the caller's attachments, optionally only those bound to
// memoID.
func (s *AttachmentService) List(ctx context.Context, p model.Principal, memoID *uint64, skip int, limit *int) ([]model.Attachment, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	page := repository.ClampPage(skip, limit)
	if memoID == nil {
		return s.attachments.ListByCreator(ctx, p.UserID, page)
	}
	all, err := s.attachments.ListByMemo(ctx, *memoID)
	if err != nil {
		return nil, err
	}
	own := make([]model.Attachment, 0, len(all))
	for _, a := range all {
		if a.CreatorID == p.UserID {
			own = append(own, a)
		}
	}
	return repository.Slice(own, page), nil
}

// Get returns attachment id if the caller created it.
func (s *AttachmentService) Get(ctx context.Context, p model.Principal, id uint64) (*model.Attachment, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	a, err := s.attachments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.CreatorID != p.UserID {
		return nil, apperr.New(apperr.ErrForbidden, "access denied")
	}
	return a, nil
}

// Delete removes attachment id if the caller created it.  The stored
// file goes only after the row is gone; a failed file removal is logged
// and does not fail the call.
func (s *AttachmentService) Delete(ctx context.Context, p model.Principal, id uint64) error {
	if err := requireUser(p); err != nil {
		return err
	}
	a, err := s.attachments.DeleteByID(ctx, id, func(a *model.Attachment) error {
		if a.CreatorID != p.UserID {
			return apperr.New(apperr.ErrForbidden, "access denied")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.blobs.Remove(a.Reference); err != nil {
		slog.WarnContext(ctx, "attachment file not removed", slog.String("ref", a.Reference), slog.String("error", err.Error()))
	}
	return nil
}
