// Package service implements the memo, credential and profile use
// cases on top of the stores.  Every read path consults the visibility
// policy; every mutation checks ownership inside the store transaction.
package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/memos/internal/model"
	"github.com/iliyamo/memos/internal/repository"
)

// UserStore is satisfied by repository.UserRepo and repository.MemoryUsers.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	List(ctx context.Context, page repository.Page) ([]model.User, error)
	UpdateProfile(ctx context.Context, id uint64, patch model.UserPatch, now time.Time) (*model.User, error)
}

// MemoStore is satisfied by repository.MemoRepo and repository.MemoryMemos.
type MemoStore interface {
	Create(ctx context.Context, m *model.Memo) error
	GetByID(ctx context.Context, id uint64) (*model.Memo, error)
	GetByUID(ctx context.Context, uid string) (*model.Memo, error)
	Query(ctx context.Context, f repository.MemoFilter, page repository.Page) ([]model.Memo, error)
	Update(ctx context.Context, id uint64, mutate func(*model.Memo) error) (*model.Memo, error)
	Delete(ctx context.Context, id uint64, guard func(*model.Memo) error) (*model.Memo, error)
}

// TokenStore is satisfied by repository.TokenRepo and repository.MemoryTokens.
type TokenStore interface {
	Create(ctx context.Context, t *model.AccessToken) error
	FindByHash(ctx context.Context, hash string) (*model.AccessToken, *model.User, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.AccessToken, error)
	DeleteByIDAndUser(ctx context.Context, id, userID uint64) error
}

// AttachmentStore is satisfied by repository.AttachmentRepo and
// repository.MemoryAttachments.
type AttachmentStore interface {
	Create(ctx context.Context, a *model.Attachment) error
	GetByID(ctx context.Context, id uint64) (*model.Attachment, error)
	DeleteByID(ctx context.Context, id uint64, guard func(*model.Attachment) error) (*model.Attachment, error)
	ListByCreator(ctx context.Context, creatorID uint64, page repository.Page) ([]model.Attachment, error)
	ListByMemo(ctx context.Context, memoID uint64) ([]model.Attachment, error)
}

// ReactionStore is satisfied by repository.ReactionRepo and
// repository.MemoryReactions.
type ReactionStore interface {
	Create(ctx context.Context, r *model.Reaction) error
	ListByMemo(ctx context.Context, memoID uint64) ([]model.Reaction, error)
	DeleteByIDAndCreator(ctx context.Context, id, creatorID uint64) error
}

// RelationStore is satisfied by repository.RelationRepo and
// repository.MemoryRelations.
type RelationStore interface {
	Create(ctx context.Context, r *model.MemoRelation) error
	ListByMemo(ctx context.Context, memoID uint64) ([]model.MemoRelation, error)
}

// FileStore keeps attachment bytes.  Satisfied by storage.LocalStore.
type FileStore interface {
	Remove(ref string) error
}

// CommandRecorder counts memo mutations.  Satisfied by metrics.Collector.
type CommandRecorder interface {
	RecordCommand(command, result string)
}

// PublishRecorder counts event publishes.  Satisfied by metrics.Collector.
type PublishRecorder interface {
	RecordPublish(err error)
}

// Stores bundles every store a full service set needs.
type Stores struct {
	Users       UserStore
	Memos       MemoStore
	Tokens      TokenStore
	Attachments AttachmentStore
	Reactions   ReactionStore
	Relations   RelationStore
}

// MemoryStores wires every store to one in-memory backend.
func MemoryStores(m *repository.Memory) Stores {
	return Stores{
		Users:       m.Users(),
		Memos:       m.Memos(),
		Tokens:      m.Tokens(),
		Attachments: m.Attachments(),
		Reactions:   m.Reactions(),
		Relations:   m.Relations(),
	}
}

// SQLStores wires every store to MySQL through db.
func SQLStores(db *sql.DB) Stores {
	return Stores{
		Users:       repository.NewUserRepo(db),
		Memos:       repository.NewMemoRepo(db),
		Tokens:      repository.NewTokenRepo(db),
		Attachments: repository.NewAttachmentRepo(db),
		Reactions:   repository.NewReactionRepo(db),
		Relations:   repository.NewRelationRepo(db),
	}
}
