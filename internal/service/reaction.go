package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/memos/internal/model"
	"github.com/iliyamo/memos/internal/policy"
)

// ReactionService manages reactions.  Reading or reacting requires the
// same view rights as reading the memo itself.
type ReactionService struct {
	memos     MemoStore
	reactions ReactionStore
	now       func() time.Time
}

func NewReactionService(memos MemoStore, reactions ReactionStore) *ReactionService {
	return &ReactionService{memos: memos, reactions: reactions, now: time.Now}
}

func (s *ReactionService) viewable(ctx context.Context, p model.Principal, memoID uint64) (*model.Memo, error) {
	m, err := s.memos.GetByID(ctx, memoID)
	if err != nil {
		return nil, err
	}
	if err := policy.CheckView(m, p); err != nil {
		return nil, err
	}
	return m, nil
}

// Add records the caller's reaction on memo memoID.
func (s *ReactionService) Add(ctx context.Context, p model.Principal, memoID uint64, reaction string) (*model.Reaction, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	reaction = strings.TrimSpace(reaction)
	if reaction == "" || utf8.RuneCountInString(reaction) > 50 {
		return nil, invalid("reaction must be 1 to 50 characters")
	}
	if _, err := s.viewable(ctx, p, memoID); err != nil {
		return nil, err
	}
	r := &model.Reaction{CreatorID: p.UserID, MemoID: memoID, Reaction: reaction, CreatedAt: s.now().UTC()}
	if err := s.reactions.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// List returns the reactions on a memo the caller may view.
func (s *ReactionService) List(ctx context.Context, p model.Principal, memoID uint64) ([]model.Reaction, error) {
	if _, err := s.viewable(ctx, p, memoID); err != nil {
		return nil, err
	}
	return s.reactions.ListByMemo(ctx, memoID)
}

// Remove deletes the caller's own reaction id.  Reactions left by
// others look missing.
func (s *ReactionService) Remove(ctx context.Context, p model.Principal, id uint64) error {
	if err := requireUser(p); err != nil {
		return err
	}
	return s.reactions.DeleteByIDAndCreator(ctx, id, p.UserID)
}
