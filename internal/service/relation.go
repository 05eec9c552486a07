package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/memos/internal/apperr"
	"github.com/iliyamo/memos/internal/model"
	"github.com/iliyamo/memos/internal/policy"
	"github.com/iliyamo/memos/internal/repository"
)

// RelationService links memos with typed, directed edges.
type RelationService struct {
	memos     MemoStore
	relations RelationStore
	now       func() time.Time
}

func NewRelationService(memos MemoStore, relations RelationStore) *RelationService {
	return &RelationService{memos: memos, relations: relations, now: time.Now}
}

// Link adds an edge from memoID to relatedID.  Only the owner of memoID
// may link it, and the target must be visible to them.
func (s *RelationService) Link(ctx context.Context, p model.Principal, memoID, relatedID uint64, typ string) (*model.MemoRelation, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	typ = strings.ToUpper(strings.TrimSpace(typ))
	if typ == "" {
		typ = repository.RelationReference
	}
	if len(typ) > 32 {
		return nil, invalid("relation type too long")
	}
	if memoID == relatedID {
		return nil, invalid("a memo cannot relate to itself")
	}
	src, err := s.memos.GetByID(ctx, memoID)
	if err != nil {
		return nil, err
	}
	if src.CreatorID != p.UserID {
		return nil, apperr.New(apperr.ErrForbidden, "only the creator can link this memo")
	}
	dst, err := s.memos.GetByID(ctx, relatedID)
	if err != nil {
		return nil, err
	}
	if err := policy.CheckView(dst, p); err != nil {
		return nil, err
	}
	rel := &model.MemoRelation{MemoID: memoID, RelatedMemoID: relatedID, Type: typ, CreatedAt: s.now().UTC()}
	if err := s.relations.Create(ctx, rel); err != nil {
		return nil, err
	}
	return rel, nil
}

// List returns the outgoing edges of a memo the caller may view, minus
// edges whose target the caller may not view or that is gone.
func (s *RelationService) List(ctx context.Context, p model.Principal, memoID uint64) ([]model.MemoRelation, error) {
	m, err := s.memos.GetByID(ctx, memoID)
	if err != nil {
		return nil, err
	}
	if err := policy.CheckView(m, p); err != nil {
		return nil, err
	}
	rels, err := s.relations.ListByMemo(ctx, memoID)
	if err != nil {
		return nil, err
	}
	out := make([]model.MemoRelation, 0, len(rels))
	for _, r := range rels {
		dst, err := s.memos.GetByID(ctx, r.RelatedMemoID)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if policy.CanView(dst.Visibility, p, dst.CreatorID) {
			out = append(out, r)
		}
	}
	return out, nil
}
