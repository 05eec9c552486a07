package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/memos/internal/apperr"
	"github.com/iliyamo/memos/internal/model"
)

func TestReactions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := NewReactionService(e.stores.Memos, e.stores.Reactions)
	public := e.memo(t, e.alice, model.VisibilityPublic, "hello")
	private := e.memo(t, e.alice, model.VisibilityPrivate, "diary")

	r, err := svc.Add(ctx, e.bob, public.ID, " 🎉 ")
	require.NoError(t, err)
	assert.Equal(t, "🎉", r.Reaction)

	_, err = svc.Add(ctx, e.bob, public.ID, "🎉")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = svc.Add(ctx, e.bob, private.ID, "👀")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.Add(ctx, e.anon, public.ID, "👀")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	_, err = svc.Add(ctx, e.bob, public.ID, strings.Repeat("x", 51))
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	list, err := svc.List(ctx, e.anon, public.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	_, err = svc.List(ctx, e.anon, private.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	assert.ErrorIs(t, svc.Remove(ctx, e.alice, r.ID), apperr.ErrNotFound, "only the reaction's creator may remove it")
	require.NoError(t, svc.Remove(ctx, e.bob, r.ID))
}

func TestRelations(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := NewRelationService(e.stores.Memos, e.stores.Relations)
	mine := e.memo(t, e.alice, model.VisibilityPublic, "mine")
	ownPrivate := e.memo(t, e.alice, model.VisibilityPrivate, "mine too")
	bobsPublic := e.memo(t, e.bob, model.VisibilityPublic, "bob public")
	bobsPrivate := e.memo(t, e.bob, model.VisibilityPrivate, "bob private")

	rel, err := svc.Link(ctx, e.alice, mine.ID, bobsPublic.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "REFERENCE", rel.Type)
	_, err = svc.Link(ctx, e.alice, mine.ID, ownPrivate.ID, "comment")
	require.NoError(t, err)

	_, err = svc.Link(ctx, e.alice, mine.ID, bobsPrivate.ID, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.Link(ctx, e.bob, mine.ID, bobsPublic.ID, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.Link(ctx, e.alice, mine.ID, mine.ID, "")
	assert.ErrorIs(t, err, apperr.ErrInvalid)
	_, err = svc.Link(ctx, e.alice, mine.ID, bobsPublic.ID, "reference")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	all, err := svc.List(ctx, e.alice, mine.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	visible, err := svc.List(ctx, e.anon, mine.ID)
	require.NoError(t, err)
	require.Len(t, visible, 1, "edge to a private target is hidden")
	assert.Equal(t, bobsPublic.ID, visible[0].RelatedMemoID)
}

// brokenMemos fails reads of one memo id the way a dropped connection would.
type brokenMemos struct {
	MemoStore
	failID uint64
}

func (b brokenMemos) GetByID(ctx context.Context, id uint64) (*model.Memo, error) {
	if id == b.failID {
		return nil, errors.New("driver: bad connection")
	}
	return b.MemoStore.GetByID(ctx, id)
}

func TestRelationListTargetErrors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	mine := e.memo(t, e.alice, model.VisibilityPublic, "mine")
	other := e.memo(t, e.alice, model.VisibilityPublic, "other")
	require.NoError(t, e.stores.Relations.Create(ctx, &model.MemoRelation{MemoID: mine.ID, RelatedMemoID: other.ID, Type: "REFERENCE"}))
	require.NoError(t, e.stores.Relations.Create(ctx, &model.MemoRelation{MemoID: mine.ID, RelatedMemoID: 99999, Type: "REFERENCE"}))

	svc := NewRelationService(e.stores.Memos, e.stores.Relations)
	got, err := svc.List(ctx, e.alice, mine.ID)
	require.NoError(t, err)
	require.Len(t, got, 1, "edge to a missing memo is skipped")
	assert.Equal(t, other.ID, got[0].RelatedMemoID)

	svc = NewRelationService(brokenMemos{MemoStore: e.stores.Memos, failID: other.ID}, e.stores.Relations)
	_, err = svc.List(ctx, e.alice, mine.ID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperr.ErrNotFound)
}
