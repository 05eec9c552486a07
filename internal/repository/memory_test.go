package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/memos/internal/apperr"
	"github.com/iliyamo/memos/internal/model"
)

func TestMemory_QueryOrdersNewestFirstWithIDTiebreak(t *testing.T) {
	ctx := context.Background()
	memos := NewMemory().Memos()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, at := range []time.Time{t0, t0.Add(time.Hour), t0.Add(time.Hour)} {
		require.NoError(t, memos.Create(ctx, &model.Memo{UID: string(rune('a' + i)), CreatedAt: at, Visibility: model.VisibilityPublic}))
	}
	out, err := memos.Query(ctx, MemoFilter{}, Page{})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{out[0].UID, out[1].UID, out[2].UID})

	out, err = memos.Query(ctx, MemoFilter{}, Page{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].UID)
}

func TestMemory_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	now := time.Now()

	a := &model.Memo{UID: "a", CreatorID: 1, CreatedAt: now}
	b := &model.Memo{UID: "b", CreatorID: 1, CreatedAt: now}
	require.NoError(t, s.Memos().Create(ctx, a))
	require.NoError(t, s.Memos().Create(ctx, b))
	require.NoError(t, s.Reactions().Create(ctx, &model.Reaction{CreatorID: 2, MemoID: a.ID, Reaction: "👍"}))
	require.NoError(t, s.Relations().Create(ctx, &model.MemoRelation{MemoID: b.ID, RelatedMemoID: a.ID, Type: RelationReference}))
	require.NoError(t, s.Attachments().Create(ctx, &model.Attachment{CreatorID: 1, MemoID: &a.ID}))

	_, err := s.Memos().Delete(ctx, a.ID, func(*model.Memo) error { return nil })
	require.NoError(t, err)

	_, err = s.Memos().GetByID(ctx, a.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	rs, _ := s.Reactions().ListByMemo(ctx, a.ID)
	assert.Empty(t, rs)
	rels, _ := s.Relations().ListByMemo(ctx, b.ID)
	assert.Empty(t, rels, "incoming relation removed too")
	atts, _ := s.Attachments().ListByMemo(ctx, a.ID)
	assert.Empty(t, atts)
}

func TestMemory_UpdateVetoLeavesMemoUntouched(t *testing.T) {
	ctx := context.Background()
	memos := NewMemory().Memos()
	m := &model.Memo{UID: "x", Content: "before", Tags: []string{"t"}}
	require.NoError(t, memos.Create(ctx, m))

	_, err := memos.Update(ctx, m.ID, func(m *model.Memo) error {
		m.Content = "after"
		m.Tags[0] = "changed"
		return apperr.ErrForbidden
	})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	got, err := memos.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "before", got.Content)
	assert.Equal(t, []string{"t"}, got.Tags)
}

func TestMemory_TokenDeleteOtherOwnerIsNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	u := &model.User{Username: "a", Email: "a@x"}
	require.NoError(t, s.Users().Create(ctx, u))
	tok := &model.AccessToken{UserID: u.ID, TokenHash: "h"}
	require.NoError(t, s.Tokens().Create(ctx, tok))

	assert.ErrorIs(t, s.Tokens().DeleteByIDAndUser(ctx, tok.ID, u.ID+100), apperr.ErrNotFound)
	_, owner, err := s.Tokens().FindByHash(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, u.ID, owner.ID)

	require.NoError(t, s.Tokens().DeleteByIDAndUser(ctx, tok.ID, u.ID))
	_, _, err = s.Tokens().FindByHash(ctx, "h")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemory_UserUniqueness(t *testing.T) {
	ctx := context.Background()
	users := NewMemory().Users()
	require.NoError(t, users.Create(ctx, &model.User{Username: "alice", Email: "alice@x.io"}))
	assert.ErrorIs(t, users.Create(ctx, &model.User{Username: "alice", Email: "other@x.io"}), apperr.ErrConflict)
	assert.ErrorIs(t, users.Create(ctx, &model.User{Username: "bob", Email: "ALICE@x.io"}), apperr.ErrConflict)
}

func TestMemory_AttachmentDeleteByID(t *testing.T) {
	ctx := context.Background()
	atts := NewMemory().Attachments()
	a := &model.Attachment{CreatorID: 1, Reference: "1/a"}
	require.NoError(t, atts.Create(ctx, a))

	_, err := atts.DeleteByID(ctx, a.ID, func(*model.Attachment) error { return apperr.ErrForbidden })
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = atts.GetByID(ctx, a.ID)
	require.NoError(t, err)

	got, err := atts.DeleteByID(ctx, a.ID, func(*model.Attachment) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "1/a", got.Reference)
	_, err = atts.DeleteByID(ctx, a.ID, func(*model.Attachment) error { return nil })
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
