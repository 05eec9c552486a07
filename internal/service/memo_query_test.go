package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/memos/internal/apperr"
	"github.com/iliyamo/memos/internal/model"
	"github.com/iliyamo/memos/internal/policy"
)

// seed gives alice and bob one memo of every visibility.
func seed(t *testing.T, e *env) map[string]*model.Memo {
	t.Helper()
	out := map[string]*model.Memo{}
	for _, owner := range []struct {
		name string
		p    model.Principal
	}{{"alice", e.alice}, {"bob", e.bob}} {
		for _, v := range model.Visibilities {
			key := owner.name + "-" + string(v)
			out[key] = e.memo(t, owner.p, v, key, owner.name, string(v))
		}
	}
	return out
}

func TestList_AnonymousSeesOnlyPublicNewestFirst(t *testing.T) {
	e := newEnv(t)
	m := seed(t, e)

	got, err := e.query.List(context.Background(), e.anon, MemoQuery{})
	require.NoError(t, err)
	assert.Equal(t, []uint64{m["bob-PUBLIC"].ID, m["alice-PUBLIC"].ID}, ids(got))
}

func TestList_AnonymousCannotWidenVisibility(t *testing.T) {
	e := newEnv(t)
	m := seed(t, e)

	got, err := e.query.List(context.Background(), e.anon, MemoQuery{Visibility: ptr(model.VisibilityPrivate), CreatorID: &e.alice.UserID})
	require.NoError(t, err)
	assert.Equal(t, []uint64{m["alice-PUBLIC"].ID}, ids(got))
}

func TestList_AuthenticatedDefaultsToOwnMemos(t *testing.T) {
	e := newEnv(t)
	m := seed(t, e)

	got, err := e.query.List(context.Background(), e.alice, MemoQuery{})
	require.NoError(t, err)
	assert.Equal(t, []uint64{m["alice-PRIVATE"].ID, m["alice-PROTECTED"].ID, m["alice-PUBLIC"].ID}, ids(got))
}

func TestList_OtherOwnerScopeHidesPrivate(t *testing.T) {
	e := newEnv(t)
	m := seed(t, e)

	got, err := e.query.List(context.Background(), e.alice, MemoQuery{CreatorID: &e.bob.UserID})
	require.NoError(t, err)
	assert.Equal(t, []uint64{m["bob-PROTECTED"].ID, m["bob-PUBLIC"].ID}, ids(got))
}

// Every combination of explicit creator/visibility parameters, for
// every kind of caller, yields only rows the policy allows.
func TestListSearchFilter_NeverLeak(t *testing.T) {
	e := newEnv(t)
	seed(t, e)
	ctx := context.Background()

	creators := []*uint64{nil, &e.alice.UserID, &e.bob.UserID, ptr(uint64(999))}
	visibilities := []*model.Visibility{nil}
	for _, v := range model.Visibilities {
		visibilities = append(visibilities, ptr(v))
	}
	viewers := map[string]model.Principal{"anon": e.anon, "alice": e.alice, "bob": e.bob}

	for vname, viewer := range viewers {
		for _, c := range creators {
			for _, v := range visibilities {
				q := MemoQuery{CreatorID: c, Visibility: v}
				name := fmt.Sprintf("%s/creator=%v/vis=%v", vname, c, v)

				list, err := e.query.List(ctx, viewer, q)
				require.NoError(t, err, name)
				search, err := e.query.Search(ctx, viewer, "-", q)
				require.NoError(t, err, name)
				filter, err := e.query.Filter(ctx, viewer, q)
				require.NoError(t, err, name)

				for _, set := range [][]model.Memo{list, search, filter} {
					for _, m := range set {
						assert.True(t, policy.CanView(m.Visibility, viewer, m.CreatorID), "%s leaked memo %d (%s)", name, m.ID, m.Visibility)
					}
				}
			}
		}
	}
}

func TestSearch_RequiresQueryAndMatchesCaseInsensitively(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	hit := e.memo(t, e.alice, model.VisibilityPublic, "Learning GO today")
	e.memo(t, e.alice, model.VisibilityPublic, "rust notes")

	_, err := e.query.Search(ctx, e.alice, "  ", MemoQuery{})
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	got, err := e.query.Search(ctx, e.anon, "go", MemoQuery{})
	require.NoError(t, err)
	assert.Equal(t, []uint64{hit.ID}, ids(got))
}

func TestFilter_ConjunctionOfPredicates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	match := e.memo(t, e.alice, model.VisibilityPublic, "deploy checklist", "ops")
	_, err := e.memos.Update(ctx, e.alice, match.ID, model.MemoPatch{Pinned: ptr(true)})
	require.NoError(t, err)
	e.memo(t, e.alice, model.VisibilityPublic, "deploy notes", "dev")  // wrong tag
	e.memo(t, e.alice, model.VisibilityPublic, "other checklist", "ops") // not pinned

	got, err := e.query.Filter(ctx, e.alice, MemoQuery{Tag: "ops", Pinned: ptr(true), Content: "DEPLOY"})
	require.NoError(t, err)
	assert.Equal(t, []uint64{match.ID}, ids(got))
}

func TestFilter_DateRange(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	early := e.memo(t, e.alice, model.VisibilityPublic, "early")
	e.clock.advance(48 * time.Hour)
	late := e.memo(t, e.alice, model.VisibilityPublic, "late")

	from := late.CreatedAt.Add(-time.Hour).Format(time.RFC3339)
	got, err := e.query.Filter(ctx, e.alice, MemoQuery{DateFrom: from})
	require.NoError(t, err)
	assert.Equal(t, []uint64{late.ID}, ids(got))

	to := early.CreatedAt.Format("2006-01-02 15:04:05")
	got, err = e.query.Filter(ctx, e.alice, MemoQuery{DateTo: to})
	require.NoError(t, err)
	assert.Equal(t, []uint64{early.ID}, ids(got), "bounds are inclusive")
}

func TestFilter_UnparsableDatesAreIgnored(t *testing.T) {
	e := newEnv(t)
	seed(t, e)

	got, err := e.query.Filter(context.Background(), e.alice, MemoQuery{DateFrom: "yesterday", DateTo: "31/12/2024"})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestPagination_Clamped(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	for i := 0; i < 105; i++ {
		e.memo(t, e.alice, model.VisibilityPublic, fmt.Sprintf("m%d", i))
	}

	got, err := e.query.List(ctx, e.alice, MemoQuery{Limit: ptr(200)})
	require.NoError(t, err)
	assert.Len(t, got, 100)

	got, err = e.query.List(ctx, e.alice, MemoQuery{Limit: ptr(0)})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = e.query.List(ctx, e.alice, MemoQuery{Skip: 100, Limit: ptr(10)})
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, "m4", got[0].Content)

	got, err = e.query.List(ctx, e.alice, MemoQuery{Skip: -5, Limit: ptr(1)})
	require.NoError(t, err)
	assert.Equal(t, "m104", got[0].Content)
}

func TestTagsAndStats_OverPolicyCheckedSet(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seed(t, e)
	pinned := e.memo(t, e.bob, model.VisibilityPublic, "pinned", "bob", "extra")
	_, err := e.memos.Update(ctx, e.bob, pinned.ID, model.MemoPatch{Pinned: ptr(true)})
	require.NoError(t, err)

	tags, err := e.query.Tags(ctx, e.anon, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"PUBLIC", "alice", "bob", "extra"}, tags)

	tags, err = e.query.Tags(ctx, e.alice, &e.bob.UserID)
	require.NoError(t, err)
	assert.Equal(t, []string{"PROTECTED", "PUBLIC", "bob", "extra"}, tags)

	st, err := e.query.Stats(ctx, e.alice, &e.bob.UserID)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalMemos)
	assert.Equal(t, 1, st.PinnedMemos)
	assert.Equal(t, map[model.Visibility]int{model.VisibilityPublic: 2, model.VisibilityProtected: 1, model.VisibilityPrivate: 0}, st.VisibilityCounts)
	assert.Equal(t, 4, st.TotalTags, "distinct tags, not tag occurrences")
	assert.Equal(t, []string{"PROTECTED", "PUBLIC", "bob", "extra"}, st.UniqueTags)

	st, err = e.query.Stats(ctx, e.alice, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalMemos)
	assert.Equal(t, 1, st.VisibilityCounts[model.VisibilityPrivate])

	st, err = e.query.Stats(ctx, e.anon, &e.alice.UserID)
	require.NoError(t, err)
	assert.NotNil(t, st.UniqueTags)
}
