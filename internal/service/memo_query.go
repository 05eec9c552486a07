package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/memos/internal/apperr"
	"github.com/iliyamo/memos/internal/model"
	"github.com/iliyamo/memos/internal/policy"
	"github.com/iliyamo/memos/internal/repository"
)

// MemoQuery is the union of the parameters the list, search and filter
// entry points accept.  Dates stay raw strings: an unparsable date
// drops that bound instead of failing the request.
type MemoQuery struct {
	CreatorID  *uint64
	Visibility *model.Visibility
	Tag        string
	Pinned     *bool
	Content    string
	DateFrom   string
	DateTo     string
	Skip       int
	Limit      *int
}

// MemoStats is the aggregate view over the memos a caller may see.
// TotalTags counts distinct tags; UniqueTags lists them sorted.
type MemoStats struct {
	TotalMemos       int                      `json:"total_memos"`
	PinnedMemos      int                      `json:"pinned_memos"`
	VisibilityCounts map[model.Visibility]int `json:"visibility_counts"`
	TotalTags        int                      `json:"total_tags"`
	UniqueTags       []string                 `json:"unique_tags"`
}

// QueryService serves every multi-memo read.  It never trusts the
// store result alone: rows are re-checked with the visibility policy.
type QueryService struct {
	memos MemoStore
}

func NewQueryService(memos MemoStore) *QueryService { return &QueryService{memos: memos} }

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseDate returns nil for empty or unparsable input.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// scope turns q into a store filter for viewer.  Anonymous callers are
// pinned to PUBLIC whatever they asked for; authenticated callers who
// name no creator are scoped to themselves.
func scope(viewer model.Principal, q MemoQuery) repository.MemoFilter {
	f := repository.MemoFilter{
		CreatorID:     q.CreatorID,
		Visibility:    q.Visibility,
		Tag:           strings.TrimSpace(q.Tag),
		Pinned:        q.Pinned,
		Content:       q.Content,
		CreatedAfter:  parseDate(q.DateFrom),
		CreatedBefore: parseDate(q.DateTo),
	}
	if !viewer.IsAuthenticated() {
		public := model.VisibilityPublic
		f.Visibility = &public
		return f
	}
	if f.CreatorID == nil {
		own := viewer.UserID
		f.CreatorID = &own
	}
	return f
}

func (s *QueryService) run(ctx context.Context, viewer model.Principal, q MemoQuery, page repository.Page) ([]model.Memo, error) {
	rows, err := s.memos.Query(ctx, scope(viewer, q), page)
	if err != nil {
		return nil, err
	}
	return policy.FilterVisible(rows, viewer), nil
}

// List returns the caller's view of memos, newest first.  Only creator,
// visibility, tag and pinned apply here.
func (s *QueryService) List(ctx context.Context, viewer model.Principal, q MemoQuery) ([]model.Memo, error) {
	q.Content, q.DateFrom, q.DateTo = "", "", ""
	return s.run(ctx, viewer, q, repository.ClampPage(q.Skip, q.Limit))
}

// Search is List plus a required case-insensitive content substring.
func (s *QueryService) Search(ctx context.Context, viewer model.Principal, text string, q MemoQuery) ([]model.Memo, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.New(apperr.ErrInvalid, "query is required")
	}
	q.Content = text
	q.Pinned, q.DateFrom, q.DateTo = nil, "", ""
	return s.run(ctx, viewer, q, repository.ClampPage(q.Skip, q.Limit))
}

// Filter accepts every predicate, including the date range.
func (s *QueryService) Filter(ctx context.Context, viewer model.Principal, q MemoQuery) ([]model.Memo, error) {
	return s.run(ctx, viewer, q, repository.ClampPage(q.Skip, q.Limit))
}

// all scans the whole scoped set; used by the derived views.
func (s *QueryService) all(ctx context.Context, viewer model.Principal, creatorID *uint64) ([]model.Memo, error) {
	return s.run(ctx, viewer, MemoQuery{CreatorID: creatorID}, repository.Page{})
}

// Tags returns the sorted distinct tags of the memos viewer may see,
// scoped like List.
func (s *QueryService) Tags(ctx context.Context, viewer model.Principal, creatorID *uint64) ([]string, error) {
	memos, err := s.all(ctx, viewer, creatorID)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	out := make([]string, 0)
	for _, m := range memos {
		for _, t := range m.Tags {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Stats aggregates the memos viewer may see, scoped like List.
func (s *QueryService) Stats(ctx context.Context, viewer model.Principal, creatorID *uint64) (MemoStats, error) {
	memos, err := s.all(ctx, viewer, creatorID)
	if err != nil {
		return MemoStats{}, err
	}
	st := MemoStats{VisibilityCounts: make(map[model.Visibility]int, len(model.Visibilities))}
	for _, v := range model.Visibilities {
		st.VisibilityCounts[v] = 0
	}
	unique := map[string]bool{}
	for _, m := range memos {
		st.TotalMemos++
		if m.Pinned {
			st.PinnedMemos++
		}
		st.VisibilityCounts[m.Visibility]++
		for _, t := range m.Tags {
			unique[t] = true
		}
	}
	st.UniqueTags = make([]string, 0, len(unique))
	for t := range unique {
		st.UniqueTags = append(st.UniqueTags, t)
	}
	sort.Strings(st.UniqueTags)
	st.TotalTags = len(st.UniqueTags)
	return st, nil
}
