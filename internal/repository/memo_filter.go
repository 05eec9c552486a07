package repository

import (
	"strings"
	"time"

	"github.com/iliyamo/memos/internal/model"
)

// MemoFilter is the conjunction of optional predicates a memo query
// applies.  Nil or empty fields do not constrain the result.
type MemoFilter struct {
	CreatorID     *uint64
	Visibility    *model.Visibility
	Tag           string
	Pinned        *bool
	Content       string // case-insensitive substring
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// Matches reports whether m satisfies every set predicate.  It is the
// in-memory twin of buildMemoWhere.
func (f MemoFilter) Matches(m *model.Memo) bool {
	if f.CreatorID != nil && m.CreatorID != *f.CreatorID {
		return false
	}
	if f.Visibility != nil && m.Visibility != *f.Visibility {
		return false
	}
	if f.Tag != "" && !m.HasTag(f.Tag) {
		return false
	}
	if f.Pinned != nil && m.Pinned != *f.Pinned {
		return false
	}
	if f.Content != "" && !strings.Contains(strings.ToLower(m.Content), strings.ToLower(f.Content)) {
		return false
	}
	if f.CreatedAfter != nil && m.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && m.CreatedAt.After(*f.CreatedBefore) {
		return false
	}
	return true
}

// buildMemoWhere renders f as a SQL WHERE clause (without the keyword)
// and its positional arguments.  An empty filter yields "1=1".
func buildMemoWhere(f MemoFilter) (string, []any) {
	conds := make([]string, 0, 7)
	args := make([]any, 0, 7)
	if f.CreatorID != nil {
		conds = append(conds, "creator_id = ?")
		args = append(args, *f.CreatorID)
	}
	if f.Visibility != nil {
		conds = append(conds, "visibility = ?")
		args = append(args, string(*f.Visibility))
	}
	if f.Tag != "" {
		conds = append(conds, "JSON_CONTAINS(tags, JSON_QUOTE(?))")
		args = append(args, f.Tag)
	}
	if f.Pinned != nil {
		conds = append(conds, "pinned = ?")
		args = append(args, *f.Pinned)
	}
	if f.Content != "" {
		conds = append(conds, "LOWER(content) LIKE ?")
		args = append(args, "%"+escapeLike(strings.ToLower(f.Content))+"%")
	}
	if f.CreatedAfter != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, *f.CreatedBefore)
	}
	if len(conds) == 0 {
		return "1=1", args
	}
	return strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralizes LIKE wildcards in user input.
func escapeLike(s string) string { return likeEscaper.Replace(s) }
