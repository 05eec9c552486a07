package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Visibility is the access tier of a memo.
type Visibility string

const (
	VisibilityPublic    Visibility = "PUBLIC"
	VisibilityProtected Visibility = "PROTECTED"
	VisibilityPrivate   Visibility = "PRIVATE"
)

// Visibilities lists every tier in a stable order.
var Visibilities = []Visibility{VisibilityPublic, VisibilityProtected, VisibilityPrivate}

// Valid reports whether v is one of the three known tiers.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityProtected, VisibilityPrivate:
		return true
	}
	return false
}

// ParseVisibility accepts a tier name in any letter case.  The empty
// string is rejected; callers decide what "absent" means.
func ParseVisibility(s string) (Visibility, error) {
	v := Visibility(strings.ToUpper(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("unknown visibility %q", s)
	}
	return v, nil
}

// Memo mirrors a row of the `memos` table.  CreatorID never changes
// after creation.
type Memo struct {
	ID         uint64          `json:"id"`
	UID        string          `json:"uid"`
	CreatorID  uint64          `json:"creator_id"`
	Content    string          `json:"content"`
	Visibility Visibility      `json:"visibility"`
	Tags       []string        `json:"tags"`
	Pinned     bool            `json:"pinned"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreatedAt  time.Time       `json:"created_ts"`
	UpdatedAt  *time.Time      `json:"updated_ts,omitempty"`
}

// HasTag reports whether tag is a member of the memo's tag set.
func (m *Memo) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// MemoPatch is a partial update.  Only non-nil fields are applied so
// that unspecified fields keep their stored values byte for byte.
type MemoPatch struct {
	Content    *string     `json:"content"`
	Visibility *Visibility `json:"visibility"`
	Tags       *[]string   `json:"tags"`
	Pinned     *bool       `json:"pinned"`
}

// Empty reports whether the patch changes nothing.
func (p MemoPatch) Empty() bool {
	return p.Content == nil && p.Visibility == nil && p.Tags == nil && p.Pinned == nil
}

// Apply copies every non-nil field of p onto m.
func (p MemoPatch) Apply(m *Memo) {
	if p.Content != nil {
		m.Content = *p.Content
	}
	if p.Visibility != nil {
		m.Visibility = *p.Visibility
	}
	if p.Tags != nil {
		m.Tags = NormalizeTags(*p.Tags)
	}
	if p.Pinned != nil {
		m.Pinned = *p.Pinned
	}
}

// NormalizeTags trims tags, drops empty ones and removes duplicates while
// keeping first-seen order.  The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
