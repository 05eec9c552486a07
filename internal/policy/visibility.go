// Package policy holds the single visibility rule every read path uses.
// Handlers and services must not re-implement the three-way branch.
package policy

import (
	"github.com/iliyamo/memos/internal/apperr"
	"github.com/iliyamo/memos/internal/model"
)

// CanView decides whether viewer may see a memo with the given
// visibility owned by ownerID.
//
//	PUBLIC    anyone, including anonymous callers
//	PROTECTED any authenticated principal
//	PRIVATE   only the owner
//
// Unknown visibilities are denied.
func CanView(v model.Visibility, viewer model.Principal, ownerID uint64) bool {
	switch v {
	case model.VisibilityPublic:
		return true
	case model.VisibilityProtected:
		return viewer.IsAuthenticated()
	case model.VisibilityPrivate:
		return viewer.Is(ownerID)
	}
	return false
}

// CheckView is CanView for single-resource reads, where the caller needs
// to know why access was denied: an anonymous viewer gets
// ErrUnauthenticated (a credential might help), an authenticated one
// gets ErrForbidden.
func CheckView(m *model.Memo, viewer model.Principal) error {
	if CanView(m.Visibility, viewer, m.CreatorID) {
		return nil
	}
	if !viewer.IsAuthenticated() {
		return apperr.New(apperr.ErrUnauthenticated, "authentication required")
	}
	return apperr.New(apperr.ErrForbidden, "access denied")
}

// FilterVisible keeps the memos viewer may see, preserving order.
func FilterVisible(memos []model.Memo, viewer model.Principal) []model.Memo {
	out := make([]model.Memo, 0, len(memos))
	for _, m := range memos {
		if CanView(m.Visibility, viewer, m.CreatorID) {
			out = append(out, m)
		}
	}
	return out
}
