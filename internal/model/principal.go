package model

// CredentialKind records how a principal was established for a request.
type CredentialKind string

const (
	CredentialNone    CredentialKind = "anonymous"
	CredentialSession CredentialKind = "session"
	CredentialToken   CredentialKind = "token"
)

// Principal is the acting identity of a request.  The zero value is the
// anonymous principal.  It is derived per request and never persisted.
type Principal struct {
	UserID uint64
	Via    CredentialKind
}

// Anonymous returns the unauthenticated principal.
func Anonymous() Principal { return Principal{Via: CredentialNone} }

// Authenticated returns a principal for userID established through via.
func Authenticated(userID uint64, via CredentialKind) Principal {
	return Principal{UserID: userID, Via: via}
}

// IsAuthenticated reports whether the principal names a user.
func (p Principal) IsAuthenticated() bool { return p.UserID != 0 }

// Is reports whether the principal is the authenticated user id.
func (p Principal) Is(id uint64) bool { return p.IsAuthenticated() && p.UserID == id }
