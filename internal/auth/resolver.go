// Package auth turns the bearer credential of a request into a
// principal.  Two credential kinds share the same header: short-lived
// session tokens (signed, stateless) and personal access tokens (opaque,
// stored by digest).  Session verification is always attempted first and
// must fail cleanly before the access-token store is consulted.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/memos/internal/apperr"
	"github.com/iliyamo/memos/internal/model"
	"github.com/iliyamo/memos/internal/utils"
)

// UserFinder looks users up by id.
type UserFinder interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// TokenFinder looks access tokens up by digest, joined to their owner.
type TokenFinder interface {
	FindByHash(ctx context.Context, hash string) (*model.AccessToken, *model.User, error)
}

// Observer receives one outcome label per resolution.  Implemented by
// the metrics collector.
type Observer interface {
	ObserveCredential(outcome string)
}

// Outcome labels passed to the Observer.
const (
	OutcomeAnonymous = "anonymous"
	OutcomeSession   = "session"
	OutcomeToken     = "token"
	OutcomeExpired   = "expired"
	OutcomeInvalid   = "invalid"
)

// Identity is the tagged result of a resolution.  For the anonymous
// principal User is nil.
type Identity struct {
	Principal model.Principal
	User      *model.User
}

// Mode selects how strict a resolution is.
type Mode int

const (
	// Optional yields the anonymous principal for an absent or
	// unrecognized credential.  An expired access token still fails.
	Optional Mode = iota
	// RequireAny accepts a session or an access token and fails when
	// neither produces a user.
	RequireAny
	// RequireSession accepts session tokens only.
	RequireSession
)

// Resolver is safe for concurrent use.
type Resolver struct {
	codec    *utils.SessionCodec
	users    UserFinder
	tokens   TokenFinder
	now      func() time.Time
	observer Observer
}

func NewResolver(codec *utils.SessionCodec, users UserFinder, tokens TokenFinder) *Resolver {
	return &Resolver{codec: codec, users: users, tokens: tokens, now: time.Now}
}

// WithClock replaces the time source used for access-token expiry.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// WithObserver attaches an outcome observer.
func (r *Resolver) WithObserver(o Observer) *Resolver {
	r.observer = o
	return r
}

func (r *Resolver) observe(outcome string) {
	if r.observer != nil {
		r.observer.ObserveCredential(outcome)
	}
}

var errNoCredential = apperr.New(apperr.ErrUnauthenticated, "missing credentials")
var errBadCredential = apperr.New(apperr.ErrUnauthenticated, "invalid credentials")

// Resolve maps raw (the credential without its "Bearer " prefix) to an
// identity according to mode.  Storage failures other than "not found"
// are returned as-is so they surface as 500s rather than 401s.
func (r *Resolver) Resolve(ctx context.Context, raw string, mode Mode) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if mode == Optional {
			r.observe(OutcomeAnonymous)
			return Identity{Principal: model.Anonymous()}, nil
		}
		r.observe(OutcomeInvalid)
		return Identity{}, errNoCredential
	}

	id, err := r.session(ctx, raw)
	if err == nil {
		r.observe(OutcomeSession)
		return id, nil
	}
	if !errors.Is(err, apperr.ErrUnauthenticated) {
		return Identity{}, err
	}
	if mode == RequireSession {
		r.observe(OutcomeInvalid)
		return Identity{}, errBadCredential
	}

	id, err = r.accessToken(ctx, raw)
	switch {
	case err == nil:
		r.observe(OutcomeToken)
		return id, nil
	case errors.Is(err, apperr.ErrTokenExpired):
		r.observe(OutcomeExpired)
		return Identity{}, err
	case errors.Is(err, apperr.ErrUnauthenticated):
		if mode == Optional {
			r.observe(OutcomeAnonymous)
			return Identity{Principal: model.Anonymous()}, nil
		}
		r.observe(OutcomeInvalid)
		return Identity{}, err
	default:
		return Identity{}, err
	}
}

// session verifies raw as a session token and loads its subject.
func (r *Resolver) session(ctx context.Context, raw string) (Identity, error) {
	uid, err := r.codec.Verify(raw)
	if err != nil {
		return Identity{}, errBadCredential
	}
	u, err := r.users.GetByID(ctx, uid)
	if errors.Is(err, apperr.ErrNotFound) {
		return Identity{}, errBadCredential
	}
	if err != nil {
		return Identity{}, err
	}
	return Identity{Principal: model.Authenticated(u.ID, model.CredentialSession), User: u}, nil
}

// accessToken looks raw up by digest and checks its expiry.  Expired
// rows are left in place.
func (r *Resolver) accessToken(ctx context.Context, raw string) (Identity, error) {
	t, u, err := r.tokens.FindByHash(ctx, utils.HashToken(raw))
	if errors.Is(err, apperr.ErrNotFound) {
		return Identity{}, errBadCredential
	}
	if err != nil {
		return Identity{}, err
	}
	if t.ExpiredAt(r.now()) {
		return Identity{}, apperr.ErrTokenExpired
	}
	return Identity{Principal: model.Authenticated(u.ID, model.CredentialToken), User: u}, nil
}
