package service

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/memos/internal/apperr"
	"github.com/iliyamo/memos/internal/model"
	"github.com/iliyamo/memos/internal/utils"
)

// IssuedToken is an access token together with its raw value.  The raw
// value exists only in this response; the store keeps its digest.
type IssuedToken struct {
	model.AccessToken
	Token string `json:"token"`
}

// TokenService issues, lists and revokes personal access tokens.  Every
// operation is scoped to the caller.
type TokenService struct {
	tokens TokenStore
	now    func() time.Time
}

func NewTokenService(tokens TokenStore) *TokenService {
	return &TokenService{tokens: tokens, now: time.Now}
}

// WithClock replaces the time source.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

const (
	maxDescriptionLen = 255
	maxExpiryDays     = 36500
)

// Issue creates a token for the caller.  With expiresInDays set the
// token expires that many days from now; zero days yields a token that
// is already unusable.  Without it the token never expires.  The
// horizon is capped at 36500 days.
func (s *TokenService) Issue(ctx context.Context, p model.Principal, description string, expiresInDays *int) (*IssuedToken, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if len(description) > maxDescriptionLen {
		return nil, apperr.New(apperr.ErrInvalid, "description too long")
	}
	now := s.now().UTC()
	var expires *time.Time
	if expiresInDays != nil {
		if *expiresInDays < 0 {
			return nil, apperr.New(apperr.ErrInvalid, "expires_in_days must not be negative")
		}
		if *expiresInDays > maxExpiryDays {
			return nil, apperr.New(apperr.ErrInvalid, fmt.Sprintf("expires_in_days must be at most %d", maxExpiryDays))
		}
		e := now.AddDate(0, 0, *expiresInDays)
		expires = &e
	}

	raw, err := utils.NewOpaqueToken()
	if err != nil {
		return nil, err
	}
	t := model.AccessToken{
		UserID:      p.UserID,
		TokenHash:   utils.HashToken(raw),
		Description: description,
		IssuedAt:    now,
		ExpiresAt:   expires,
	}
	if err := s.tokens.Create(ctx, &t); err != nil {
		return nil, err
	}
	return &IssuedToken{AccessToken: t, Token: raw}, nil
}

// List returns the caller's tokens without their raw values.
func (s *TokenService) List(ctx context.Context, p model.Principal) ([]model.AccessToken, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	return s.tokens.ListByUser(ctx, p.UserID)
}

// Revoke deletes token id if the caller owns it.  Someone else's token
// and a missing one both report ErrNotFound.
func (s *TokenService) Revoke(ctx context.Context, p model.Principal, id uint64) error {
	if err := requireUser(p); err != nil {
		return err
	}
	if err := s.tokens.DeleteByIDAndUser(ctx, id, p.UserID); err != nil {
		return err
	}
	return nil
}
