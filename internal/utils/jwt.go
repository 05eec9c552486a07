// Package utils provides token creation, verification and hashing helpers.
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSession is returned by SessionCodec.Verify for any token that
// is malformed, carries a bad signature, is expired or names no subject.
var ErrInvalidSession = errors.New("invalid session token")

// SessionToken is a signed, short-lived session credential together with
// its expiry.  Token is the serialized JWT sent as a Bearer credential.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// SessionCodec issues and verifies HS256 session tokens whose subject is
// the numeric user id.  The secret and lifetime are fixed at
// construction; nothing is read from process-wide state.
type SessionCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionCodec builds a codec for secret with tokens living ttl.
func NewSessionCodec(secret string, ttl time.Duration) *SessionCodec {
	return &SessionCodec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the codec's time source.  Tests use it to mint and
// verify tokens at fixed instants.
func (c *SessionCodec) WithClock(now func() time.Time) *SessionCodec {
	c.now = now
	return c
}

// Issue signs a token for userID.  The JWT carries sub (user id as a
// decimal string), iat and exp.
func (c *SessionCodec) Issue(userID uint64) (SessionToken, error) {
	now := c.now().UTC()
	exp := now.Add(c.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// Verify checks signature, algorithm and expiry of raw and returns the
// subject user id.  Every failure is reported as ErrInvalidSession so
// callers can fall back to other credential kinds without inspecting
// library errors.
func (c *SessionCodec) Verify(raw string) (uint64, error) {
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		// Reject anything not signed with HMAC; guards against alg=none.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !tok.Valid {
		return 0, ErrInvalidSession
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidSession
	}
	return id, nil
}

// NewOpaqueToken returns a cryptographically secure random token used as
// a personal access credential: 32 random bytes, hex encoded.
func NewOpaqueToken() (string, error) {
	return randomHex(32)
}

// HashToken returns the SHA-256 hex digest of a raw access token.  Only
// the digest is persisted, so a leaked table cannot be replayed.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
