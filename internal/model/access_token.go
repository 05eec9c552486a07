package model

import "time"

// AccessToken models a row of the `access_tokens` table: a long-lived
// personal credential.  Only the SHA-256 digest of the raw string is
// stored; the raw value is returned once, at issuance.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – owner of the credential.
//  TokenHash   – hex SHA-256 digest of the raw token.
//  Description – optional free text shown in listings.
//  IssuedAt    – creation time.
//  ExpiresAt   – optional expiry; nil means the credential never expires.
type AccessToken struct {
	ID          uint64     `json:"id"`
	UserID      uint64     `json:"-"`
	TokenHash   string     `json:"-"`
	Description string     `json:"description,omitempty"`
	IssuedAt    time.Time  `json:"issued_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// ExpiredAt reports whether the credential is expired at now.  Expiry is
// strict: a credential is still valid at the exact instant ExpiresAt.
func (t *AccessToken) ExpiredAt(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}
