package model

import "time"

// Role is the stored role of a user.  It is persisted and returned to
// clients but no access decision in this service consults it.
type Role string

const (
	RoleHost  Role = "HOST"
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// User represents an application user record as stored in the `users`
// table.  PasswordHash is never serialized; handlers expose users via
// the json tags below.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name.
//  Email        – unique email address (normalized to lower case).
//  Nickname     – optional display name.
//  PasswordHash – bcrypt hashed password.
//  AvatarURL    – optional avatar location.
//  Description  – optional free-text profile.
//  Role         – HOST, ADMIN or USER.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update (nil until first update).
type User struct {
	ID           uint64     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Nickname     string     `json:"nickname,omitempty"`
	PasswordHash string     `json:"-"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
	Description  string     `json:"description,omitempty"`
	Role         Role       `json:"role"`
	CreatedAt    time.Time  `json:"created_ts"`
	UpdatedAt    *time.Time `json:"updated_ts,omitempty"`
}

// UserPatch carries the profile fields a user may change about
// themselves.  Nil fields are left untouched.
type UserPatch struct {
	Nickname    *string `json:"nickname"`
	AvatarURL   *string `json:"avatar_url"`
	Description *string `json:"description"`
}

// Apply copies every non-nil field of p onto u.
func (p UserPatch) Apply(u *User) {
	if p.Nickname != nil {
		u.Nickname = *p.Nickname
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
	if p.Description != nil {
		u.Description = *p.Description
	}
}
