package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/memos/internal/apperr"
	"github.com/iliyamo/memos/internal/model"
	"github.com/iliyamo/memos/internal/repository"
	"github.com/iliyamo/memos/internal/utils"
)

// PasswordHasher hashes and verifies passwords.  Satisfied by
// utils.PasswordHasher.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// SignupInput is the body of a signup.
type SignupInput struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Nickname    string `json:"nickname"`
	AvatarURL   string `json:"avatar_url"`
	Description string `json:"description"`
}

// UserService covers signup, signin and profile reads and edits.
type UserService struct {
	users  UserStore
	hasher PasswordHasher
	codec  *utils.SessionCodec
	now    func() time.Time
}

func NewUserService(users UserStore, hasher PasswordHasher, codec *utils.SessionCodec) *UserService {
	return &UserService{users: users, hasher: hasher, codec: codec, now: time.Now}
}

// WithClock replaces the time source.
func (s *UserService) WithClock(now func() time.Time) *UserService {
	s.now = now
	return s
}

func invalid(msg string) error { return apperr.New(apperr.ErrInvalid, msg) }

func (in *SignupInput) validate() error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if n := utf8.RuneCountInString(in.Username); n < 3 || n > 100 {
		return invalid("username must be 3 to 100 characters")
	}
	if strings.ContainsAny(in.Username, " \t\r\n") {
		return invalid("username must not contain spaces")
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return invalid("invalid email")
	}
	if utf8.RuneCountInString(in.Password) < 6 {
		return invalid("password must be at least 6 characters")
	}
	return nil
}

// Signup creates a USER account.  A taken username or email is
// ErrConflict.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		Nickname:     in.Nickname,
		PasswordHash: hash,
		AvatarURL:    in.AvatarURL,
		Description:  in.Description,
		Role:         model.RoleUser,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

var errBadLogin = apperr.New(apperr.ErrUnauthenticated, "invalid email or password")

// Signin checks the password and issues a session token.  Unknown email
// and wrong password are indistinguishable.
func (s *UserService) Signin(ctx context.Context, email, password string) (utils.SessionToken, *model.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return utils.SessionToken{}, nil, errBadLogin
	}
	if err != nil {
		return utils.SessionToken{}, nil, err
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return utils.SessionToken{}, nil, errBadLogin
	}
	tok, err := s.codec.Issue(u.ID)
	if err != nil {
		return utils.SessionToken{}, nil, err
	}
	return tok, u, nil
}

// Get returns user id.  Any authenticated caller may read profiles.
func (s *UserService) Get(ctx context.Context, p model.Principal, id uint64) (*model.User, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}

// List pages through users by id.
func (s *UserService) List(ctx context.Context, p model.Principal, skip int, limit *int) ([]model.User, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	return s.users.List(ctx, repository.ClampPage(skip, limit))
}

// UpdateProfile applies patch to the caller's own profile.
func (s *UserService) UpdateProfile(ctx context.Context, p model.Principal, patch model.UserPatch) (*model.User, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if patch.Nickname != nil && utf8.RuneCountInString(*patch.Nickname) > 100 {
		return nil, invalid("nickname too long")
	}
	return s.users.UpdateProfile(ctx, p.UserID, patch, s.now().UTC())
}
