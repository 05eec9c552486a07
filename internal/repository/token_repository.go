package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/memos/internal/apperr"
	"github.com/iliyamo/memos/internal/dbx"
	"github.com/iliyamo/memos/internal/model"
)

// TokenRepo persists personal access tokens.  Only the hex SHA-256 of
// the raw token is stored, in the unique `token_hash` column.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

func scanToken(s rowScanner, t *model.AccessToken, extra ...any) error {
	var (
		description sql.NullString
		expires     sql.NullTime
	)
	dest := append([]any{&t.ID, &t.UserID, &t.TokenHash, &description, &t.IssuedAt, &expires}, extra...)
	if err := s.Scan(dest...); err != nil {
		return err
	}
	t.Description = description.String
	if expires.Valid {
		e := expires.Time
		t.ExpiresAt = &e
	}
	return nil
}

// Create inserts t and fills in its ID.
func (r *TokenRepo) Create(ctx context.Context, t *model.AccessToken) error {
	var expires any
	if t.ExpiresAt != nil {
		expires = *t.ExpiresAt
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO access_tokens (user_id, token_hash, description, issued_at, expires_at) VALUES (?,?,?,?,?)",
		t.UserID, t.TokenHash, nullString(t.Description), t.IssuedAt, expires)
	if err != nil {
		if dbx.IsDuplicateKey(err) {
			return apperr.New(apperr.ErrConflict, "token already exists")
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// FindByHash returns the token with the given digest and its owner.
// Expiry is not checked here.
func (r *TokenRepo) FindByHash(ctx context.Context, hash string) (*model.AccessToken, *model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT t.id, t.user_id, t.token_hash, t.description, t.issued_at, t.expires_at,
		        u.id, u.username, u.email, u.nickname, u.password_hash, u.avatar_url, u.description, u.role, u.created_at, u.updated_at
		   FROM access_tokens t JOIN users u ON u.id = t.user_id
		  WHERE t.token_hash = ? LIMIT 1`, hash)

	var (
		t                             model.AccessToken
		u                             model.User
		nickname, avatar, description sql.NullString
		role                          string
		updated                       sql.NullTime
	)
	err := scanToken(row, &t, &u.ID, &u.Username, &u.Email, &nickname, &u.PasswordHash, &avatar, &description, &role, &u.CreatedAt, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	u.Nickname, u.AvatarURL, u.Description = nickname.String, avatar.String, description.String
	u.Role = model.Role(role)
	if updated.Valid {
		ut := updated.Time
		u.UpdatedAt = &ut
	}
	return &t, &u, nil
}

// ListByUser returns the user's tokens, newest first.
func (r *TokenRepo) ListByUser(ctx context.Context, userID uint64) ([]model.AccessToken, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, user_id, token_hash, description, issued_at, expires_at FROM access_tokens WHERE user_id = ? ORDER BY issued_at DESC, id DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.AccessToken, 0)
	for rows.Next() {
		var t model.AccessToken
		if err := scanToken(rows, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteByIDAndUser removes token id only if it belongs to userID.  A
// token owned by someone else is indistinguishable from a missing one:
// both yield apperr.ErrNotFound.
func (r *TokenRepo) DeleteByIDAndUser(ctx context.Context, id, userID uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM access_tokens WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
