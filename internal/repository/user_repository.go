package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/memos/internal/apperr"
	"github.com/iliyamo/memos/internal/dbx"
	"github.com/iliyamo/memos/internal/model"
)

const userColumns = "id, username, email, nickname, password_hash, avatar_url, description, role, created_at, updated_at"

// UserRepo reads and writes the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*model.User, error) {
	var (
		u                             model.User
		nickname, avatar, description sql.NullString
		role                          string
		updated                       sql.NullTime
	)
	if err := s.Scan(&u.ID, &u.Username, &u.Email, &nickname, &u.PasswordHash, &avatar, &description, &role, &u.CreatedAt, &updated); err != nil {
		return nil, err
	}
	u.Nickname = nickname.String
	u.AvatarURL = avatar.String
	u.Description = description.String
	u.Role = model.Role(role)
	if updated.Valid {
		t := updated.Time
		u.UpdatedAt = &t
	}
	return &u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create inserts u and fills in its ID.  Username and email are unique;
// a clash yields apperr.ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, nickname, password_hash, avatar_url, description, role, created_at) VALUES (?,?,?,?,?,?,?,?)",
		u.Username, u.Email, nullString(u.Nickname), u.PasswordHash, nullString(u.AvatarURL), nullString(u.Description), string(u.Role), u.CreatedAt)
	if err != nil {
		if dbx.IsDuplicateKey(err) {
			return apperr.New(apperr.ErrConflict, "username or email already exists")
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg any) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

// GetByUsername fetches a user by login name.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, "username = ?", username)
}

// List returns users ordered by id.
func (r *UserRepo) List(ctx context.Context, page Page) ([]model.User, error) {
	q := "SELECT " + userColumns + " FROM users ORDER BY id ASC"
	var args []any
	if !page.Unbounded() {
		q += " LIMIT ? OFFSET ?"
		args = append(args, page.Limit, page.Offset)
	}
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// UpdateProfile applies patch to the stored user and returns the result.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, patch model.UserPatch, now time.Time) (*model.User, error) {
	var out *model.User
	err := dbx.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := scanUser(tx.QueryRowContext(ctx,
			"SELECT "+userColumns+" FROM users WHERE id = ? FOR UPDATE", id))
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.ErrNotFound
		}
		if err != nil {
			return err
		}
		patch.Apply(u)
		u.UpdatedAt = &now
		if _, err := tx.ExecContext(ctx,
			"UPDATE users SET nickname = ?, avatar_url = ?, description = ?, updated_at = ? WHERE id = ?",
			nullString(u.Nickname), nullString(u.AvatarURL), nullString(u.Description), now, id); err != nil {
			return err
		}
		out = u
		return nil
	})
	return out, err
}
