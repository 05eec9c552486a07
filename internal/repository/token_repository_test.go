package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/memos/internal/apperr"
	"github.com/iliyamo/memos/internal/model"
)

func TestTokenRepo_FindByHashJoinsOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTokenRepo(db)

	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	expires := issued.Add(24 * time.Hour)
	mock.ExpectQuery("FROM access_tokens t JOIN users u ON u.id = t.user_id").WithArgs("abc").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "token_hash", "description", "issued_at", "expires_at",
			"id", "username", "email", "nickname", "password_hash", "avatar_url", "description", "role", "created_at", "updated_at",
		}).AddRow(3, 7, "abc", "ci", issued, expires, 7, "alice", "a@x.io", nil, "hash", nil, nil, "USER", issued, nil))

	tok, u, err := repo.FindByHash(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), tok.ID)
	require.NotNil(t, tok.ExpiresAt)
	assert.True(t, tok.ExpiresAt.Equal(expires))
	assert.Equal(t, "ci", tok.Description)
	assert.Equal(t, uint64(7), u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, model.RoleUser, u.Role)
}

func TestTokenRepo_FindByHashMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("FROM access_tokens").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, _, err = NewTokenRepo(db).FindByHash(context.Background(), "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTokenRepo_DeleteScopedToOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTokenRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM access_tokens WHERE id = ? AND user_id = ?")).
		WithArgs(uint64(3), uint64(8)).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.DeleteByIDAndUser(context.Background(), 3, 8), apperr.ErrNotFound)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM access_tokens WHERE id = ? AND user_id = ?")).
		WithArgs(uint64(3), uint64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.DeleteByIDAndUser(context.Background(), 3, 7))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_CreateStoresNullExpiry(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO access_tokens").
		WithArgs(uint64(7), "h", sqlmock.AnyArg(), issued, nil).
		WillReturnResult(sqlmock.NewResult(11, 1))

	tok := &model.AccessToken{UserID: 7, TokenHash: "h", IssuedAt: issued}
	require.NoError(t, NewTokenRepo(db).Create(context.Background(), tok))
	assert.Equal(t, uint64(11), tok.ID)
}
