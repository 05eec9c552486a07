package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorUnwrapsToKind(t *testing.T) {
	err := fmt.Errorf("update memo: %w", New(ErrForbidden, "not the owner"))
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, "not the owner", Message(err, "fallback"))
	assert.Equal(t, "fallback", Message(errors.New("raw"), "fallback"))
}

func TestTokenExpiredIsUnauthenticated(t *testing.T) {
	assert.ErrorIs(t, ErrTokenExpired, ErrUnauthenticated)
	assert.Equal(t, "token expired", ErrTokenExpired.Error())
}

func TestKind(t *testing.T) {
	assert.Equal(t, "ok", Kind(nil))
	assert.Equal(t, "unauthenticated", Kind(ErrTokenExpired))
	assert.Equal(t, "not_found", Kind(fmt.Errorf("x: %w", ErrNotFound)))
	assert.Equal(t, "conflict", Kind(New(ErrConflict, "dup")))
	assert.Equal(t, "invalid", Kind(ErrInvalid))
	assert.Equal(t, "forbidden", Kind(ErrForbidden))
	assert.Equal(t, "internal", Kind(errors.New("boom")))
}

func TestStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, Status(ErrTokenExpired))
	assert.Equal(t, http.StatusForbidden, Status(New(ErrForbidden, "no")))
	assert.Equal(t, http.StatusNotFound, Status(ErrNotFound))
	assert.Equal(t, http.StatusConflict, Status(ErrConflict))
	assert.Equal(t, http.StatusBadRequest, Status(ErrInvalid))
	assert.Equal(t, http.StatusInternalServerError, Status(errors.New("db")))
}
