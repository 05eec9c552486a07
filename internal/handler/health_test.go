package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	c, rec := newCtx("/healthz")
	require.NoError(t, Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestReady(t *testing.T) {
	c, rec := newCtx("/readyz")
	require.NoError(t, Ready(nil)(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newCtx("/readyz")
	require.NoError(t, Ready(pingFunc(func(context.Context) error { return nil }))(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newCtx("/readyz")
	require.NoError(t, Ready(pingFunc(func(context.Context) error { return errors.New("down") }))(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
