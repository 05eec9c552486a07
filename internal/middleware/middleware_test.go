package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/memos/internal/apperr"
	"github.com/iliyamo/memos/internal/auth"
	"github.com/iliyamo/memos/internal/model"
)

type resolverFunc func(ctx context.Context, raw string, mode auth.Mode) (auth.Identity, error)

func (f resolverFunc) Resolve(ctx context.Context, raw string, mode auth.Mode) (auth.Identity, error) {
	return f(ctx, raw, mode)
}

// stubResolver accepts "good" as user 7's session and "stale" as an
// expired access token.
var stubResolver = resolverFunc(func(_ context.Context, raw string, mode auth.Mode) (auth.Identity, error) {
	switch raw {
	case "good":
		return auth.Identity{Principal: model.Authenticated(7, model.CredentialSession)}, nil
	case "stale":
		return auth.Identity{}, apperr.ErrTokenExpired
	case "boom":
		return auth.Identity{}, errors.New("db down")
	case "":
		if mode == auth.Optional {
			return auth.Identity{Principal: model.Anonymous()}, nil
		}
	}
	return auth.Identity{}, apperr.New(apperr.ErrUnauthenticated, "invalid credentials")
})

func whoami(c echo.Context) error {
	p := PrincipalFrom(c)
	return c.JSON(http.StatusOK, echo.Map{"user_id": p.UserID, "via": p.Via})
}

func serve(e *echo.Echo, method, target, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if authz != "" {
		req.Header.Set(echo.HeaderAuthorization, authz)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestBearer(t *testing.T) {
	assert.Equal(t, "abc", bearer("Bearer abc"))
	assert.Equal(t, "abc", bearer("bearer   abc "))
	assert.Equal(t, "", bearer("Basic abc"))
	assert.Equal(t, "", bearer("Bearer"))
	assert.Equal(t, "", bearer(""))
}

func TestAuthenticate(t *testing.T) {
	e := echo.New()
	e.GET("/opt", whoami, Authenticate(stubResolver, auth.Optional))
	e.GET("/req", whoami, Authenticate(stubResolver, auth.RequireAny))

	rec := serve(e, http.MethodGet, "/opt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":0,"via":"anonymous"}`, rec.Body.String())

	rec = serve(e, http.MethodGet, "/opt", "Bearer good")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":7,"via":"session"}`, rec.Body.String())

	rec = serve(e, http.MethodGet, "/opt", "Bearer stale")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))
	assert.JSONEq(t, `{"error":"token expired"}`, rec.Body.String())

	rec = serve(e, http.MethodGet, "/req", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodGet, "/req", "Bearer boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestPrincipalFromDefaultsToAnonymous(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.False(t, PrincipalFrom(c).IsAuthenticated())
	assert.Equal(t, "anon", subject(c))
	c.Set(identityKey, auth.Identity{Principal: model.Authenticated(42, model.CredentialToken)})
	assert.Equal(t, "42", subject(c))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	e := echo.New()
	e.Use(RequestLogger(logger))
	e.GET("/memos/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	}, Authenticate(stubResolver, auth.Optional))

	rec := serve(e, http.MethodGet, "/memos/3", "Bearer good")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "http_request", line["msg"])
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "/memos/:id", line["route"])
	assert.Equal(t, float64(404), line["status"])
	assert.Equal(t, float64(7), line["user_id"])
	assert.Equal(t, "session", line["credential"])
}

func TestRecover(t *testing.T) {
	e := echo.New()
	e.Use(Recover())
	e.GET("/panic", func(c echo.Context) error { panic("kaboom") })

	rec := serve(e, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

type recorded struct {
	method, route string
	status        int
}

type fakeRecorder struct{ got []recorded }

func (f *fakeRecorder) RecordRequest(method, route string, status int, _ time.Duration) {
	f.got = append(f.got, recorded{method, route, status})
}

func TestMetrics(t *testing.T) {
	fr := &fakeRecorder{}
	e := echo.New()
	e.Use(Metrics(fr))
	e.GET("/memos/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/fail", func(c echo.Context) error { return errors.New("x") })

	serve(e, http.MethodGet, "/memos/9", "")
	serve(e, http.MethodGet, "/fail", "")

	require.Len(t, fr.got, 2)
	assert.Equal(t, recorded{http.MethodGet, "/memos/:id", http.StatusNoContent}, fr.got[0])
	assert.Equal(t, recorded{http.MethodGet, "/fail", http.StatusInternalServerError}, fr.got[1])
}
