package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/memos/internal/apperr"
	"github.com/iliyamo/memos/internal/auth"
)

// IdentityResolver is satisfied by *auth.Resolver.
type IdentityResolver interface {
	Resolve(ctx context.Context, raw string, mode auth.Mode) (auth.Identity, error)
}

// Authenticate resolves the Authorization header according to mode and
// stores the identity on the context.  Failures end the request: 401 for
// credential problems, 500 when the stores could not be consulted.
func Authenticate(r IdentityResolver, mode auth.Mode) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := r.Resolve(c.Request().Context(), bearer(c.Request().Header.Get(echo.HeaderAuthorization)), mode)
			if err != nil {
				return abort(c, err)
			}
			c.Set(identityKey, id)
			return next(c)
		}
	}
}

// bearer strips a case-insensitive "Bearer " scheme.  Any other scheme
// yields an empty credential.
func bearer(h string) string {
	h = strings.TrimSpace(h)
	if h == "" {
		return ""
	}
	scheme, rest, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(rest)
}

// abort writes err as the JSON error body used across the API.
func abort(c echo.Context, err error) error {
	status := apperr.Status(err)
	if status == http.StatusUnauthorized {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	}
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request().Context(), "resolve credential", "err", err)
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	return c.JSON(status, echo.Map{"error": apperr.Message(err, err.Error())})
}
