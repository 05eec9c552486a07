package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/memos/internal/auth"
	"github.com/iliyamo/memos/internal/model"
)

// identityKey is the echo context key holding the resolved auth.Identity.
const identityKey = "identity"

// IdentityFrom returns the identity stored by Authenticate.  Requests that
// never passed through Authenticate are anonymous.
func IdentityFrom(c echo.Context) auth.Identity {
	if id, ok := c.Get(identityKey).(auth.Identity); ok {
		return id
	}
	return auth.Identity{Principal: model.Anonymous()}
}

// PrincipalFrom is a shortcut for IdentityFrom(c).Principal.
func PrincipalFrom(c echo.Context) model.Principal {
	return IdentityFrom(c).Principal
}

// subject names the caller for rate-limit keys and log lines: the user id
// when authenticated, "anon" otherwise.
func subject(c echo.Context) string {
	p := PrincipalFrom(c)
	if !p.IsAuthenticated() {
		return "anon"
	}
	return strconv.FormatUint(p.UserID, 10)
}
