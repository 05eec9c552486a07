package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/memos/internal/middleware"
	"github.com/iliyamo/memos/internal/model"
	"github.com/iliyamo/memos/internal/service"
)

type UserHandler struct {
	Users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{Users: users}
}

// Me returns the caller's own profile.
func (h *UserHandler) Me(c echo.Context) error {
	if u := middleware.IdentityFrom(c).User; u != nil {
		return c.JSON(http.StatusOK, u)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p := middleware.PrincipalFrom(c)
	u, err := h.Users.Get(ctx, p, p.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateMe applies a partial profile update.  Absent fields are kept.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	var patch model.UserPatch
	if err := c.Bind(&patch); err != nil {
		return writeError(c, badRequest("invalid body"))
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, middleware.PrincipalFrom(c), patch)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserHandler) List(c echo.Context) error {
	skip, limit, err := paging(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Users.List(ctx, middleware.PrincipalFrom(c), skip, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list(users))
}

func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Get(ctx, middleware.PrincipalFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}
