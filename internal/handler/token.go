package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/memos/internal/middleware"
	"github.com/iliyamo/memos/internal/service"
)

// TokenHandler manages the caller's personal access tokens.  Routes are
// mounted behind session-only authentication.
type TokenHandler struct {
	Tokens *service.TokenService
}

func NewTokenHandler(tokens *service.TokenService) *TokenHandler {
	return &TokenHandler{Tokens: tokens}
}

type issueTokenReq struct {
	Description   string `json:"description"`
	ExpiresInDays *int   `json:"expires_in_days"`
}

// Issue returns the raw token once; only its digest is kept.
func (h *TokenHandler) Issue(c echo.Context) error {
	var req issueTokenReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, badRequest("invalid body"))
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	tok, err := h.Tokens.Issue(ctx, middleware.PrincipalFrom(c), req.Description, req.ExpiresInDays)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, tok)
}

func (h *TokenHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	tokens, err := h.Tokens.List(ctx, middleware.PrincipalFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list(tokens))
}

// Revoke answers 404 alike for a missing token and for another user's.
func (h *TokenHandler) Revoke(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Tokens.Revoke(ctx, middleware.PrincipalFrom(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
