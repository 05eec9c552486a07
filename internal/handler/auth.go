package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/memos/internal/service"
)

// AuthHandler serves signup and signin.
type AuthHandler struct {
	Users *service.UserService
}

func NewAuthHandler(users *service.UserService) *AuthHandler {
	return &AuthHandler{Users: users}
}

type signinReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResp struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Signup creates a user and returns its profile.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req service.SignupInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, badRequest("invalid body"))
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Signup(ctx, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

// Signin exchanges email and password for a session token.
func (h *AuthHandler) Signin(c echo.Context) error {
	var req signinReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, badRequest("invalid body"))
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return writeError(c, badRequest("email and password are required"))
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	tok, _, err := h.Users.Signin(ctx, email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sessionResp{
		AccessToken: tok.Token,
		TokenType:   "bearer",
		ExpiresAt:   tok.Exp,
	})
}
