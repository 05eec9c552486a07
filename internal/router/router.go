// Package router wires handlers and middleware onto an echo instance.
package router

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/memos/internal/auth"
	"github.com/iliyamo/memos/internal/handler"
	"github.com/iliyamo/memos/internal/middleware"
)

// Deps carries everything the routes need.  Limiter, Cache, Requests,
// Metrics and DB are optional.
type Deps struct {
	Logger   *slog.Logger
	Resolver middleware.IdentityResolver

	Auth        *handler.AuthHandler
	Users       *handler.UserHandler
	Memos       *handler.MemoHandler
	Reactions   *handler.ReactionHandler
	Tokens      *handler.TokenHandler
	Attachments *handler.AttachmentHandler

	Limiter  echo.MiddlewareFunc
	Cache    *middleware.Cache
	Requests middleware.RequestRecorder
	Metrics  http.Handler
	DB       handler.Pinger
}

// guards holds the per-route middleware chains for each auth mode.
type guards struct {
	optional, anyCred, session []echo.MiddlewareFunc
}

func newGuards(d Deps) guards {
	chain := func(mode auth.Mode) []echo.MiddlewareFunc {
		mws := []echo.MiddlewareFunc{middleware.Authenticate(d.Resolver, mode)}
		if d.Limiter != nil {
			mws = append(mws, d.Limiter)
		}
		return mws
	}
	return guards{
		optional: chain(auth.Optional),
		anyCred:  chain(auth.RequireAny),
		session:  chain(auth.RequireSession),
	}
}

// New builds the HTTP server.  Middleware order: request log, metrics,
// panic recovery; the response cache wraps the /v1 group only, and
// authentication and rate limiting are attached per route.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	e.Use(middleware.RequestLogger(logger))
	if d.Requests != nil {
		e.Use(middleware.Metrics(d.Requests))
	}
	e.Use(middleware.Recover())

	RegisterRoutes(e, d.Metrics, d.DB)
	g := newGuards(d)
	// probes and /metrics stay uncached; only the API group sees the cache
	var api []echo.MiddlewareFunc
	if d.Cache != nil {
		api = append(api, d.Cache.Middleware())
	}
	v1 := e.Group("/v1", api...)
	RegisterAuth(v1, d, g)
	RegisterMemos(v1, d, g)
	RegisterTokens(v1, d, g)
	RegisterAttachments(v1, d, g)
	return e
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, metrics http.Handler, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
}

// RegisterAuth registers signup, signin and user profiles.
func RegisterAuth(v1 *echo.Group, d Deps, g guards) {
	v1.POST("/auth/signup", d.Auth.Signup, g.optional...)
	v1.POST("/auth/signin", d.Auth.Signin, g.optional...)

	v1.GET("/users/me", d.Users.Me, g.anyCred...)
	v1.PATCH("/users/me", d.Users.UpdateMe, g.anyCred...)
	v1.GET("/users", d.Users.List, g.anyCred...)
	v1.GET("/users/:id", d.Users.Get, g.anyCred...)
}
