package app

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/memos/internal/auth"
	"github.com/iliyamo/memos/internal/config"
	"github.com/iliyamo/memos/internal/handler"
	"github.com/iliyamo/memos/internal/metrics"
	"github.com/iliyamo/memos/internal/middleware"
	"github.com/iliyamo/memos/internal/queue"
	"github.com/iliyamo/memos/internal/router"
	"github.com/iliyamo/memos/internal/service"
	"github.com/iliyamo/memos/internal/storage"
	"github.com/iliyamo/memos/internal/utils"
)

// Options carries the optional collaborators of the HTTP server.
type Options struct {
	Logger    *slog.Logger
	Registry  *prometheus.Registry
	Redis     *redis.Client // nil disables rate limiting and caching
	Publisher queue.Publisher
	DB        handler.Pinger // nil for the in-memory store
	Clock     func() time.Time
}

// NewServer wires stores, services, handlers and middleware into an echo
// instance ready to serve.
func NewServer(cfg config.Config, stores service.Stores, opt Options) *echo.Echo {
	if opt.Registry == nil {
		opt.Registry = prometheus.NewRegistry()
	}
	if opt.Publisher == nil {
		opt.Publisher = queue.NopPublisher{}
	}
	collector := metrics.NewCollector(opt.Registry)

	codec := utils.NewSessionCodec(cfg.JWTSecret, time.Duration(cfg.AccessTTLMin)*time.Minute)
	resolver := auth.NewResolver(codec, stores.Users, stores.Tokens).WithObserver(collector)
	files := storage.NewLocalStore(cfg.AttachmentDir())

	users := service.NewUserService(stores.Users, utils.PasswordHasher{Cost: cfg.BcryptCost}, codec)
	memos := service.NewMemoService(stores.Memos).
		WithAttachmentCleanup(stores.Attachments, files).
		WithPublisher(opt.Publisher).
		WithMetrics(collector, collector)
	tokens := service.NewTokenService(stores.Tokens)
	if opt.Clock != nil {
		codec.WithClock(opt.Clock)
		resolver.WithClock(opt.Clock)
		users.WithClock(opt.Clock)
		memos.WithClock(opt.Clock)
		tokens.WithClock(opt.Clock)
	}

	deps := router.Deps{
		Logger:   opt.Logger,
		Resolver: resolver,

		Auth:  handler.NewAuthHandler(users),
		Users: handler.NewUserHandler(users),
		Memos: handler.NewMemoHandler(memos, service.NewQueryService(stores.Memos)),
		Reactions: handler.NewReactionHandler(
			service.NewReactionService(stores.Memos, stores.Reactions),
			service.NewRelationService(stores.Memos, stores.Relations),
		),
		Tokens: handler.NewTokenHandler(tokens),
		Attachments: handler.NewAttachmentHandler(
			service.NewAttachmentService(stores.Attachments, stores.Memos, files, storage.TypeLocal, cfg.MaxUploadBytes),
			files,
		),

		Requests: collector,
		Metrics:  metrics.Handler(opt.Registry),
		DB:       opt.DB,
	}
	if opt.Redis != nil {
		deps.Limiter = middleware.NewTokenBucket(config.LoadRateLimitConfig(), opt.Redis)
		deps.Cache = middleware.NewRedisCache(config.LoadCacheConfig(), opt.Redis)
	}
	return router.New(deps)
}
