// Package app wires configuration, storage and transport together and
// runs one of the binary's subcommands.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/memos/internal/config"
	"github.com/iliyamo/memos/internal/database"
	"github.com/iliyamo/memos/internal/logger"
	"github.com/iliyamo/memos/internal/queue"
	"github.com/iliyamo/memos/internal/repository"
	"github.com/iliyamo/memos/internal/service"
)

// Init loads configuration and installs the JSON logger writing to w.
func Init(w io.Writer) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		logger.SetupDefault(w, "info")
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger.SetupDefault(w, cfg.LogLevel), nil
}

// Run executes the subcommand named by args (os.Args[1:]) until it
// finishes or ctx is cancelled.
func Run(ctx context.Context, w io.Writer, args []string) error {
	cmd := ParseCommand(args)
	cfg, log, err := Init(w)
	if err != nil {
		return err
	}
	log.Info("starting", slog.String("command", string(cmd)), slog.String("env", cfg.Env), slog.String("store", cfg.Store))

	switch cmd {
	case CommandMigrate:
		return runMigrate(ctx, cfg)
	case CommandConsumer:
		return runConsumer(ctx, cfg, log)
	}
	return runServe(ctx, cfg, log)
}

func runMigrate(ctx context.Context, cfg config.Config) error {
	if cfg.Store != config.StoreMySQL {
		return fmt.Errorf("migrate needs STORE=%s", config.StoreMySQL)
	}
	db, err := database.Open(ctx, cfg.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	v, err := database.RunMigrations(db)
	if err != nil {
		return err
	}
	slog.Info("migrations applied", slog.Uint64("version", uint64(v)))
	return nil
}

func runConsumer(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	if cfg.AMQPURL == "" {
		return errors.New("consumer needs RABBITMQ_URL")
	}
	err := queue.NewConsumer(cfg.AMQPURL, log).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// openStores returns the configured backend.  db is nil for the
// in-memory store.
func openStores(ctx context.Context, cfg config.Config) (service.Stores, *sql.DB, error) {
	if cfg.Store == config.StoreMemory {
		slog.Warn("using in-memory store; data is lost on exit")
		return service.MemoryStores(repository.NewMemory()), nil, nil
	}
	db, err := database.Open(ctx, cfg.DSN())
	if err != nil {
		return service.Stores{}, nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := database.RunMigrations(db); err != nil {
		_ = db.Close()
		return service.Stores{}, nil, err
	}
	return service.SQLStores(db), db, nil
}

func runServe(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	stores, db, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	opt := Options{Logger: log}
	if db != nil {
		defer db.Close()
		opt.DB = db
	}

	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		log.Warn("redis unavailable; rate limiting and caching disabled", slog.String("error", err.Error()))
	} else {
		defer func(c *redis.Client) { _ = c.Close() }(rdb)
		opt.Redis = rdb
	}

	opt.Registry = prometheus.NewRegistry()
	opt.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if cfg.EventsEnabled {
		opt.Publisher = queue.NewAMQPPublisher(cfg.AMQPURL)
	}

	e := NewServer(cfg, stores, opt)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

