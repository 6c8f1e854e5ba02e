package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goredislib "github.com/redis/go-redis/v9"

	"github.com/nkiryanov/pointd/internal/db"
	"github.com/nkiryanov/pointd/internal/handlers"
	"github.com/nkiryanov/pointd/internal/logger"
	"github.com/nkiryanov/pointd/internal/repository"
	"github.com/nkiryanov/pointd/internal/repository/memory"
	"github.com/nkiryanov/pointd/internal/repository/postgres"
	"github.com/nkiryanov/pointd/internal/service/locker"
	"github.com/nkiryanov/pointd/internal/service/point"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger  logger.Logger
	closers []func() error
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	app := &ServerApp{
		ListenAddr: c.ListenAddr,
		logger:     logger,
	}

	storage, err := app.storage(ctx, c)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	lock, err := app.locker(ctx, c)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	pointService := point.NewService(storage, logger, point.WithLocker(lock))
	app.Handler = handlers.NewRouter(pointService, logger)

	return app, nil
}

func (s *ServerApp) storage(ctx context.Context, c *Config) (repository.Storage, error) {
	if c.DatabaseDSN == "" {
		s.logger.Warn("Database is not set, points are kept in memory", "latency", c.StoreLatency)
		return memory.NewStorage(memory.WithLatency(c.StoreLatency)), nil
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}
	s.closers = append(s.closers, func() error {
		pool.Close()
		return nil
	})

	return postgres.NewStorage(pool), nil
}

func (s *ServerApp) locker(ctx context.Context, c *Config) (locker.Locker, error) {
	switch c.LockBackend {
	case locker.BackendNone:
		s.logger.Warn("Lock backend is disabled, concurrent updates of one user may be lost")
		return locker.None{}, nil
	case locker.BackendRedis:
		client := goredislib.NewClient(&goredislib.Options{Addr: c.RedisAddr})
		s.closers = append(s.closers, client.Close)

		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("error while connecting to redis. Err: %w", err)
		}
		return locker.NewRedis(client, locker.RedisConfig{Expiry: c.LockExpiry}, s.logger), nil
	default:
		return locker.NewKeyed(), nil
	}
}

// Close releases connections opened by the app
func (s *ServerApp) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	if closeErr := s.Close(); closeErr != nil {
		s.logger.Error("Failed to close app resources", "error", closeErr)
	}

	return err
}
