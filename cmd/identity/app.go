package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nkiryanov/calendar/internal/db"
	"github.com/nkiryanov/calendar/internal/handlers"
	"github.com/nkiryanov/calendar/internal/logger"
	"github.com/nkiryanov/calendar/internal/repository"
	"github.com/nkiryanov/calendar/internal/repository/postgres"
	"github.com/nkiryanov/calendar/internal/repository/redis"
	"github.com/nkiryanov/calendar/internal/service/auth"
	"github.com/nkiryanov/calendar/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/calendar/internal/service/user"
)

// How often expired session rows are removed from the database
const sessionSweepInterval = time.Hour

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger logger.Logger

	// Removes expired sessions. Nil when sessions are kept in redis, they expire there by TTL
	sweepSessions func(ctx context.Context, at time.Time) (int64, error)

	// Release db and redis connections
	closers []func()
}

func NewServerApp(ctx context.Context, c *Config) (_ *ServerApp, err error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	l, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	app := &ServerApp{ListenAddr: c.ListenAddr, logger: l}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}
	app.closers = append(app.closers, pool.Close)

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	pgSessions := &postgres.SessionRepo{DB: pool}
	var sessions repository.SessionRepo = pgSessions
	app.sweepSessions = pgSessions.DeleteExpiredSessions
	if c.RedisURL != "" {
		client, err := redis.Connect(ctx, c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("error while connecting to redis. Err: %w", err)
		}
		app.closers = append(app.closers, func() { _ = client.Close() })
		sessions = redis.NewSessionRepo(client)
		app.sweepSessions = nil
		l.Info("Sessions are kept in redis")
	}

	// Initialize services
	tokens, err := tokenmanager.New(tokenmanager.Config{
		AccessSecret:  c.AccessSecret,
		RefreshSecret: c.RefreshSecret,
		AccessTTL:     c.AccessTTL(),
		RefreshTTL:    c.RefreshTTL(),
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}
	userService := user.NewService(user.DefaultHasher, storage.User())
	authService, err := auth.NewService(tokens, userService, sessions, l)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	app.Handler = handlers.NewRouter(authService, tokens.Guard(), l)
	return app, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	if s.sweepSessions != nil {
		go sweepSessions(srvCtx, sessionSweepInterval, s.sweepSessions, s.logger)
	}

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *ServerApp) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Periodically remove expired sessions until ctx is cancelled
func sweepSessions(ctx context.Context, interval time.Duration, sweep func(context.Context, time.Time) (int64, error), l logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case at := <-ticker.C:
			removed, err := sweep(ctx, at)
			if err != nil {
				l.Warn("Failed to remove expired sessions", "error", err)
				continue
			}
			if removed > 0 {
				l.Info("Expired sessions removed", "count", removed)
			}
		}
	}
}
