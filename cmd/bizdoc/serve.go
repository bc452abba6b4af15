package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hanko-field/bizdoc/internal/di"
	"github.com/hanko-field/bizdoc/internal/handlers"
	"github.com/hanko-field/bizdoc/internal/platform/observability"
)

func serveCommand(deps appDeps) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the local editor shell API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address; overrides BIZDOC_SERVER_ADDR",
			},
			&cli.IntFlag{
				Name:  "max-sessions",
				Usage: "live editor sessions kept in memory",
				Value: handlers.DefaultMaxSessions,
			},
		},
		Action: func(c *cli.Context) error {
			container, err := buildContainer(c, deps)
			if err != nil {
				return err
			}
			defer func() { _ = container.Close(context.Background()) }()

			addr := container.Config.Server.Addr
			if override := c.String("addr"); override != "" {
				addr = override
			}
			listener, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, listener, newServer(container, deps.logger, c.Int("max-sessions")), container.Config.Server.ShutdownTimeout, deps.logger)
		},
	}
}

func newServer(container *di.Container, logger *zap.Logger, maxSessions int) *http.Server {
	httpLogger := logger.Named("http")
	sessions := handlers.NewSessionHandlers(
		handlers.NewSessionStore(maxSessions, nil),
		container.NewSession,
		container.Catalog,
	)
	catalog := handlers.NewCatalogHandlers(container.Catalog, container.Themes)
	health := handlers.NewHealthHandlers(
		handlers.WithHealthRepository(container.Repositories.Health()),
		handlers.WithHealthStartedAt(time.Now()),
	)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(httpLogger),
			observability.RecoveryMiddleware(httpLogger),
			observability.RequestLoggerMiddleware(),
		),
		handlers.WithHealthHandlers(health),
		handlers.WithSessionRoutes(sessions.Routes),
		handlers.WithCatalogRoutes(catalog.Routes),
	)

	cfg := container.Config.Server
	return &http.Server{
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// serve runs server on listener until ctx is done, then drains in-flight requests.
func serve(ctx context.Context, listener net.Listener, server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	serverLogger := logger.Named("http").With(zap.String("addr", listener.Addr().String()))
	errCh := make(chan error, 1)
	go func() {
		serverLogger.Info("bizdoc editor shell listening")
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	serverLogger.Info("shutdown signal received; draining requests")

	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		serverLogger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return <-errCh
}
