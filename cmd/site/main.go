package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/sohoz88/promo-site/internal/app"
	"github.com/sohoz88/promo-site/internal/store"
	"github.com/sohoz88/promo-site/pkg/config"
	"github.com/sohoz88/promo-site/pkg/graceful"
	"github.com/sohoz88/promo-site/pkg/logger"
)

const sentryFlushTimeout = 2 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "promo site: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.AppEnv,
			SampleRate:  cfg.Sentry.SampleRate,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
	}

	log := logger.New(*cfg)
	log.Info("starting promo site",
		slog.String("addr", cfg.HTTP.Addr),
		slog.String("mongo_uri", store.RedactURI(cfg.Mongo.URI)),
		slog.Bool("redis", cfg.Redis.Enabled),
	)

	config.Watch(v, func(next *config.Config) {
		logger.SetLevel(next.Logger.Level)
		log.Info("configuration reloaded", slog.String("log_level", next.Logger.Level))
	}, func(err error) {
		log.Warn("ignoring invalid configuration change", slog.Any("error", err))
	})

	a := app.New(ctx, cfg, log)
	a.StartBackground(ctx)

	srv := graceful.NewServer(log, a.Handler(), cfg.HTTP)
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe(ctx) }()

	// The server shuts itself down once ctx is cancelled; this hook waits
	// for it so the store is closed only after in-flight requests finish.
	a.Shutdown.Register("http", func(context.Context) error {
		return <-serveErr
	})
	a.RegisterShutdown()
	if cfg.Sentry.Enabled {
		a.Shutdown.Register("sentry", func(context.Context) error {
			if !sentry.Flush(sentryFlushTimeout) {
				return errors.New("sentry flush timed out")
			}
			return nil
		})
	}

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serveErr:
		log.Error("http server stopped unexpectedly", slog.Any("error", err))
		stop()
		serveErr <- err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout+5*time.Second)
	defer cancel()

	if err := a.Shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown completed with errors", slog.Any("error", err))
		return err
	}

	log.Info("promo site stopped")
	return nil
}
