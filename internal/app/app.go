// Package app wires the site's backends and services into one application
// context created at startup and passed explicitly to every consumer.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/sohoz88/promo-site/internal/auth"
	"github.com/sohoz88/promo-site/internal/bonus"
	"github.com/sohoz88/promo-site/internal/contact"
	apperrors "github.com/sohoz88/promo-site/internal/errors"
	"github.com/sohoz88/promo-site/internal/health"
	"github.com/sohoz88/promo-site/internal/httpapi"
	"github.com/sohoz88/promo-site/internal/lifecycle"
	"github.com/sohoz88/promo-site/internal/pagecache"
	"github.com/sohoz88/promo-site/internal/ratelimit"
	"github.com/sohoz88/promo-site/internal/repository"
	"github.com/sohoz88/promo-site/internal/settings"
	"github.com/sohoz88/promo-site/internal/store"
	"github.com/sohoz88/promo-site/pkg/config"
	"github.com/sohoz88/promo-site/pkg/redis"
)

// App holds the resolved backends and the services built on them.
type App struct {
	Config *config.Config
	Log    *slog.Logger

	Store store.Client
	Redis *redis.Client
	Cache pagecache.Cache

	Bonuses  *bonus.Service
	Settings *settings.Service
	Contact  *contact.Service
	Auth     *auth.Authenticator

	Checker  *health.Checker
	Shutdown *lifecycle.Shutdown

	memLimiter *ratelimit.MemoryLimiter
	cleaner    *ratelimit.Cleaner
	wg         sync.WaitGroup
}

// New resolves the store and the optional Redis instance, then builds the
// services. It never fails: missing or unreachable backends fall back to
// in-memory implementations.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}

	a := &App{
		Config:   cfg,
		Log:      log,
		Checker:  health.NewChecker(log, cfg.Mongo.ConnectTimeout),
		Shutdown: lifecycle.NewShutdown(log),
	}

	a.Store = store.Open(ctx, cfg.Mongo, log)
	a.Checker.AddCheck("store", health.NewStoreChecker(a.Store))

	a.Redis = connectRedis(ctx, cfg.Redis, log)

	var kv redis.KV
	if a.Redis != nil {
		kv = redis.NewMetricsClient(a.Redis)
		a.Checker.AddCheck("redis", health.NewRedisChecker(kv))
		a.Cache = pagecache.NewRedisCache(kv, log)
		// Pages cached by an earlier process may have been built from the
		// other store mode.
		pagecache.PurgeAll(ctx, a.Cache, log)
	} else {
		a.Cache = pagecache.NewMemoryCache()
	}

	errs := apperrors.NewHandler(log)

	a.Bonuses = bonus.NewService(
		repository.NewBonusRepository(a.Store, cfg.Mongo.BonusesCollection, log),
		a.Cache, errs, log,
		bonus.WithStoreMode(a.Store.Mode()),
	)
	a.Settings = settings.NewService(
		repository.NewSettingsRepository(a.Store, cfg.Mongo.SettingsCollection, log),
		a.Cache, errs, log,
	)
	a.Contact = contact.NewService(
		repository.NewContactRepository(a.Store, cfg.Mongo.ContactCollection),
		a.limiter(log),
		contact.Limits{Max: cfg.Contact.RateLimit, Window: cfg.Contact.RateLimitWindow},
		errs, log,
	)
	a.Auth = auth.New(cfg.Admin.Password, cfg.IsProduction(), errs, log)

	return a
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log *slog.Logger) *redis.Client {
	if !cfg.Enabled {
		log.Info("redis disabled, using in-memory page cache and rate limiter")
		return nil
	}

	client, err := redis.New(ctx, cfg)
	if err != nil {
		log.Warn("redis unavailable, using in-memory page cache and rate limiter",
			slog.String("addr", cfg.Addr),
			slog.Any("error", err),
		)
		return nil
	}

	log.Info("redis connected", slog.String("addr", cfg.Addr))
	return client
}

func (a *App) limiter(log *slog.Logger) ratelimit.Limiter {
	a.memLimiter = ratelimit.NewMemoryLimiter(log)
	if a.Redis == nil {
		return a.memLimiter
	}

	a.cleaner = ratelimit.NewCleaner(a.Redis.Client, log, a.Config.Contact.CleanupInterval, a.Config.Contact.RateLimitWindow)
	return ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(a.Redis.Client, log), a.memLimiter, log)
}

// Handler returns the HTTP router over the app's services.
func (a *App) Handler() http.Handler {
	return httpapi.NewRouter(httpapi.Deps{
		Bonuses:    a.Bonuses,
		Settings:   a.Settings,
		Contact:    a.Contact,
		Auth:       a.Auth,
		Cache:      a.Cache,
		CacheTTL:   a.Config.Cache.TTL,
		TrustProxy: a.Config.HTTP.TrustProxy,
		Probes:     lifecycle.NewProbes(a.Log, a.Checker),
		Log:        a.Log,
	})
}

// StartBackground launches the rate limiter cleanup loops. They stop when
// ctx is cancelled; Wait blocks until they have.
func (a *App) StartBackground(ctx context.Context) {
	interval := a.Config.Contact.CleanupInterval
	window := a.Config.Contact.RateLimitWindow

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.memLimiter.Run(ctx, interval, window)
	}()

	if a.cleaner != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.cleaner.Run(ctx)
		}()
	}
}

// Wait blocks until the background loops have returned.
func (a *App) Wait() {
	a.wg.Wait()
}

// RegisterShutdown registers the store and Redis close hooks. Hooks added
// earlier, such as the HTTP server, run first.
func (a *App) RegisterShutdown() {
	a.Shutdown.Register("background", func(context.Context) error {
		a.Wait()
		return nil
	})
	a.Shutdown.Register("store", a.Store.Close)
	if a.Redis != nil {
		a.Shutdown.Register("redis", func(context.Context) error {
			return a.Redis.Close()
		})
	}
}
