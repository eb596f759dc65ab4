// Package httpapi exposes the site actions as JSON endpoints.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sohoz88/promo-site/internal/auth"
	"github.com/sohoz88/promo-site/internal/bonus"
	"github.com/sohoz88/promo-site/internal/contact"
	"github.com/sohoz88/promo-site/internal/lifecycle"
	"github.com/sohoz88/promo-site/internal/middleware"
	"github.com/sohoz88/promo-site/internal/pagecache"
	"github.com/sohoz88/promo-site/internal/settings"
	"github.com/sohoz88/promo-site/pkg/logger"
)

// maxBodyBytes leaves room for a 1 MiB inline image plus the other fields.
const maxBodyBytes = 2 << 20

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Bonuses  *bonus.Service
	Settings *settings.Service
	Contact  *contact.Service
	Auth     *auth.Authenticator
	Cache    pagecache.Cache
	CacheTTL time.Duration
	Probes   lifecycle.HealthChecker
	Log      *slog.Logger

	// TrustProxy enables chi's RealIP so the client address, and with it
	// the contact rate-limit key, comes from forwarding headers.
	TrustProxy bool
}

// Handler holds the HTTP handlers.
type Handler struct {
	bonuses  *bonus.Service
	settings *settings.Service
	contact  *contact.Service
	auth     *auth.Authenticator
	cache    pagecache.Cache
	cacheTTL time.Duration
	probes   lifecycle.HealthChecker
	log      *slog.Logger
}

// NewRouter builds the HTTP router for the site.
func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	if d.Probes == nil {
		d.Probes = lifecycle.NewProbes(log, nil)
	}

	h := &Handler{
		bonuses:  d.Bonuses,
		settings: d.Settings,
		contact:  d.Contact,
		auth:     d.Auth,
		cache:    d.Cache,
		cacheTTL: d.CacheTTL,
		probes:   d.Probes,
		log:      log,
	}

	r := chi.NewRouter()
	if d.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(logger.Middleware)
	r.Use(middleware.New(log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.LimitBody(maxBodyBytes))

	// Public site
	r.Get("/", h.cached(pagecache.PathHome, h.publicPage))
	r.Get("/promotions", h.cached(pagecache.PathPromotions, h.publicPage))
	r.Get("/settings", h.cached(pagecache.PathSettings, h.publicSettings))
	r.Post("/contact", h.submitContact)

	// Admin panel
	r.Route(auth.AdminPrefix, func(r chi.Router) {
		r.Use(d.Auth.Middleware)

		r.Get("/login", h.loginPage)
		r.Post("/login", h.login)
		r.Post("/logout", h.logout)

		r.Get("/", h.dashboard)

		r.Route("/bonuses", func(r chi.Router) {
			r.Get("/", h.cached(pagecache.PathAdminBonuses, h.listBonuses))
			r.Post("/", h.createBonus)
			r.Get("/edit/{id}", h.editBonusPage)
			r.Get("/{id}", h.getBonus)
			r.Put("/{id}", h.updateBonus)
			r.Delete("/{id}", h.deleteBonus)
		})

		r.Get("/settings", h.cached(pagecache.PathAdminSettings, h.adminSettings))
		r.Put("/settings", h.updateSettings)
	})

	// Operations
	r.Get("/healthz", h.liveness)
	r.Get("/readyz", h.readiness)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
