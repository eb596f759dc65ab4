package httpapi

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/sohoz88/promo-site/internal/domain"
	"github.com/sohoz88/promo-site/internal/pagecache"
)

// CacheHeader reports whether a page came from the page cache.
const CacheHeader = "X-Cache"

// PublicPage is the model of the landing and promotions pages: the site
// background and the active promotions.
type PublicPage struct {
	Settings   domain.SiteSettings `json:"settings"`
	Promotions []domain.Bonus      `json:"promotions"`
}

// cached serves the page stored under path, building and storing it on a
// miss. The page version is read before the build so an invalidation that
// lands while building supersedes the stored body. Pages are not stored
// when the version cannot be read.
func (h *Handler) cached(path string, build func(r *http.Request) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var (
			version   pagecache.Version
			cacheable bool
		)
		if h.cache != nil {
			if body, ok := h.cache.Get(ctx, path); ok {
				w.Header().Set(CacheHeader, "HIT")
				writeBody(w, http.StatusOK, body)
				return
			}

			v, err := h.cache.Version(ctx, path)
			if err != nil {
				h.log.Debug("page cache version unavailable", slog.String("path", path), slog.Any("error", err))
			}
			version, cacheable = v, err == nil
		}

		body, err := json.Marshal(build(r))
		if err != nil {
			h.log.Error("encode page", slog.String("path", path), slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		if cacheable {
			if err := h.cache.Set(ctx, path, version, body, h.cacheTTL); err != nil {
				h.log.Warn("page cache store failed", slog.String("path", path), slog.Any("error", err))
			}
		}

		w.Header().Set(CacheHeader, "MISS")
		writeBody(w, http.StatusOK, body)
	}
}

func (h *Handler) publicPage(r *http.Request) any {
	ctx := r.Context()
	return PublicPage{
		Settings:   h.settings.Get(ctx),
		Promotions: h.bonuses.ListActive(ctx),
	}
}

func (h *Handler) publicSettings(r *http.Request) any {
	return h.settings.Get(r.Context())
}

func (h *Handler) submitContact(w http.ResponseWriter, r *http.Request) {
	var in domain.ContactInput
	if err := decode(r, &in); err != nil {
		h.badRequest(w, r, err)
		return
	}

	res := h.contact.Submit(r.Context(), in, clientIP(r))
	h.writeResult(w, http.StatusOK, res)
}

// clientIP strips the port from RemoteAddr. Behind a trusted proxy RealIP
// has already replaced it with the forwarded address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
