package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sohoz88/promo-site/internal/auth"
	"github.com/sohoz88/promo-site/internal/bonus"
	"github.com/sohoz88/promo-site/internal/contact"
	"github.com/sohoz88/promo-site/internal/domain"
	apperrors "github.com/sohoz88/promo-site/internal/errors"
	"github.com/sohoz88/promo-site/internal/health"
	"github.com/sohoz88/promo-site/internal/lifecycle"
	"github.com/sohoz88/promo-site/internal/pagecache"
	"github.com/sohoz88/promo-site/internal/ratelimit"
	"github.com/sohoz88/promo-site/internal/repository"
	"github.com/sohoz88/promo-site/internal/settings"
	"github.com/sohoz88/promo-site/internal/store"
	"github.com/sohoz88/promo-site/pkg/config"
)

const testPassword = "sohoz88admin"

type fixture struct {
	handler http.Handler
	cache   *pagecache.MemoryCache
	checker *health.Checker
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newFixture wires the router over an in-memory store. opts may adjust the
// dependencies before the router is built.
func newFixture(t *testing.T, opts ...func(*Deps)) *fixture {
	t.Helper()

	log := testLogger()
	cfg := config.MongoConfig{
		BonusesCollection:  "bonuses",
		SettingsCollection: "siteSettings",
		ContactCollection:  "contactMessages",
	}
	client := store.Open(context.Background(), cfg, log)
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	errs := apperrors.NewHandler(log)
	cache := pagecache.NewMemoryCache()

	bonuses := bonus.NewService(repository.NewBonusRepository(client, cfg.BonusesCollection, log), cache, errs, log,
		bonus.WithStoreMode(client.Mode()))
	siteSettings := settings.NewService(repository.NewSettingsRepository(client, cfg.SettingsCollection, log), cache, errs, log)
	contacts := contact.NewService(repository.NewContactRepository(client, cfg.ContactCollection),
		ratelimit.NewMemoryLimiter(log), contact.Limits{Max: 2, Window: time.Minute}, errs, log)

	checker := health.NewChecker(log, time.Second)
	checker.AddCheck("store", health.NewStoreChecker(client))

	deps := Deps{
		Bonuses:  bonuses,
		Settings: siteSettings,
		Contact:  contacts,
		Auth:     auth.New(testPassword, false, errs, log),
		Cache:    cache,
		Probes:   lifecycle.NewProbes(log, checker),
		Log:      log,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &fixture{handler: NewRouter(deps), cache: cache, checker: checker}
}

func (f *fixture) do(t *testing.T, method, target string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	return f.doWith(t, method, target, body, nil, cookies...)
}

func (f *fixture) doWith(t *testing.T, method, target string, body any, header http.Header, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	req.RemoteAddr = "203.0.113.7:52100"
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func adminCookie() *http.Cookie {
	return &http.Cookie{Name: auth.CookieName, Value: auth.CookieValue}
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) domain.ActionResult {
	t.Helper()
	var res domain.ActionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func bonusBody() map[string]any {
	return map[string]any{
		"title":               "Welcome Bonus!!",
		"description":         "Deposit and get 100% match bonus today",
		"turnoverRequirement": "20x",
		"imageUrl":            "https://example.com/a.png",
		"ctaLink":             "https://example.com/register",
		"isActive":            true,
	}
}

func TestAdminGate(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		target   string
		status   int
		location string
	}{
		{name: "dashboard", target: "/admin", status: http.StatusFound, location: "/admin/login?redirect=%2Fadmin"},
		{name: "nested with query", target: "/admin/bonuses?page=2", status: http.StatusFound, location: "/admin/login?redirect=%2Fadmin%2Fbonuses%3Fpage%3D2"},
		{name: "unknown admin path", target: "/admin/nope", status: http.StatusFound, location: "/admin/login?redirect=%2Fadmin%2Fnope"},
		{name: "login page", target: "/admin/login", status: http.StatusOK},
		{name: "public page", target: "/", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
		})
	}

	rec := f.do(t, http.MethodGet, "/admin", nil, &http.Cookie{Name: auth.CookieName, Value: "false"})
	assert.Equal(t, http.StatusFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/admin", nil, adminCookie())
	require.Equal(t, http.StatusOK, rec.Code)
	var stats domain.BonusStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, string(store.ModeMemory), stats.StoreMode)
}

func TestLoginFlow(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/admin/login?redirect=%2Fadmin%2Fsettings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page LoginPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, LoginPage{Authenticated: false, Redirect: "/admin/settings"}, page)

	rec = f.do(t, http.MethodPost, "/admin/login", map[string]string{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, auth.MsgWrongPassword, decodeResult(t, rec).Error)
	assert.Empty(t, rec.Result().Cookies())

	rec = f.do(t, http.MethodPost, "/admin/login", map[string]string{"password": ""})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, http.MethodPost, "/admin/login", map[string]string{
		"password": testPassword,
		"redirect": "https://evil.example.com",
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))

	rec = f.do(t, http.MethodPost, "/admin/login?redirect=%2Fadmin%2Fbonuses", map[string]string{"password": testPassword})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/bonuses", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	rec = f.do(t, http.MethodGet, "/admin/bonuses", nil, cookies[0])
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/admin/logout", nil, cookies[0])
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, auth.LoginPath, rec.Header().Get("Location"))
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestBonusLifecycle(t *testing.T) {
	f := newFixture(t)
	admin := adminCookie()

	rec := f.do(t, http.MethodGet, "/promotions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get(CacheHeader))
	rec = f.do(t, http.MethodGet, "/promotions", nil)
	assert.Equal(t, "HIT", rec.Header().Get(CacheHeader))

	rec = f.do(t, http.MethodPost, "/admin/bonuses", bonusBody(), admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeResult(t, rec)
	require.True(t, created.Success)
	require.NotEmpty(t, created.BonusID)

	rec = f.do(t, http.MethodGet, "/promotions", nil)
	assert.Equal(t, "MISS", rec.Header().Get(CacheHeader))
	var page PublicPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Promotions, 1)
	assert.Equal(t, created.BonusID, page.Promotions[0].ID)
	assert.Equal(t, domain.BackgroundColor, page.Settings.BackgroundType)

	rec = f.do(t, http.MethodGet, "/admin/bonuses/edit/"+created.BonusID, nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var edit EditBonusPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &edit))
	assert.Equal(t, "Welcome Bonus!!", edit.Bonus.Title)

	update := bonusBody()
	update["isActive"] = false
	rec = f.do(t, http.MethodPut, "/admin/bonuses/"+created.BonusID, update, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bonus.MsgUpdated, decodeResult(t, rec).Message)

	rec = f.do(t, http.MethodGet, "/promotions", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Empty(t, page.Promotions)

	rec = f.do(t, http.MethodGet, "/admin/bonuses/"+created.BonusID, nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Bonus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.False(t, got.IsActive)

	rec = f.do(t, http.MethodDelete, "/admin/bonuses/"+created.BonusID, nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bonus.MsgDeleted, decodeResult(t, rec).Message)

	rec = f.do(t, http.MethodDelete, "/admin/bonuses/"+created.BonusID, nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(apperrors.KindNotFound), decodeResult(t, rec).Kind)

	rec = f.do(t, http.MethodGet, "/admin/bonuses/"+created.BonusID, nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBonus_Invalid(t *testing.T) {
	f := newFixture(t)

	body := bonusBody()
	body["title"] = "Hey"
	rec := f.do(t, http.MethodPost, "/admin/bonuses", body, adminCookie())
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	res := decodeResult(t, rec)
	assert.Equal(t, string(apperrors.KindValidation), res.Kind)
	assert.Contains(t, res.FieldErrors, "title")

	rec = f.do(t, http.MethodPost, "/admin/bonuses", "{not json", adminCookie())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, MsgBadRequest, decodeResult(t, rec).Error)
}

func TestSettingsUpdate(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var current domain.SiteSettings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &current))
	assert.Equal(t, domain.DefaultBackgroundValue, current.BackgroundValue)

	rec = f.do(t, http.MethodPut, "/admin/settings", map[string]string{
		"backgroundType":  "video",
		"backgroundValue": "https://cdn.example.com/bg.mp4",
	}, adminCookie())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, settings.MsgUpdated, decodeResult(t, rec).Message)

	rec = f.do(t, http.MethodGet, "/settings", nil)
	assert.Equal(t, "MISS", rec.Header().Get(CacheHeader))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &current))
	assert.Equal(t, domain.BackgroundVideo, current.BackgroundType)

	rec = f.do(t, http.MethodPut, "/admin/settings", map[string]string{
		"backgroundType":  "color",
		"backgroundValue": "not-a-color",
	}, adminCookie())
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestContact(t *testing.T) {
	f := newFixture(t)

	body := map[string]string{
		"name":    "Rahim",
		"email":   "rahim@example.com",
		"subject": "Withdrawal help",
		"message": "My withdrawal has been pending for two days.",
	}

	for i := 0; i < 2; i++ {
		rec := f.do(t, http.MethodPost, "/contact", body)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, contact.MsgSent, decodeResult(t, rec).Message)
	}

	rec := f.do(t, http.MethodPost, "/contact", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	body["email"] = "nope"
	rec = f.do(t, http.MethodPost, "/contact", body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestContact_IgnoresForwardedForByDefault(t *testing.T) {
	f := newFixture(t)
	body := map[string]string{
		"name":    "Rahim",
		"email":   "rahim@example.com",
		"subject": "Withdrawal help",
		"message": "My withdrawal has been pending for two days.",
	}

	codes := make([]int, 0, 3)
	for _, ip := range []string{"198.51.100.1", "198.51.100.2", "198.51.100.3"} {
		rec := f.doWith(t, http.MethodPost, "/contact", body, http.Header{"X-Forwarded-For": {ip}})
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestContact_TrustedProxyKeysByForwardedFor(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.TrustProxy = true })
	body := map[string]string{
		"name":    "Rahim",
		"email":   "rahim@example.com",
		"subject": "Withdrawal help",
		"message": "My withdrawal has been pending for two days.",
	}

	for _, ip := range []string{"198.51.100.1", "198.51.100.2", "198.51.100.3"} {
		rec := f.doWith(t, http.MethodPost, "/contact", body, http.Header{"X-Forwarded-For": {ip}})
		assert.Equal(t, http.StatusOK, rec.Code, ip)
	}
}

// buildRaceCache runs mutate after the page is built and before it is
// stored, the window in which a concurrent admin write can land.
type buildRaceCache struct {
	pagecache.Cache
	mutate func()
}

func (c *buildRaceCache) Set(ctx context.Context, path string, v pagecache.Version, body []byte, ttl time.Duration) error {
	if c.mutate != nil {
		mutate := c.mutate
		c.mutate = nil
		mutate()
	}
	return c.Cache.Set(ctx, path, v, body, ttl)
}

func TestCachedPage_MutationDuringBuildIsNotMasked(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		bonuses := d.Bonuses
		d.Cache = &buildRaceCache{Cache: d.Cache, mutate: func() {
			res := bonuses.Create(context.Background(), domain.BonusInput{
				Title:               "Welcome Bonus!!",
				Description:         "Deposit and get 100% match bonus today",
				TurnoverRequirement: "20x",
				ImageURL:            "https://example.com/a.png",
				CTALink:             "https://example.com/register",
			})
			require.True(t, res.Success, res.Message)
		}}
	})

	rec := f.do(t, http.MethodGet, "/promotions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get(CacheHeader))

	rec = f.do(t, http.MethodGet, "/promotions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get(CacheHeader))

	var page PublicPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Promotions, 1)

	rec = f.do(t, http.MethodGet, "/promotions", nil)
	assert.Equal(t, "HIT", rec.Header().Get(CacheHeader))
}

func TestProbes(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"store":"OK"`)

	f.checker.AddCheck("redis", health.CheckFunc(func(context.Context) error { return errors.New("connection refused") }))
	rec = f.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")

	rec = f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(apperrors.KindValidation))
	assert.Equal(t, http.StatusNotFound, statusFor(apperrors.KindNotFound))
	assert.Equal(t, http.StatusBadRequest, statusFor(apperrors.KindInvalidID))
	assert.Equal(t, http.StatusInternalServerError, statusFor(apperrors.KindDatabase))
	assert.Equal(t, http.StatusTooManyRequests, statusFor(apperrors.KindRateLimited))
	assert.Equal(t, http.StatusUnauthorized, statusFor(apperrors.KindUnauthorized))
}
