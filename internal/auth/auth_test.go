package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sohoz88/promo-site/internal/domain"
	apperrors "github.com/sohoz88/promo-site/internal/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestMiddleware_RedirectsWithoutCookie(t *testing.T) {
	gate := New("secret", false, nil, testLogger()).Middleware(okHandler())

	tests := []struct {
		target   string
		redirect string
	}{
		{target: "/admin", redirect: "/admin"},
		{target: "/admin/bonuses", redirect: "/admin/bonuses"},
		{target: "/admin/bonuses/edit/abc?tab=image", redirect: "/admin/bonuses/edit/abc?tab=image"},
		{target: "/admin/settings?x=1&y=2", redirect: "/admin/settings?x=1&y=2"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			gate.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			require.Equal(t, http.StatusFound, rec.Code)
			loc, err := url.Parse(rec.Header().Get("Location"))
			require.NoError(t, err)
			assert.Equal(t, LoginPath, loc.Path)
			assert.Equal(t, tt.redirect, loc.Query().Get(RedirectParam))
		})
	}
}

func TestMiddleware_LoginPathNeverRedirects(t *testing.T) {
	gate := New("secret", false, nil, testLogger()).Middleware(okHandler())

	for _, target := range []string{"/admin/login", "/admin/login?redirect=/admin/bonuses"} {
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code, target)
	}
}

func TestMiddleware_PassesPublicAndAuthenticated(t *testing.T) {
	gate := New("secret", false, nil, testLogger()).Middleware(okHandler())

	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/promotions", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	gate.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/administrator", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/bonuses", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: CookieValue})
	rec = httptest.NewRecorder()
	gate.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/bonuses", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "false"})
	rec = httptest.NewRecorder()
	gate.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestLogin_SetsCookie(t *testing.T) {
	for _, secure := range []bool{false, true} {
		a := New("sohoz88admin", secure, apperrors.NewHandler(testLogger()), testLogger())
		rec := httptest.NewRecorder()

		res := a.Login(context.Background(), rec, domain.LoginInput{Password: "sohoz88admin"})
		require.True(t, res.Success)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		c := cookies[0]
		assert.Equal(t, CookieName, c.Name)
		assert.Equal(t, CookieValue, c.Value)
		assert.Equal(t, "/", c.Path)
		assert.Equal(t, 604800, c.MaxAge)
		assert.True(t, c.HttpOnly)
		assert.Equal(t, secure, c.Secure)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	}
}

func TestLogin_Failures(t *testing.T) {
	a := New("sohoz88admin", false, nil, testLogger())

	rec := httptest.NewRecorder()
	res := a.Login(context.Background(), rec, domain.LoginInput{Password: "guess"})
	assert.False(t, res.Success)
	assert.Equal(t, MsgWrongPassword, res.Error)
	assert.Equal(t, string(apperrors.KindUnauthorized), res.Kind)
	assert.Empty(t, rec.Result().Cookies())

	rec = httptest.NewRecorder()
	res = a.Login(context.Background(), rec, domain.LoginInput{})
	assert.False(t, res.Success)
	assert.Equal(t, MsgInvalidFormat, res.Error)
	assert.Empty(t, rec.Result().Cookies())
}

func TestLogout_ExpiresCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	New("x", false, nil, testLogger()).Logout(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestSafeRedirect(t *testing.T) {
	assert.Equal(t, "/admin/bonuses?x=1", SafeRedirect("/admin/bonuses?x=1"))
	assert.Equal(t, "/admin", SafeRedirect(""))
	assert.Equal(t, "/admin", SafeRedirect("//evil.example.com"))
	assert.Equal(t, "/admin", SafeRedirect("https://evil.example.com"))
	assert.Equal(t, "/admin", SafeRedirect("/\\evil.example.com"))
}
