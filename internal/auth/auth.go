// Package auth gates the admin panel behind a shared-secret session cookie.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sohoz88/promo-site/internal/domain"
	apperrors "github.com/sohoz88/promo-site/internal/errors"
	"github.com/sohoz88/promo-site/internal/validation"
	"github.com/sohoz88/promo-site/pkg/metrics"
)

// Session cookie contract.
const (
	CookieName   = "sohoz88_admin_auth"
	CookieValue  = "true"
	CookieMaxAge = 7 * 24 * time.Hour
)

// Admin paths.
const (
	AdminPrefix = "/admin"
	LoginPath   = "/admin/login"
	// RedirectParam carries the originally requested path to the login page.
	RedirectParam = "redirect"
)

// Login failure messages.
const (
	MsgInvalidFormat = "অবৈধ পাসওয়ার্ড ফরম্যাট।"
	MsgWrongPassword = "ভুল পাসওয়ার্ড।"
)

// Authenticator checks the admin password and manages the session cookie.
// The password is compared by plain equality; there is no hashing and no
// attempt limiting.
type Authenticator struct {
	password string
	secure   bool
	errs     *apperrors.Handler
	log      *slog.Logger
}

// New creates an Authenticator. secure marks the cookie Secure, which
// production deployments served over HTTPS need.
func New(password string, secure bool, errs *apperrors.Handler, log *slog.Logger) *Authenticator {
	if log == nil {
		log = slog.Default()
	}
	if errs == nil {
		errs = apperrors.NewHandler(log)
	}

	return &Authenticator{
		password: password,
		secure:   secure,
		errs:     errs,
		log:      log,
	}
}

// IsAuthenticated reports whether r carries a valid session cookie.
func IsAuthenticated(r *http.Request) bool {
	c, err := r.Cookie(CookieName)
	return err == nil && c.Value == CookieValue
}

// Middleware redirects unauthenticated requests for admin paths to the login
// page. The login page itself and non-admin paths always pass.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !RequiresAuth(r.URL.Path) || IsAuthenticated(r) {
			next.ServeHTTP(w, r)
			return
		}

		target := LoginURL(r.URL)
		a.log.Debug("unauthenticated admin request redirected",
			slog.String("path", r.URL.Path),
			slog.String("location", target),
		)
		http.Redirect(w, r, target, http.StatusFound)
	})
}

// RequiresAuth reports whether path sits behind the admin gate.
func RequiresAuth(path string) bool {
	if path == LoginPath {
		return false
	}
	return path == AdminPrefix || strings.HasPrefix(path, AdminPrefix+"/")
}

// LoginURL builds the login location carrying u's path and query as the
// return target.
func LoginURL(u *url.URL) string {
	back := u.Path
	if u.RawQuery != "" {
		back += "?" + u.RawQuery
	}

	q := url.Values{}
	q.Set(RedirectParam, back)
	return LoginPath + "?" + q.Encode()
}

// Login validates in and, on a password match, sets the session cookie on w.
func (a *Authenticator) Login(ctx context.Context, w http.ResponseWriter, in domain.LoginInput) domain.ActionResult {
	if fields := validation.Validate(in); fields != nil {
		res := a.fail(ctx, apperrors.NewValidationError(fields))
		res.Error = MsgInvalidFormat
		return res
	}

	if in.Password != a.password {
		res := a.fail(ctx, apperrors.NewUnauthorizedError(MsgWrongPassword))
		res.Error = MsgWrongPassword
		return res
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    CookieValue,
		Path:     "/",
		MaxAge:   int(CookieMaxAge / time.Second),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
	a.log.Info("admin logged in")
	metrics.RecordAction("auth.login", "success")

	return domain.ActionResult{Success: true}
}

// Logout expires the session cookie.
func (a *Authenticator) Logout(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
	metrics.RecordAction("auth.logout", "success")
}

func (a *Authenticator) fail(ctx context.Context, err error) domain.ActionResult {
	appErr := a.errs.Handle(ctx, "admin login", err)
	metrics.RecordAction("auth.login", string(appErr.Kind))
	res := apperrors.Result(appErr)
	res.Message = ""
	return res
}

// SafeRedirect returns target when it is a local absolute path, otherwise
// the admin dashboard.
func SafeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") ||
		strings.HasPrefix(target, "/\\") {
		return AdminPrefix
	}
	return target
}
