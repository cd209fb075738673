package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"topdivers/internal/models"

	"github.com/rs/zerolog"
)

const (
	LoginPath          = "/login"
	RegisterPath       = "/register"
	AdminLoginPath     = "/admin/login"
	AdminDashboardPath = "/admin/dashboard"
	ProfilePath        = "/profile"
)

var userPrefixes = []string{"/profile", "/invoices", "/payment", "/enroll", "/book"}

// Gate enforces route access from the auth cookie.
type Gate struct {
	cookie   CookieConfig
	verifier *Verifier
	logger   *zerolog.Logger
}

func NewGate(cookie CookieConfig, verifier *Verifier, logger *zerolog.Logger) *Gate {
	return &Gate{cookie: cookie, verifier: verifier, logger: logger}
}

// RecordLogin stamps a freshly issued session in the verification ledger.
func (g *Gate) RecordLogin(ctx context.Context, state *models.AuthState) {
	g.verifier.RecordLogin(ctx, state)
}

type routeKind int

const (
	routePublic routeKind = iota
	routeGuestOnly
	routeUser
	routeAdmin
)

func classify(path string) routeKind {
	switch path {
	case LoginPath, RegisterPath, AdminLoginPath:
		return routeGuestOnly
	}
	if path == "/admin" || strings.HasPrefix(path, "/admin/") {
		return routeAdmin
	}
	for _, prefix := range userPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return routeUser
		}
	}
	return routePublic
}

// Middleware wraps next with the access rules. Public paths pass through
// untouched.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind := classify(r.URL.Path)
		if kind == routePublic {
			next.ServeHTTP(w, r)
			return
		}

		state := g.resolve(w, r)

		switch kind {
		case routeGuestOnly:
			if state != nil {
				target := ProfilePath
				if state.IsAdmin() {
					target = AdminDashboardPath
				}
				http.Redirect(w, r, target, http.StatusTemporaryRedirect)
				return
			}
		case routeAdmin:
			if state == nil || !state.IsAdmin() {
				g.deny(w, r, AdminLoginPath, state != nil)
				return
			}
		case routeUser:
			if state == nil {
				g.deny(w, r, LoginPath, false)
				return
			}
		}

		if state != nil {
			r = r.WithContext(WithState(r.Context(), state))
		}
		next.ServeHTTP(w, r)
	})
}

// resolve returns the verified state or nil. Unreadable or rejected
// cookies are cleared.
func (g *Gate) resolve(w http.ResponseWriter, r *http.Request) *models.AuthState {
	state, err := g.cookie.ReadState(r)
	if err != nil {
		g.logger.Debug().Err(err).Msg("clearing unreadable auth cookie")
		g.cookie.Clear(w)
		return nil
	}
	if state == nil || !state.IsAuthenticated {
		return nil
	}

	res, err := g.verifier.Verify(r.Context(), state)
	if err != nil {
		if !errors.Is(err, ErrUnauthenticated) {
			g.logger.Info().Err(err).Str("path", r.URL.Path).Msg("auth cookie rejected")
		}
		g.cookie.Clear(w)
		return nil
	}

	if res.RemoteChecked {
		state.TokenValid = true
		state.TokenVerified = res.VerifiedAt.UnixMilli()
		if err := g.cookie.WriteState(w, state); err != nil {
			g.logger.Warn().Err(err).Msg("failed to refresh auth cookie")
		}
	}
	return state
}

func (g *Gate) deny(w http.ResponseWriter, r *http.Request, loginPath string, authenticated bool) {
	if wantsJSON(r) {
		status, detail := http.StatusUnauthorized, "Not authenticated"
		if authenticated {
			status, detail = http.StatusForbidden, "Admin access required"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
		return
	}
	http.Redirect(w, r, LoginRedirect(loginPath, r.URL.RequestURI()), http.StatusTemporaryRedirect)
}

// LoginRedirect builds loginPath?redirect=<target>.
func LoginRedirect(loginPath, target string) string {
	return loginPath + "?" + url.Values{"redirect": {target}}.Encode()
}

// SafeRedirect returns target when it is a local path, fallback otherwise.
func SafeRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, "\\") {
		return fallback
	}
	return target
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}
