// Package auth reads the persisted auth state cookie, verifies its token
// and gates routes on it.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"topdivers/internal/models"
)

// DefaultCookieName is the cookie the client auth store persists into.
const DefaultCookieName = "auth-storage"

var ErrMalformedCookie = errors.New("malformed auth cookie")

// envelope is the persisted store layout: {"state":{...},"version":0}.
type envelope struct {
	State   *models.AuthState `json:"state"`
	Version int               `json:"version"`
}

// ParseCookie decodes a cookie value. The value is URL-encoded JSON; raw
// JSON and a bare state object are accepted too.
func ParseCookie(value string) (*models.AuthState, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrMalformedCookie
	}
	if !strings.HasPrefix(value, "{") {
		decoded, err := url.QueryUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCookie, err)
		}
		value = decoded
	}

	var env envelope
	if err := json.Unmarshal([]byte(value), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCookie, err)
	}
	if env.State != nil {
		return env.State, nil
	}

	var state models.AuthState
	if err := json.Unmarshal([]byte(value), &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCookie, err)
	}
	if state.Token == "" && !state.IsAuthenticated {
		return nil, ErrMalformedCookie
	}
	return &state, nil
}

// EncodeCookie produces the URL-encoded envelope for state.
func EncodeCookie(state *models.AuthState) (string, error) {
	raw, err := json.Marshal(envelope{State: state})
	if err != nil {
		return "", fmt.Errorf("encode auth cookie: %w", err)
	}
	return url.QueryEscape(string(raw)), nil
}

// CookieConfig controls how the auth cookie is written.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

func (c CookieConfig) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

// ReadState returns the state from the request cookie. A missing cookie is
// (nil, nil); a present but unreadable one is ErrMalformedCookie.
func (c CookieConfig) ReadState(r *http.Request) (*models.AuthState, error) {
	cookie, err := r.Cookie(c.name())
	if errors.Is(err, http.ErrNoCookie) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCookie, err)
	}
	return ParseCookie(cookie.Value)
}

func (c CookieConfig) WriteState(w http.ResponseWriter, state *models.AuthState) error {
	value, err := EncodeCookie(state)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.MaxAge / time.Second),
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (c CookieConfig) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// NewUserState builds the state stored after a successful user login.
func NewUserState(user *models.AuthUser, token string, now time.Time) *models.AuthState {
	return &models.AuthState{
		IsAuthenticated: true,
		User:            user,
		Token:           token,
		UserType:        models.UserTypeUser,
		TokenValid:      true,
		TokenVerified:   now.UnixMilli(),
		LoginAt:         now.UnixMilli(),
	}
}

// NewAdminState builds the state stored after a successful admin login.
func NewAdminState(admin *models.AuthUser, token string, now time.Time) *models.AuthState {
	return &models.AuthState{
		IsAuthenticated: true,
		Admin:           admin,
		Token:           token,
		UserType:        models.UserTypeAdmin,
		TokenValid:      true,
		TokenVerified:   now.UnixMilli(),
		LoginAt:         now.UnixMilli(),
	}
}
