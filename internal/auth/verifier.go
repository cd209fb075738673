package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"topdivers/internal/apiclient"
	"topdivers/internal/domain"
	"topdivers/internal/metrics"
	"topdivers/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrInvalidToken    = errors.New("invalid or expired token")
)

// RemoteVerifier is the backend /auth/verify call.
type RemoteVerifier interface {
	Verify(ctx context.Context, token string) (*apiclient.VerifyResponse, error)
}

// Claims are the fields read from the access token.
type Claims struct {
	jwt.RegisteredClaims
	Role     string `json:"role,omitempty"`
	UserType string `json:"user_type,omitempty"`
}

// Result describes a successful verification.
type Result struct {
	Claims        *Claims
	RemoteChecked bool
	VerifiedAt    time.Time
}

type VerifierConfig struct {
	JWTSecret         string
	VerifyInterval    time.Duration
	RecentLoginWindow time.Duration
}

// Verifier checks tokens locally on every request and confirms them with
// the backend at most once per VerifyInterval, skipping tokens issued within
// RecentLoginWindow.
type Verifier struct {
	secret       []byte
	interval     time.Duration
	recentWindow time.Duration
	remote       RemoteVerifier
	ledger       domain.AuthRepository
	logger       *zerolog.Logger
	group        singleflight.Group
	now          func() time.Time
}

func NewVerifier(cfg VerifierConfig, remote RemoteVerifier, ledger domain.AuthRepository, logger *zerolog.Logger) *Verifier {
	interval := cfg.VerifyInterval
	if interval <= 0 {
		interval = time.Hour
	}
	recent := cfg.RecentLoginWindow
	if recent <= 0 {
		recent = 5 * time.Minute
	}
	return &Verifier{
		secret:       []byte(cfg.JWTSecret),
		interval:     interval,
		recentWindow: recent,
		remote:       remote,
		ledger:       ledger,
		logger:       logger,
		now:          time.Now,
	}
}

// TokenKey is the ledger key for a token; the raw token is never stored.
func TokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}

// StampKey is the ledger key for a token used as the given user type. A
// stamp for one type never vouches for another.
func StampKey(token, userType string) string {
	return TokenKey(token) + ":" + userType
}

// ParseToken validates the token locally. With a secret the HS256
// signature is checked; without one only the expiry is.
func (v *Verifier) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	var err error
	if len(v.secret) > 0 {
		_, err = jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			return v.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(v.now))
	} else {
		_, _, err = jwt.NewParser().ParseUnverified(token, claims)
		if err == nil && claims.ExpiresAt != nil && !v.now().Before(claims.ExpiresAt.Time) {
			err = jwt.ErrTokenExpired
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// Verify checks state's token and, when due, confirms it remotely. A
// remote answer of invalid wins over a valid local check; a remote
// transport failure does not, unless the claimed admin role is backed by
// neither the token nor a server-side stamp.
//
// Only server-side data decides whether the remote call can be skipped:
// the ledger stamp written at login or after a remote confirmation, and
// the signed iat claim. The cookie's own timestamps are client-controlled
// and ignored.
func (v *Verifier) Verify(ctx context.Context, state *models.AuthState) (*Result, error) {
	if state == nil || !state.IsAuthenticated || state.Token == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := v.ParseToken(state.Token)
	if err != nil {
		return nil, err
	}
	if state.IsAdmin() && claims.Role != "" && claims.Role != models.UserTypeAdmin {
		return nil, fmt.Errorf("%w: token role %q is not admin", ErrInvalidToken, claims.Role)
	}

	// An admin state whose token carries no role needs the backend or our
	// own login stamp to confirm it.
	typeTrusted := !state.IsAdmin() || claims.Role == models.UserTypeAdmin

	res := &Result{Claims: claims}
	key := StampKey(state.Token, state.UserType)
	now := v.now()
	last := v.lastVerified(ctx, key)
	if !last.IsZero() {
		res.VerifiedAt = last
	}
	stamped := !last.IsZero() && now.Sub(last) < v.interval

	if v.remote == nil {
		if !typeTrusted && !stamped {
			return nil, fmt.Errorf("%w: admin role not confirmed", ErrInvalidToken)
		}
		return res, nil
	}
	if stamped || (typeTrusted && v.recentlyIssued(claims, now)) {
		return res, nil
	}

	out, err, _ := v.group.Do(key, func() (any, error) {
		return v.remote.Verify(ctx, state.Token)
	})
	if err != nil {
		metrics.IncRemoteVerify("error")
		if !typeTrusted {
			v.logger.Warn().Err(err).Msg("remote token verification failed, admin role unconfirmed")
			return nil, fmt.Errorf("%w: admin role not confirmed", ErrInvalidToken)
		}
		v.logger.Warn().Err(err).Msg("remote token verification failed, trusting local check")
		return res, nil
	}

	resp := out.(*apiclient.VerifyResponse)
	if !resp.Valid || !remoteTypeMatches(resp, state, typeTrusted) {
		metrics.IncRemoteVerify("invalid")
		v.forget(ctx, key)
		return nil, fmt.Errorf("%w: rejected by backend", ErrInvalidToken)
	}

	metrics.IncRemoteVerify("valid")
	v.mark(ctx, key, now)
	res.RemoteChecked = true
	res.VerifiedAt = now
	return res, nil
}

// RecordLogin stamps a state the backend has just issued, so the next
// requests skip the remote check for one interval.
func (v *Verifier) RecordLogin(ctx context.Context, state *models.AuthState) {
	if state == nil || state.Token == "" {
		return
	}
	v.mark(ctx, StampKey(state.Token, state.UserType), v.now())
}

func remoteTypeMatches(resp *apiclient.VerifyResponse, state *models.AuthState, typeTrusted bool) bool {
	if !typeTrusted {
		return resp.UserType == models.UserTypeAdmin || (resp.UserType == "" && resp.Admin != nil)
	}
	return resp.UserType == "" || state.UserType == "" || resp.UserType == state.UserType
}

// recentlyIssued reports whether a signature-checked token was issued
// within the recent-login window. Unsigned tokens never qualify.
func (v *Verifier) recentlyIssued(claims *Claims, now time.Time) bool {
	if len(v.secret) == 0 || claims.IssuedAt == nil {
		return false
	}
	age := now.Sub(claims.IssuedAt.Time)
	return age >= 0 && age < v.recentWindow
}

func (v *Verifier) lastVerified(ctx context.Context, key string) time.Time {
	if v.ledger == nil {
		return time.Time{}
	}
	at, ok, err := v.ledger.LastVerified(ctx, key)
	if err != nil {
		v.logger.Warn().Err(err).Msg("failed to read verification stamp")
		return time.Time{}
	}
	if !ok {
		return time.Time{}
	}
	return at
}

func (v *Verifier) mark(ctx context.Context, key string, at time.Time) {
	if v.ledger == nil {
		return
	}
	if err := v.ledger.MarkVerified(ctx, key, at); err != nil {
		v.logger.Warn().Err(err).Msg("failed to store verification stamp")
	}
}

func (v *Verifier) forget(ctx context.Context, key string) {
	if v.ledger == nil {
		return
	}
	if err := v.ledger.ForgetVerified(ctx, key); err != nil {
		v.logger.Warn().Err(err).Msg("failed to drop verification stamp")
	}
}
