package repository

import (
	"context"
	"sync"
	"time"

	"topdivers/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverAuthRepository uses primary until it errors, then serves from
// fallback and probes primary again once per recoveryInterval.
type FailoverAuthRepository struct {
	primary  domain.AuthRepository
	fallback domain.AuthRepository
	logger   *zerolog.Logger

	mu        sync.Mutex
	down      bool
	lastCheck time.Time
	now       func() time.Time
}

func NewFailoverAuthRepository(primary, fallback domain.AuthRepository, logger *zerolog.Logger) *FailoverAuthRepository {
	return &FailoverAuthRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// IsDown reports whether calls are currently served by the fallback.
func (r *FailoverAuthRepository) IsDown() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.down
}

// usePrimary reports whether the next call should try primary.
func (r *FailoverAuthRepository) usePrimary() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.down {
		return true
	}
	if r.now().Sub(r.lastCheck) > recoveryInterval {
		r.lastCheck = r.now()
		return true
	}
	return false
}

func (r *FailoverAuthRepository) record(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		if r.down {
			r.logger.Info().Msg("Primary auth repository recovered")
		}
		r.down = false
		return
	}
	if !r.down {
		r.logger.Error().Err(err).Msg("Primary auth repository failed, falling back to memory")
	}
	r.down = true
	r.lastCheck = r.now()
}

func (r *FailoverAuthRepository) LastVerified(ctx context.Context, tokenKey string) (time.Time, bool, error) {
	if r.usePrimary() {
		at, ok, err := r.primary.LastVerified(ctx, tokenKey)
		r.record(err)
		if err == nil {
			return at, ok, nil
		}
	}
	return r.fallback.LastVerified(ctx, tokenKey)
}

func (r *FailoverAuthRepository) MarkVerified(ctx context.Context, tokenKey string, at time.Time) error {
	if r.usePrimary() {
		err := r.primary.MarkVerified(ctx, tokenKey, at)
		r.record(err)
		if err == nil {
			return nil
		}
	}
	return r.fallback.MarkVerified(ctx, tokenKey, at)
}

func (r *FailoverAuthRepository) ForgetVerified(ctx context.Context, tokenKey string) error {
	// drop from both so a recovered primary cannot resurrect the stamp
	_ = r.fallback.ForgetVerified(ctx, tokenKey)
	if r.usePrimary() {
		err := r.primary.ForgetVerified(ctx, tokenKey)
		r.record(err)
	}
	return nil
}

func (r *FailoverAuthRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		r.record(err)
		if err == nil {
			return allowed, nil
		}
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}

func (r *FailoverAuthRepository) ResetRateLimit(ctx context.Context, key string) error {
	_ = r.fallback.ResetRateLimit(ctx, key)
	if r.usePrimary() {
		err := r.primary.ResetRateLimit(ctx, key)
		r.record(err)
	}
	return nil
}
