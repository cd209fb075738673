package repository

import (
	"context"
	"sync"
	"time"
)

type stampEntry struct {
	at        time.Time
	expiresAt time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// MemoryAuthRepository is the in-process AuthRepository used when Redis is
// unavailable.
type MemoryAuthRepository struct {
	mu         sync.Mutex
	stamps     map[string]stampEntry
	rateLimits map[string]*rateLimitEntry
	ttl        time.Duration
	now        func() time.Time
}

func NewMemoryAuthRepository(ttl time.Duration) *MemoryAuthRepository {
	return &MemoryAuthRepository{
		stamps:     make(map[string]stampEntry),
		rateLimits: make(map[string]*rateLimitEntry),
		ttl:        ttl,
		now:        time.Now,
	}
}

func (r *MemoryAuthRepository) LastVerified(_ context.Context, tokenKey string) (time.Time, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.stamps[tokenKey]
	if !ok {
		return time.Time{}, false, nil
	}
	if !entry.expiresAt.IsZero() && r.now().After(entry.expiresAt) {
		delete(r.stamps, tokenKey)
		return time.Time{}, false, nil
	}
	return entry.at, true, nil
}

func (r *MemoryAuthRepository) MarkVerified(_ context.Context, tokenKey string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := stampEntry{at: at}
	if r.ttl > 0 {
		entry.expiresAt = r.now().Add(r.ttl)
	}
	r.stamps[tokenKey] = entry
	return nil
}

func (r *MemoryAuthRepository) ForgetVerified(_ context.Context, tokenKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stamps, tokenKey)
	return nil
}

func (r *MemoryAuthRepository) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}

func (r *MemoryAuthRepository) ResetRateLimit(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rateLimits, key)
	return nil
}
