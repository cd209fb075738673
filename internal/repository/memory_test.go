package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAuthRepository(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	repo := NewMemoryAuthRepository(time.Hour)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	t.Run("Stamps", func(t *testing.T) {
		require.NoError(t, repo.MarkVerified(ctx, "tok", now))
		at, ok, err := repo.LastVerified(ctx, "tok")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, now, at)

		now = now.Add(2 * time.Hour)
		_, ok, err = repo.LastVerified(ctx, "tok")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Forget", func(t *testing.T) {
		require.NoError(t, repo.MarkVerified(ctx, "tok", now))
		require.NoError(t, repo.ForgetVerified(ctx, "tok"))
		_, ok, _ := repo.LastVerified(ctx, "tok")
		assert.False(t, ok)
	})

	t.Run("RateLimitWindow", func(t *testing.T) {
		allowed, _ := repo.CheckRateLimit(ctx, "k", 2, time.Minute)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, "k", 2, time.Minute)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, "k", 2, time.Minute)
		assert.False(t, allowed)

		now = now.Add(2 * time.Minute)
		allowed, _ = repo.CheckRateLimit(ctx, "k", 2, time.Minute)
		assert.True(t, allowed)

		require.NoError(t, repo.ResetRateLimit(ctx, "k"))
		allowed, _ = repo.CheckRateLimit(ctx, "k", 1, time.Minute)
		assert.True(t, allowed)
	})
}
