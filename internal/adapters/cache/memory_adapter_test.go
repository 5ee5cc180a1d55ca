package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/telemedbooking/internal/domain/providers"
)

func TestMemoryAdapter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	cache := NewMemoryAdapter()
	cache.now = func() time.Time { return now }

	_, err := cache.Get(ctx, "missing")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, "doctor:1:schedules", []byte(`[]`), time.Minute))
	got, err := cache.Get(ctx, "doctor:1:schedules")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), got)

	now = now.Add(time.Minute)
	_, err = cache.Get(ctx, "doctor:1:schedules")
	assert.ErrorIs(t, err, providers.ErrCacheMiss, "entry must expire at its ttl")

	require.NoError(t, cache.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, cache.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, cache.Delete(ctx, "a", "b"))
	_, err = cache.Get(ctx, "a")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}
