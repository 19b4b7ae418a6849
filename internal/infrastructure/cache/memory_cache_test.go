package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_RoundTrip(t *testing.T) {
	c := NewMemoryCache()
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "license:1", cachedLicense{ID: "1", Status: "SUBMITTED"}, time.Minute))

	got, ok, err := Get[cachedLicense](ctx, c, "license:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "SUBMITTED", got.Status)

	// mutating the returned value must not leak into the cache
	got.Status = "CHANGED"
	again, _, _ := Get[cachedLicense](ctx, c, "license:1")
	assert.Equal(t, "SUBMITTED", again.Status)

	require.NoError(t, c.Delete(ctx, "license:1"))
	_, ok, err = Get[cachedLicense](ctx, c, "license:1")
	require.NoError(t, err)
	assert.False(t, ok)

	hits, misses := c.GetStats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(WithCleanupInterval(10 * time.Millisecond))
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "stats:global", 1, 20*time.Millisecond))
	assert.Equal(t, 1, c.Len())

	assert.Eventually(t, func() bool {
		var v int
		ok, _ := c.Get(ctx, "stats:global", &v)
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryCache_DeleteByPattern(t *testing.T) {
	c := NewMemoryCache()
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	for _, k := range []string{"licenses:type:NIB", "licenses:type:SIUP", "licenses:status:DRAFT", "user:1:licenses"} {
		require.NoError(t, c.Set(ctx, k, k, time.Minute))
	}

	n, err := c.DeleteByPattern(ctx, "licenses:type:*")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 2, c.Len())

	_, err = c.DeleteByPattern(ctx, "[")
	assert.Error(t, err)
}

func TestMemoryCache_CloseIsIdempotent(t *testing.T) {
	c := NewMemoryCache()
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestNoopCache(t *testing.T) {
	c := NewNoopCache()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", 1, time.Minute))
	var v int
	ok, err := c.Get(ctx, "k", &v)
	assert.NoError(t, err)
	assert.False(t, ok)
}
