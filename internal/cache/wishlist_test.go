package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfchinemerem/Threesixteen/internal/domain"
)

func newCacheTestFixture(t *testing.T) (*WishlistCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewWishlistCache(client, time.Minute), mr
}

func sampleWishlists() []*domain.Wishlist {
	return []*domain.Wishlist{
		{
			ID:     "w-1",
			Title:  "Birthday",
			UserID: "u-1",
			Items:  []*domain.Item{{ID: "i-1", WishlistID: "w-1", Name: "Headphones", Price: 249.99}},
		},
		{ID: "w-2", Title: "Wedding", UserID: "u-1", Items: []*domain.Item{}},
	}
}

func TestWishlistCache_Miss(t *testing.T) {
	cache, _ := newCacheTestFixture(t)

	got, err := cache.GetList(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWishlistCache_SetGetRoundTrip(t *testing.T) {
	cache, _ := newCacheTestFixture(t)
	ctx := context.Background()

	require.NoError(t, cache.SetList(ctx, "u-1", sampleWishlists()))

	got, err := cache.GetList(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Birthday", got[0].Title)
	require.Len(t, got[0].Items, 1)
	assert.InDelta(t, 249.99, got[0].Items[0].Price, 0.001)
}

func TestWishlistCache_Invalidate(t *testing.T) {
	cache, _ := newCacheTestFixture(t)
	ctx := context.Background()

	require.NoError(t, cache.SetList(ctx, "u-1", sampleWishlists()))
	require.NoError(t, cache.Invalidate(ctx, "u-1"))

	got, err := cache.GetList(ctx, "u-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWishlistCache_TTLExpiry(t *testing.T) {
	cache, mr := newCacheTestFixture(t)
	ctx := context.Background()

	require.NoError(t, cache.SetList(ctx, "u-1", sampleWishlists()))
	mr.FastForward(2 * time.Minute)

	got, err := cache.GetList(ctx, "u-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWishlistCache_PerUserIsolation(t *testing.T) {
	cache, _ := newCacheTestFixture(t)
	ctx := context.Background()

	require.NoError(t, cache.SetList(ctx, "u-1", sampleWishlists()))

	got, err := cache.GetList(ctx, "u-2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWishlistCache_EmptyListIsCached(t *testing.T) {
	cache, _ := newCacheTestFixture(t)
	ctx := context.Background()

	require.NoError(t, cache.SetList(ctx, "u-1", []*domain.Wishlist{}))

	got, err := cache.GetList(ctx, "u-1")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
