// Package cache provides a redis-backed cache for wishlist listings. The
// cache holds a user's full wishlist overview and is invalidated on every
// mutation, so readers see their own writes on the next fetch.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jfchinemerem/Threesixteen/internal/domain"
)

const defaultTTL = 5 * time.Minute

// WishlistCache caches per-user wishlist listings in redis.
type WishlistCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewWishlistCache creates a cache with the given TTL. A zero TTL falls back
// to the default of 5 minutes.
func NewWishlistCache(client *redis.Client, ttl time.Duration) *WishlistCache {
	if ttl == 0 {
		ttl = defaultTTL
	}
	return &WishlistCache{client: client, ttl: ttl}
}

func listKey(userID string) string {
	return "wishlists:user:" + userID
}

// GetList returns the cached listing for the user, or (nil, nil) on a miss.
func (c *WishlistCache) GetList(ctx context.Context, userID string) ([]*domain.Wishlist, error) {
	data, err := c.client.Get(ctx, listKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached wishlists: %w", err)
	}

	var wishlists []*domain.Wishlist
	if err := json.Unmarshal(data, &wishlists); err != nil {
		return nil, fmt.Errorf("decode cached wishlists: %w", err)
	}

	return wishlists, nil
}

// SetList stores the listing for the user.
func (c *WishlistCache) SetList(ctx context.Context, userID string, wishlists []*domain.Wishlist) error {
	data, err := json.Marshal(wishlists)
	if err != nil {
		return fmt.Errorf("encode wishlists for cache: %w", err)
	}

	if err := c.client.Set(ctx, listKey(userID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached wishlists: %w", err)
	}

	return nil
}

// Invalidate drops the user's cached listing.
func (c *WishlistCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, listKey(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate cached wishlists: %w", err)
	}
	return nil
}
