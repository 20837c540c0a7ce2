// Package cache provides the TTL cache shared by the context aggregators.
// Keys are namespaced by caller identity and content category, e.g.
// "42:people" or "42:semantic:how is sarah doing".
package cache

import (
	"context"
	"fmt"
	"time"
)

// CacheService defines the cache service interface.
type CacheService interface {
	// Get retrieves a value from cache.
	// Returns: value, whether it exists
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value in cache.
	// ttl: expiration time
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Invalidate invalidates cache entries.
	// pattern: supports a trailing wildcard (user:123:*)
	Invalidate(ctx context.Context, pattern string) error
}

// Key builds a namespaced cache key for a user-scoped category.
func Key(userID int32, parts ...string) string {
	key := fmt.Sprintf("%d", userID)
	for _, part := range parts {
		key += ":" + part
	}
	return key
}
