// Package cache stores rendered pages keyed by user.
package cache

import (
	"context"
	"strconv"
	"time"
)

// Store is a byte-oriented cache backend. Get reports a miss with ok=false
// and a nil error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// DetailsKey is the cache key of a user's rendered details page.
func DetailsKey(userID int64) string {
	return "details:" + strconv.FormatInt(userID, 10)
}
