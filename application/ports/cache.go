package ports

import "context"

// Cache is a TTL key-value cache for read-mostly data such as the taxonomy
// tree. Implementations may evict at any time; callers must treat a miss as
// normal.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
