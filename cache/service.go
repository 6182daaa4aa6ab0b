package cache

import (
	"context"
	"fmt"
)

// KeySerializer builds cache keys from a namespace and arguments.
type KeySerializer interface {
	SerializeKey(namespace string, args ...any) string
}

// FetchFn loads a value on a cache miss.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService is a look-aside cache with a fixed TTL per service. Values
// are never authoritative: callers must be able to rebuild any entry from
// the system of record.
type CacheService interface {
	// GetOrFetch returns the cached value for key or runs fetchFn, stores its
	// result and returns it. fetchFn must be a func(context.Context) (T, error).
	GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error)

	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) (any, bool, error)

	// Set stores value under key, replacing any previous entry. The entry
	// expires after the service TTL.
	Set(ctx context.Context, key string, value any) error

	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// GetOrFetch is the typed form of CacheService.GetOrFetch.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetchFn FetchFn[T]) (T, error) {
	var zero T

	value, err := service.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetchFn(ctx)
	})
	if err != nil {
		return zero, err
	}

	if value == nil {
		return zero, nil
	}

	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("cache: unexpected value type %T for key %q", value, key)
	}
	return typed, nil
}
