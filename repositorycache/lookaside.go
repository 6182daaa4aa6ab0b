package repositorycache

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"go.uber.org/zap"

	"github.com/goliatone/go-accounts/cache"
)

// TextCodeUnavailable marks errors raised by the cache backend.
const TextCodeUnavailable = "DEPENDENCY_UNAVAILABLE"

// Lookaside stores values of type T keyed by K in a CacheService. Values
// are encoded with a Codec on the way in and decoded on the way out.
type Lookaside[K comparable, T any] struct {
	cache     cache.CacheService
	keys      cache.KeySerializer
	codec     Codec
	namespace string
	logger    *zap.Logger
}

// Option configures a Lookaside.
type Option func(*options)

type options struct {
	namespace string
	codec     Codec
	logger    *zap.Logger
}

// WithNamespace overrides the namespace derived from T.
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithCodec replaces the msgpack codec.
func WithCodec(c Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithLogger sets the logger used for absorbed cache errors.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New builds a Lookaside over svc.
func New[K comparable, T any](svc cache.CacheService, keys cache.KeySerializer, opts ...Option) *Lookaside[K, T] {
	o := options{codec: MsgpackCodec{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.namespace == "" {
		o.namespace = namespaceOf[T]()
	}

	return &Lookaside[K, T]{
		cache:     svc,
		keys:      keys,
		codec:     o.codec,
		namespace: o.namespace,
		logger:    o.logger.With(zap.String("namespace", o.namespace)),
	}
}

// Namespace returns the key prefix used for every entry.
func (l *Lookaside[K, T]) Namespace() string {
	return l.namespace
}

// Key returns the cache key for id.
func (l *Lookaside[K, T]) Key(id K) string {
	return l.keys.SerializeKey(l.namespace, id)
}

// Get returns the cached value for id. A corrupt entry is evicted and
// reported as a miss.
func (l *Lookaside[K, T]) Get(ctx context.Context, id K) (T, bool, error) {
	var zero T
	key := l.Key(id)

	raw, ok, err := l.cache.Get(ctx, key)
	if err != nil {
		return zero, false, unavailable(err, "get "+key)
	}
	if !ok {
		return zero, false, nil
	}

	data, isBytes := raw.([]byte)
	if !isBytes {
		l.dropCorrupt(ctx, key, fmt.Errorf("unexpected cached type %T", raw))
		return zero, false, nil
	}

	var value T
	if err := l.codec.Unmarshal(data, &value); err != nil {
		l.dropCorrupt(ctx, key, err)
		return zero, false, nil
	}
	return value, true, nil
}

// Put encodes value and overwrites the entry for id.
func (l *Lookaside[K, T]) Put(ctx context.Context, id K, value T) error {
	key := l.Key(id)

	data, err := l.codec.Marshal(value)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "encode cache entry "+key)
	}
	if err := l.cache.Set(ctx, key, data); err != nil {
		return unavailable(err, "set "+key)
	}
	return nil
}

// Evict removes the entry for id.
func (l *Lookaside[K, T]) Evict(ctx context.Context, id K) error {
	key := l.Key(id)
	if err := l.cache.Delete(ctx, key); err != nil {
		return unavailable(err, "delete "+key)
	}
	return nil
}

// Purge removes every entry in the namespace.
func (l *Lookaside[K, T]) Purge(ctx context.Context) error {
	if err := l.cache.DeleteByPrefix(ctx, l.namespace+cache.KeySeparator); err != nil {
		return unavailable(err, "purge "+l.namespace)
	}
	return nil
}

// ReadThrough returns the cached value for id, or calls load and caches its
// result. Cache failures are logged and treated as a miss; load errors are
// returned untouched and nothing is cached. hit reports whether the value
// came from the cache.
func (l *Lookaside[K, T]) ReadThrough(ctx context.Context, id K, load func(ctx context.Context) (T, error)) (value T, hit bool, err error) {
	value, hit, err = l.Get(ctx, id)
	if err != nil {
		l.logger.Warn("cache read failed, falling back to store", zap.Any("id", id), zap.Error(err))
	} else if hit {
		return value, true, nil
	}

	value, err = load(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}

	if err := l.Put(ctx, id, value); err != nil {
		l.logger.Warn("cache populate failed", zap.Any("id", id), zap.Error(err))
	}
	return value, false, nil
}

func (l *Lookaside[K, T]) dropCorrupt(ctx context.Context, key string, cause error) {
	l.logger.Warn("dropping undecodable cache entry", zap.String("key", key), zap.Error(cause))
	if err := l.cache.Delete(ctx, key); err != nil {
		l.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

func unavailable(err error, op string) error {
	return goerrors.Wrap(err, goerrors.CategoryExternal, "cache: "+op).
		WithTextCode(TextCodeUnavailable)
}
