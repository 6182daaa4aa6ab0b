package cacheinfra

import (
	"context"
	"strings"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"
)

// TTLService adapts jellydator/ttlcache to cache.CacheService. It runs a
// background janitor that must be stopped with Close.
type TTLService struct {
	cache *ttlcache.Cache[string, any]
	group singleflight.Group
}

// NewTTLService validates cfg, builds the cache and starts its janitor.
func NewTTLService(cfg Config) (*TTLService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := ttlcache.New[string, any](
		ttlcache.WithTTL[string, any](cfg.TTL),
		ttlcache.WithCapacity[string, any](uint64(cfg.Capacity)),
	)
	go c.Start()

	return &TTLService{cache: c}, nil
}

// GetOrFetch collapses concurrent misses for the same key into one fetch.
func (s *TTLService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}

	if item := s.cache.Get(key); item != nil {
		return item.Value(), nil
	}

	value, err, _ := s.group.Do(key, func() (any, error) {
		value, err := callFetchFn(ctx, fetchFn)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, value, ttlcache.DefaultTTL)
		return value, nil
	})
	return value, err
}

func (s *TTLService) Get(ctx context.Context, key string) (any, bool, error) {
	item := s.cache.Get(key)
	if item == nil {
		return nil, false, nil
	}
	return item.Value(), true, nil
}

func (s *TTLService) Set(ctx context.Context, key string, value any) error {
	s.cache.Set(key, value, ttlcache.DefaultTTL)
	return nil
}

func (s *TTLService) Delete(ctx context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

func (s *TTLService) DeleteByPrefix(ctx context.Context, prefix string) error {
	for _, key := range s.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			s.cache.Delete(key)
		}
	}
	return nil
}

// Size returns the number of live entries.
func (s *TTLService) Size() int {
	return s.cache.Len()
}

// Close stops the expiry janitor.
func (s *TTLService) Close() error {
	s.cache.Stop()
	return nil
}
