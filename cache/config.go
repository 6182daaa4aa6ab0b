package cache

import (
	"time"

	"github.com/goliatone/go-accounts/config"
	"github.com/goliatone/go-accounts/internal/cacheinfra"
)

// Cache backends.
const (
	BackendSturdyc  = cacheinfra.BackendSturdyc
	BackendTTLCache = cacheinfra.BackendTTLCache
)

// Config sizes the snapshot cache. An empty Backend selects sturdyc.
type Config struct {
	Backend            string
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
}

// DefaultConfig holds 10k snapshots for a day.
func DefaultConfig() Config {
	d := cacheinfra.DefaultConfig()
	return Config{
		Backend:            d.Backend,
		Capacity:           d.Capacity,
		NumShards:          d.NumShards,
		TTL:                d.TTL,
		EvictionPercentage: d.EvictionPercentage,
	}
}

// FromSettings overlays the cache section of the service configuration on
// DefaultConfig. Zero values keep the default.
func FromSettings(s config.CacheConfig) Config {
	cfg := DefaultConfig()
	if s.Backend != "" {
		cfg.Backend = s.Backend
	}
	if s.Capacity > 0 {
		cfg.Capacity = s.Capacity
	}
	if s.NumShards > 0 {
		cfg.NumShards = s.NumShards
	}
	if s.TTL > 0 {
		cfg.TTL = s.TTL
	}
	if s.EvictionPercentage > 0 {
		cfg.EvictionPercentage = s.EvictionPercentage
	}
	return cfg
}

func (c Config) Validate() error {
	return c.internal().Validate()
}

// NewCacheService constructs the configured backend. The ttlcache backend
// runs a janitor goroutine; callers release it through io.Closer.
func NewCacheService(cfg Config) (CacheService, error) {
	in := cfg.internal()
	if in.Backend == BackendTTLCache {
		svc, err := cacheinfra.NewTTLService(in)
		if err != nil {
			return nil, err
		}
		return svc, nil
	}
	svc, err := cacheinfra.NewSturdycService(in)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (c Config) internal() cacheinfra.Config {
	backend := c.Backend
	if backend == "" {
		backend = BackendSturdyc
	}
	return cacheinfra.Config{
		Backend:            backend,
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
	}
}
