// Package di wires the process-wide handles of the accounts service. Every
// handle is created once by NewContainer and released by Close.
package di

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-accounts/accounts"
	"github.com/goliatone/go-accounts/auth"
	"github.com/goliatone/go-accounts/bootstrap"
	"github.com/goliatone/go-accounts/cache"
	"github.com/goliatone/go-accounts/config"
	"github.com/goliatone/go-accounts/internal/httpapi"
	"github.com/goliatone/go-accounts/internal/logging"
	"github.com/goliatone/go-accounts/internal/metrics"
	"github.com/goliatone/go-accounts/internal/searchinfra"
	"github.com/goliatone/go-accounts/internal/storeinfra"
	"github.com/goliatone/go-accounts/search"
)

const gaugeTimeout = 2 * time.Second

// Container holds the singletons of a running process.
type Container struct {
	config        *config.Config
	logger        *zap.Logger
	store         *storeinfra.BunStore
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	index         search.Index
	indexer       *search.Indexer
	metrics       *metrics.Registry
	hasher        auth.Hasher
	accounts      *accounts.Service
}

// Option customizes a Container.
type Option func(*Container)

// WithLogger replaces the logger built from the log section.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		c.logger = logger
	}
}

// NewContainer validates cfg and opens every handle: logger, store, cache,
// search index and indexer, metrics and the accounts service. Handles opened
// before a failure are closed again.
func NewContainer(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c := &Container{config: cfg}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.build(ctx); err != nil {
		_ = c.Close(context.Background())
		return nil, err
	}
	return c, nil
}

// NewContainerWithDefaults builds a container from config.Default.
func NewContainerWithDefaults(ctx context.Context, opts ...Option) (*Container, error) {
	return NewContainer(ctx, config.Default(), opts...)
}

func (c *Container) build(ctx context.Context) error {
	cfg := c.config

	if c.logger == nil {
		logger, err := logging.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		c.logger = logger
	}

	st, err := storeinfra.Open(ctx, storeinfra.Config{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	c.store = st

	svc, err := cache.NewCacheService(cache.FromSettings(cfg.Cache))
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	c.cacheService = svc
	c.keySerializer = cache.NewDefaultKeySerializer()

	c.index = c.openIndex(ctx)

	c.metrics = metrics.New()
	c.indexer = search.NewIndexer(c.index, search.IndexerConfig{
		QueueSize:  cfg.Search.QueueSize,
		Workers:    cfg.Search.Workers,
		JobTimeout: cfg.Search.JobTimeout,
	}, c.logger.Named("indexer"), c.metrics.IndexerHooks())
	// The indexer outlives the caller's context; Close drains it.
	c.indexer.Start(context.Background())

	c.hasher = auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	c.accounts = accounts.New(accounts.Dependencies{
		Store:         c.store,
		Cache:         c.cacheService,
		KeySerializer: c.keySerializer,
		Index:         c.index,
		Queue:         c.indexer,
		Hasher:        c.hasher,
		Metrics:       c.metrics,
		Logger:        c.logger,
		AdminUsername: cfg.Auth.AdminUsername,
	})

	return c.metrics.RegisterAccountsGauge(c.countAccounts)
}

// openIndex never fails: the index is best-effort, so an unreachable
// backend is logged and the service starts degraded.
func (c *Container) openIndex(ctx context.Context) search.Index {
	cfg := c.config.Search
	logger := c.logger.Named("search")

	switch cfg.Backend {
	case config.SearchMongo:
		idx, err := searchinfra.DialMongoIndex(searchinfra.MongoConfig{
			URI:            cfg.Mongo.URI,
			Database:       cfg.Mongo.Database,
			Collection:     cfg.Mongo.Collection,
			ConnectTimeout: cfg.Mongo.ConnectTimeout,
			CandidateLimit: int64(cfg.Mongo.CandidateLimit),
		})
		if err != nil {
			logger.Warn("mongo index unusable, search disabled", zap.Error(err))
			return search.Disabled{}
		}
		if err := idx.EnsureSchema(ctx); err != nil {
			logger.Warn("mongo index unreachable, starting degraded", zap.Error(err))
		}
		return idx
	case config.SearchDisabled:
		return search.Disabled{}
	default:
		return searchinfra.NewMemoryIndex()
	}
}

// WarmIndex rebuilds a volatile in-process index from the store. Other
// backends keep their documents across restarts and are left alone.
// Failures are logged; search stays degraded until the next reindex.
func (c *Container) WarmIndex(ctx context.Context) {
	if _, ok := c.index.(*searchinfra.MemoryIndex); !ok {
		return
	}

	n, err := c.accounts.Reindex(ctx)
	if err != nil {
		c.logger.Warn("index warm-up failed", zap.Int("indexed", n), zap.Error(err))
		return
	}
	c.logger.Info("index warmed", zap.Int("indexed", n))
}

func (c *Container) countAccounts() float64 {
	ctx, cancel := context.WithTimeout(context.Background(), gaugeTimeout)
	defer cancel()

	n, err := c.accounts.Count(ctx)
	if err != nil {
		c.logger.Warn("count accounts failed", zap.Error(err))
		return 0
	}
	return float64(n)
}

// Config returns the configuration the container was built from.
func (c *Container) Config() *config.Config {
	return c.config
}

func (c *Container) Logger() *zap.Logger {
	return c.logger
}

func (c *Container) Store() *storeinfra.BunStore {
	return c.store
}

// CacheService returns the singleton cache service instance.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// KeySerializer returns the singleton key serializer instance.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

func (c *Container) Metrics() *metrics.Registry {
	return c.metrics
}

// Accounts returns the consistency coordinator. It is the only writer of the
// cache and the index.
func (c *Container) Accounts() *accounts.Service {
	return c.accounts
}

// Reconciler builds the bootstrap reconciler from the bootstrap and auth
// sections. It refreshes the cache and index through Accounts.
func (c *Container) Reconciler() *bootstrap.Reconciler {
	b := c.config.Bootstrap
	return bootstrap.New(c.store, c.hasher, c.accounts, bootstrap.Config{
		AdminUsername:      c.config.Auth.AdminUsername,
		AdminPassword:      b.AdminPassword,
		DefaultPassword:    b.DefaultPassword,
		ResetAdminPassword: b.ResetAdminPassword,
		SeedSampleData:     b.SeedSampleData,
	}, c.logger)
}

// Router builds the HTTP handler with /metrics mounted.
func (c *Container) Router() http.Handler {
	return httpapi.NewRouter(httpapi.Deps{
		Accounts:       c.accounts,
		Health:         c.store,
		Metrics:        c.metrics,
		MetricsHandler: c.metrics.Handler(),
		Logger:         c.logger,
		Realm:          c.config.Auth.Realm,
		CORSOrigins:    c.config.HTTP.CORSOrigins,
	})
}

// Close releases the handles in reverse order of creation. Pending index
// updates are drained before the index is closed.
func (c *Container) Close(ctx context.Context) error {
	var errs []error

	if c.indexer != nil {
		c.indexer.Close()
	}
	if c.index != nil {
		if err := c.index.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close index: %w", err))
		}
	}
	if closer, ok := c.cacheService.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}

	return errors.Join(errs...)
}
