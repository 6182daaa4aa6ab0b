// Package cache defines the look-aside cache contract used in front of the
// account store, the key serializer that names entries, and the
// configuration that selects a backend.
//
// # Overview
//
//   - CacheService: Get/Set/Delete plus GetOrFetch for read-through lookups
//   - KeySerializer: builds "namespace::arg" keys
//   - Config: chooses between the sturdyc (default) and ttlcache backends
//
// Every entry written through a service shares the service TTL. Nothing in
// the cache is authoritative; callers rebuild entries from the store on a
// miss and overwrite them after a write.
//
// # Basic Usage
//
//	svc, err := cache.NewCacheService(cache.DefaultConfig())
//	keys := cache.NewDefaultKeySerializer()
//
//	key := keys.SerializeKey("account_snapshot", int64(42)) // "account_snapshot::42"
//	_ = svc.Set(ctx, key, encoded)
//
// Read-through with a typed loader:
//
//	departments, err := cache.GetOrFetch(ctx, svc, "departments", func(ctx context.Context) ([]model.Department, error) {
//		return store.Departments().List(ctx)
//	})
//
// # Invalidation
//
// Keys share their namespace as a prefix, so DeleteByPrefix(ctx,
// "account_snapshot::") drops every account entry. Both backends implement
// it by scanning keys; keep it off hot paths.
//
// For typed snapshot storage on top of a CacheService see the
// repositorycache package.
package cache
