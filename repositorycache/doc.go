// Package repositorycache stores typed values in a cache.CacheService.
//
// A Lookaside[K, T] owns one namespace of keys ("account_snapshot::42") and
// keeps values encoded with msgpack so that a cached value can never be
// mutated by a caller holding an earlier copy.
//
// It deliberately has no write-through behaviour. The owner of the system of
// record decides when to Put (after a successful write) and when to Evict
// (after a delete):
//
//	snapshots := repositorycache.New[int64, model.Snapshot](svc, keys,
//		repositorycache.WithNamespace("account_snapshot"),
//		repositorycache.WithLogger(logger),
//	)
//
//	snap, hit, err := snapshots.ReadThrough(ctx, id, func(ctx context.Context) (model.Snapshot, error) {
//		return loadFromStore(ctx, id)
//	})
//
// ReadThrough and Get never fail because of the cache itself on the read
// path: backend errors and undecodable entries are logged and treated as
// misses. Put, Evict and Purge return errors in the CategoryExternal
// category; callers decide whether to surface or absorb them.
package repositorycache
