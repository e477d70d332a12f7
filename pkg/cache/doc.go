// Package cache provides an optional Redis-backed cache for raw range pages.
//
// The source client consults the cache before each range request and stores
// every successful (200) body. Entries expire after the upstream Expires
// header or, when the upstream sends none, after the configured default TTL.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient, 5*time.Minute)
//
//	key := cache.Key{Endpoint: "/level2", Start: 0, End: 1000}
//
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch from upstream, then:
//		_ = manager.Set(ctx, key, cache.NewEntry(body, resp.Header, manager.DefaultTTL()))
//	}
//
// # Metrics
//
//   - source_cache_hits_total (Counter)
//   - source_cache_misses_total (Counter)
//   - source_cache_errors_total{operation} (Counter)
//
// Cache errors are never fatal for a scan: the client logs them and goes to
// the upstream instead.
package cache
