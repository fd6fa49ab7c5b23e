// Package cache defines common error types used throughout the caching layer.
package cache

import "errors"

// Common cache errors
var (
	// ErrCacheMiss indicates the requested key was not found in cache.
	// This is not necessarily an error condition - it's expected behavior
	// when a key hasn't been cached yet or its TTL has lapsed.
	//
	// Example usage:
	//
	//	err := catalogCache.Get(ctx, key, &products)
	//	if err == cache.ErrCacheMiss {
	//	    // Fetch the catalog from the backend
	//	} else if err != nil {
	//	    // Handle other errors
	//	}
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheInvalidation indicates cache invalidation failed.
	// Raised when a catalog refresh cannot drop the stale entry, usually a
	// Redis connection issue.
	ErrCacheInvalidation = errors.New("cache invalidation failed")
)
