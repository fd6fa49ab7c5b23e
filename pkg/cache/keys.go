// Package cache provides standardized cache key generation functions.
// Using consistent key naming helps avoid collisions and makes cache
// management easier. All keys follow the pattern: "prefix:identifier".
package cache

import "fmt"

// Durable terminal keys. These three keys survive console restarts and are
// versioned independently so a format change can invalidate one without
// touching the others. The names are fixed by the persistence contract with
// earlier console generations; do not rename them.
const (
	// KeySessionToken holds the backend bearer token as a plain string.
	KeySessionToken = "ckryptbit:session_token:v2"

	// KeyCurrentUser holds the JSON-serialized authenticated user snapshot.
	KeyCurrentUser = "ckryptbit:current_user:v2"

	// KeySecureRelay holds the secure relay activation flag ("true"/"false").
	KeySecureRelay = "ckryptbit:secure_relay:v1"
)

// Key prefixes for volatile cache types.
const (
	CatalogPrefix   = "catalog:"
	LockPrefix      = "lock:"
	RateLimitPrefix = "ratelimit:"
)

// CatalogKey returns the cache key for the full product catalog snapshot.
// The catalog is cached as one unit because the storefront always renders
// the complete listing.
//
// Example: "catalog:products"
func CatalogKey() string {
	return CatalogPrefix + "products"
}

// CheckoutLockKey generates a lock key guarding checkout for a user.
// Used with SetNX so a second checkout cannot start while one is in flight.
//
// Example: "lock:checkout:u-1138"
func CheckoutLockKey(userID string) string {
	return fmt.Sprintf("%scheckout:%s", LockPrefix, userID)
}

// RateLimitKey generates a key for per-client rate limit counters.
// Counters are scoped by endpoint so auth endpoints can be limited
// independently of the rest of the surface.
//
// Example: "ratelimit:login:203.0.113.7"
func RateLimitKey(endpoint, clientIP string) string {
	return fmt.Sprintf("%s%s:%s", RateLimitPrefix, endpoint, clientIP)
}

// CatalogPattern returns a glob pattern matching all catalog cache keys.
// Use with DeletePattern after an admin mutates the product list.
//
// Example: "catalog:*"
func CatalogPattern() string {
	return CatalogPrefix + "*"
}
