// Package database provides the console's durable terminal store on Redis.
// The store persists the small set of values that must survive a console
// restart: the backend session token, the authenticated user snapshot, and
// the secure relay flag. It also backs the distributed rate limit counters
// used by the HTTP surface.
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/models"
	ckcache "github.com/Krypt-Cyber/ckryptbit.xyz/pkg/cache"
	"github.com/Krypt-Cyber/ckryptbit.xyz/pkg/config"
	"github.com/Krypt-Cyber/ckryptbit.xyz/pkg/utils"
)

// TerminalStore wraps a Redis client for the console's durable state.
// Provides type-safe methods for:
//   - Session token persistence across restarts
//   - Authenticated user snapshot persistence
//   - Secure relay flag persistence
//   - Rate limiting per IP address
//
// The three durable keys are versioned independently (see pkg/cache key
// constants); everything else in Redis is volatile cache.
type TerminalStore struct {
	client *redis.Client // Underlying Redis client with connection pooling
	record OpRecorder
}

// OpRecorder receives the outcome of every terminal store operation.
// Wired to the Prometheus store metrics; nil disables recording.
type OpRecorder func(operation, status string, duration time.Duration)

// SetOpRecorder installs a recorder for store operation metrics.
// Must be called before the store is shared across goroutines.
func (s *TerminalStore) SetOpRecorder(r OpRecorder) {
	s.record = r
}

// observe reports one finished operation to the recorder.
// An absent key (redis.Nil) is a normal read outcome, not a failure.
func (s *TerminalStore) observe(operation string, start time.Time, err error) {
	if s.record == nil {
		return
	}
	status := "success"
	if err != nil && err != redis.Nil {
		status = "error"
	}
	s.record(operation, status, time.Since(start))
}

// NewTerminalStore creates a new Redis connection with automatic retry.
// Connection pool size comes from configuration; the connect is verified
// with exponential backoff so a console started before Redis still comes up.
//
// Retry configuration:
//   - Max attempts: 5
//   - Initial delay: 100ms
//   - Max delay: 3 seconds
//   - Total timeout: 30 seconds
//
// Example:
//
//	store, err := database.NewTerminalStore(&cfg.Redis)
//	if err != nil {
//	    log.Fatal().Err(err).Msg("Redis connection failed")
//	}
//	defer store.Close()
func NewTerminalStore(cfg *config.RedisConfig) (*TerminalStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	// Verify connection with retry
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	retryConfig := utils.StoreRetryConfig()
	retryConfig.MaxAttempts = 5
	retryConfig.InitialDelay = 100 * time.Millisecond
	retryConfig.MaxDelay = 3 * time.Second

	var lastErr error
	err := utils.Retry(ctx, retryConfig, func() error {
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pingCancel()

		if err := client.Ping(pingCtx).Err(); err != nil {
			lastErr = err
			log.Warn().Err(err).Msg("Failed to ping Redis, retrying...")
			return err
		}
		return nil
	})

	if err != nil {
		client.Close()
		if lastErr != nil {
			return nil, fmt.Errorf("failed to connect to Redis after retries: %w", lastErr)
		}
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info().Msg("Successfully connected to Redis")

	return &TerminalStore{client: client}, nil
}

// NewTerminalStoreFromClient wraps an existing Redis client.
// Used by tests to back the store with miniredis.
func NewTerminalStoreFromClient(client *redis.Client) *TerminalStore {
	return &TerminalStore{client: client}
}

// Close closes the Redis connection and releases all resources.
// Should be called when shutting down the console.
func (s *TerminalStore) Close() error {
	return s.client.Close()
}

// Client returns the underlying Redis client for advanced operations.
// The catalog cache layer is built on top of this client.
//
// Example:
//
//	catalogCache := cache.NewCache(store.Client())
func (s *TerminalStore) Client() *redis.Client {
	return s.client
}

// Ping checks if Redis is alive and responsive.
// Used by health check endpoints to verify Redis availability.
func (s *TerminalStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SaveSessionToken persists the backend bearer token.
// The token has no TTL in Redis; its lifetime is governed by the backend,
// and the session service clears it on logout or rejection.
//
// Example:
//
//	if err := store.SaveSessionToken(ctx, result.Token); err != nil {
//	    log.Warn().Err(err).Msg("Token not persisted, session will not survive restart")
//	}
func (s *TerminalStore) SaveSessionToken(ctx context.Context, token string) error {
	start := time.Now()
	err := s.client.Set(ctx, ckcache.KeySessionToken, token, 0).Err()
	s.observe("SET", start, err)
	if err != nil {
		return fmt.Errorf("failed to save session token: %w", err)
	}
	return nil
}

// LoadSessionToken retrieves the persisted backend bearer token.
// Returns an empty string with no error when no token is stored; an absent
// token simply means the console starts unauthenticated.
func (s *TerminalStore) LoadSessionToken(ctx context.Context) (string, error) {
	start := time.Now()
	token, err := s.client.Get(ctx, ckcache.KeySessionToken).Result()
	s.observe("GET", start, err)
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load session token: %w", err)
	}
	return token, nil
}

// SaveCurrentUser persists the authenticated user snapshot as JSON.
// The snapshot is restored as-is on startup; the backend exposes no session
// introspection endpoint, so it stays authoritative until the next login or
// until the backend rejects the stored token mid-session.
func (s *TerminalStore) SaveCurrentUser(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user snapshot: %w", err)
	}
	start := time.Now()
	err = s.client.Set(ctx, ckcache.KeyCurrentUser, data, 0).Err()
	s.observe("SET", start, err)
	if err != nil {
		return fmt.Errorf("failed to save user snapshot: %w", err)
	}
	return nil
}

// LoadCurrentUser retrieves the persisted user snapshot.
// Returns (nil, nil) when no snapshot is stored. A snapshot that fails to
// decode is treated as absent and deleted, since a corrupt snapshot must
// never produce a phantom authenticated session.
func (s *TerminalStore) LoadCurrentUser(ctx context.Context) (*models.User, error) {
	start := time.Now()
	data, err := s.client.Get(ctx, ckcache.KeyCurrentUser).Bytes()
	s.observe("GET", start, err)
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user snapshot: %w", err)
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		log.Warn().Err(err).Msg("Corrupt user snapshot, discarding")
		if delErr := s.client.Del(ctx, ckcache.KeyCurrentUser).Err(); delErr != nil {
			log.Warn().Err(delErr).Msg("Failed to discard corrupt user snapshot")
		}
		return nil, nil
	}
	return &user, nil
}

// SetSecureRelay persists the secure relay activation flag.
// The flag is stored as "true"/"false" for compatibility with earlier
// console generations that stored it as a string.
func (s *TerminalStore) SetSecureRelay(ctx context.Context, active bool) error {
	value := "false"
	if active {
		value = "true"
	}
	start := time.Now()
	err := s.client.Set(ctx, ckcache.KeySecureRelay, value, 0).Err()
	s.observe("SET", start, err)
	if err != nil {
		return fmt.Errorf("failed to save secure relay flag: %w", err)
	}
	return nil
}

// SecureRelayActive reports whether the secure relay flag is set.
// An absent key reads as inactive. Any stored value other than the literal
// string "true" also reads as inactive.
func (s *TerminalStore) SecureRelayActive(ctx context.Context) (bool, error) {
	start := time.Now()
	value, err := s.client.Get(ctx, ckcache.KeySecureRelay).Result()
	s.observe("GET", start, err)
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load secure relay flag: %w", err)
	}
	return value == "true", nil
}

// ClearSession removes the session token and user snapshot.
// Called on logout and whenever the backend rejects the stored token.
// The secure relay flag is intentionally left untouched; relay activation
// belongs to the terminal, not to any one session.
func (s *TerminalStore) ClearSession(ctx context.Context) error {
	start := time.Now()
	err := s.client.Del(ctx, ckcache.KeySessionToken, ckcache.KeyCurrentUser).Err()
	s.observe("DEL", start, err)
	if err != nil {
		return fmt.Errorf("failed to clear session keys: %w", err)
	}
	return nil
}

// IncrementRateLimit increments the rate limit counter for an IP+endpoint.
// Implements a fixed window rate limiter with automatic expiration.
//
// Behavior:
//   - First request: Sets counter to 1 and starts expiry timer
//   - Subsequent requests: Increments counter
//   - After window expires: Counter resets automatically
//
// Returns the current count (including this request).
//
// Example:
//
//	count, err := store.IncrementRateLimit(ctx, "203.0.113.42", "login", time.Minute)
//	if count > 30 {
//	    return errors.New("rate limit exceeded")
//	}
func (s *TerminalStore) IncrementRateLimit(ctx context.Context, ip, endpoint string, window time.Duration) (int64, error) {
	key := ckcache.RateLimitKey(endpoint, ip)

	start := time.Now()
	count, err := s.client.Incr(ctx, key).Result()
	s.observe("INCR", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	// Set expiry on first request
	if count == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, fmt.Errorf("failed to set rate limit expiry: %w", err)
		}
	}

	return count, nil
}
