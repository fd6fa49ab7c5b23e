package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/database"
)

// SetupMiniRedis creates a miniredis instance for testing.
// Returns the miniredis server and a cleanup function.
func SetupMiniRedis(t *testing.T) (*miniredis.Miniredis, func()) {
	t.Helper()

	mr := miniredis.RunT(t)

	cleanup := func() {
		mr.Close()
	}

	return mr, cleanup
}

// NewTestStore creates a TerminalStore connected to miniredis for testing.
func NewTestStore(t *testing.T, mr *miniredis.Miniredis) *database.TerminalStore {
	t.Helper()

	return database.NewTerminalStoreFromClient(NewTestRedisClient(t, mr))
}

// NewTestRedisClient creates a Redis client connected to miniredis.
func NewTestRedisClient(t *testing.T, mr *miniredis.Miniredis) *redis.Client {
	t.Helper()

	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
		DB:   0,
	})
}

// FlushRedis clears all data from miniredis.
func FlushRedis(t *testing.T, mr *miniredis.Miniredis) {
	t.Helper()
	mr.FlushAll()
}
