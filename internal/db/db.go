package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	KVStore
	HashStore
	SetStore
	Locker
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, keys ...string) error
	// IncrBy atomically increments a key and returns the new value.
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
}

// HashSetItem holds a single key+fields pair for pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// SetStore provides unordered set operations.
type SetStore interface {
	// SAdd adds members and returns how many were newly added.
	SAdd(ctx context.Context, key string, members ...string) (int64, error)
	// SPopN removes and returns up to count random members.
	SPopN(ctx context.Context, key string, count int64) ([]string, error)
	SCard(ctx context.Context, key string) (int64, error)
}

// Locker provides token-fenced distributed locks.
//
// A lock is a volatile key holding the owner's token. Refresh and
// release only act when the stored token matches, so an expired lock
// taken over by another instance is never touched.
type Locker interface {
	// AcquireLock takes the lock when free. Returns false when held
	// by someone else.
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	// RefreshLock extends the TTL of a lock still owned by token.
	// Returns false when ownership was lost.
	RefreshLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	// ReleaseLock deletes a lock owned by token. Returns ErrLockNotHeld
	// when the token no longer owns it.
	ReleaseLock(ctx context.Context, key, token string) error
}
