package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"github.com/Frischifrisch/mediathekviewweb/internal/db"
)

// Token-fenced lock scripts: both only act when the stored token still
// matches, so a lock lost to expiry is never touched.
const (
	refreshScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("pexpire", KEYS[1], ARGV[2]) else return 0 end`
	releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
)

// AcquireLock takes the lock via SET NX. Returns false when another
// token holds it.
func (s *Store) AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	cmd := s.b().Set().Key(key).Value(token).Nx().Ex(ttl).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return false, nil
		}
		return false, &db.Error{Op: db.OpSet, Err: err}
	}
	return true, nil
}

// RefreshLock extends the TTL of a lock still owned by token.
// Returns false when ownership was lost.
func (s *Store) RefreshLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	cmd := s.b().Eval().Script(refreshScript).Numkeys(1).Key(key).
		Arg(token, formatMillis(ttl)).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpEval, Err: err}
	}
	return n == 1, nil
}

// ReleaseLock deletes a lock owned by token. Returns db.ErrLockNotHeld
// when the token no longer owns it.
func (s *Store) ReleaseLock(ctx context.Context, key, token string) error {
	cmd := s.b().Eval().Script(releaseScript).Numkeys(1).Key(key).Arg(token).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return &db.Error{Op: db.OpEval, Err: err}
	}
	if n == 0 {
		return db.ErrLockNotHeld
	}
	return nil
}

func formatMillis(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}
