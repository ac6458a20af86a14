package redis

import (
	"context"

	"github.com/Frischifrisch/mediathekviewweb/internal/db"
)

// SAdd adds members to a set and returns how many were newly added.
func (s *Store) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	cmd := s.b().Sadd().Key(key).Member(members...).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpSAdd, Err: err}
	}
	return n, nil
}

// SPopN removes and returns up to count random members of a set.
func (s *Store) SPopN(ctx context.Context, key string, count int64) ([]string, error) {
	cmd := s.b().Spop().Key(key).Count(count).Build()
	members, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpSPop, Err: err}
	}
	return members, nil
}

// SCard returns the number of members in a set.
func (s *Store) SCard(ctx context.Context, key string) (int64, error) {
	cmd := s.b().Scard().Key(key).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpSCard, Err: err}
	}
	return n, nil
}
