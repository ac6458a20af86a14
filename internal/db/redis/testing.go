package redis

import "github.com/redis/rueidis"

// NewStoreForTest wraps a caller-supplied client, usually a rueidis
// mock, in a Store. Test wiring only.
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c}
}
