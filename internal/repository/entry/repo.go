package entry

import (
	"context"
	"fmt"
	"strings"

	"github.com/Frischifrisch/mediathekviewweb/internal/db"
	"github.com/Frischifrisch/mediathekviewweb/internal/domain"
	domentry "github.com/Frischifrisch/mediathekviewweb/internal/domain/entry"
)

const (
	keyPrefix = domain.KeyPrefix + "entry:"

	// pendingKey lives outside the entry key prefix so Scan never picks it up.
	pendingKey = domain.KeyPrefix + "pending-index"
)

// store is the consumer interface for entries (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, keys ...string) error
	SAdd(ctx context.Context, key string, members ...string) (int64, error)
	SPopN(ctx context.Context, key string, count int64) ([]string, error)
	SCard(ctx context.Context, key string) (int64, error)
}

// Repo stores film list entries as flat Redis hashes, one key per entry,
// plus a set of entry IDs waiting to be indexed.
type Repo struct {
	store store
}

// New creates an entry repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// UpsertBatch writes entries in a single pipelined round trip.
func (r *Repo) UpsertBatch(ctx context.Context, entries []domentry.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, db.HashSetItem{Key: entryKey(e.ID()), Fields: buildHashFields(e)})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert batch of %d: %w", len(items), err)
	}
	return nil
}

// Get returns one entry by ID.
func (r *Repo) Get(ctx context.Context, id string) (domentry.Entry, error) {
	key := entryKey(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domentry.Entry{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		// HGETALL replies an empty map for missing keys.
		return domentry.Entry{}, domain.ErrEntryNotFound
	}
	return parseHashFields(id, m), nil
}

// GetMulti returns the entries for ids in order, silently skipping IDs
// that have disappeared since they were looked up.
func (r *Repo) GetMulti(ctx context.Context, ids []string) ([]domentry.Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = entryKey(id)
	}
	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi: %w", err)
	}
	entries := make([]domentry.Entry, 0, len(ids))
	for i, m := range maps {
		if len(m) == 0 {
			continue
		}
		entries = append(entries, parseHashFields(ids[i], m))
	}
	return entries, nil
}

// DeleteBatch removes entries that left the film list.
func (r *Repo) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = entryKey(id)
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("delete batch of %d: %w", len(keys), err)
	}
	return nil
}

// IDs scans all stored entry IDs.
func (r *Repo) IDs(ctx context.Context) ([]string, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan entries: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, keyPrefix))
	}
	return ids, nil
}

// QueuePending marks entry IDs as waiting for indexing.
func (r *Repo) QueuePending(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.store.SAdd(ctx, pendingKey, ids...); err != nil {
		return fmt.Errorf("queue %d pending: %w", len(ids), err)
	}
	return nil
}

// DrainPending pops up to max queued entry IDs.
func (r *Repo) DrainPending(ctx context.Context, max int64) ([]string, error) {
	ids, err := r.store.SPopN(ctx, pendingKey, max)
	if err != nil {
		return nil, fmt.Errorf("drain pending: %w", err)
	}
	return ids, nil
}

// PendingCount reports how many entry IDs wait for indexing.
func (r *Repo) PendingCount(ctx context.Context) (int64, error) {
	n, err := r.store.SCard(ctx, pendingKey)
	if err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return n, nil
}

// ClearPending empties the indexing queue.
func (r *Repo) ClearPending(ctx context.Context) error {
	if err := r.store.Del(ctx, pendingKey); err != nil {
		return fmt.Errorf("clear pending: %w", err)
	}
	return nil
}

func entryKey(id string) string {
	return keyPrefix + id
}
