package importer

import (
	"context"
	"time"

	"github.com/Frischifrisch/mediathekviewweb/internal/domain"
	"github.com/Frischifrisch/mediathekviewweb/internal/domain/entry"
)

// Fetcher downloads the raw film list. A non-empty etag turns the
// download into a conditional GET.
type Fetcher interface {
	Fetch(ctx context.Context, etag string) (data []byte, newETag string, err error)
}

// EntryStore persists entries and the pending-index queue.
type EntryStore interface {
	UpsertBatch(ctx context.Context, entries []entry.Entry) error
	DeleteBatch(ctx context.Context, ids []string) error
	GetMulti(ctx context.Context, ids []string) ([]entry.Entry, error)
	IDs(ctx context.Context) ([]string, error)
	QueuePending(ctx context.Context, ids ...string) error
	DrainPending(ctx context.Context, max int64) ([]string, error)
	PendingCount(ctx context.Context) (int64, error)
	ClearPending(ctx context.Context) error
}

// StateStore tracks which film list is live.
type StateStore interface {
	Current(ctx context.Context) (domain.Filmlist, error)
	SetCurrent(ctx context.Context, fl domain.Filmlist) error
	BumpGeneration(ctx context.Context) (int64, error)
	ETag(ctx context.Context) (string, error)
	SetETag(ctx context.Context, etag string) error
}

// Indexer maintains the full-text index.
type Indexer interface {
	UpsertBatch(ctx context.Context, entries []entry.Entry) error
	DeleteBatch(ctx context.Context, ids []string) error
}

// LeaderLocker is the distributed lock electing the importing instance.
type LeaderLocker interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	RefreshLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}
