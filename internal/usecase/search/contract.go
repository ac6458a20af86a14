package search

import (
	"context"

	"github.com/Frischifrisch/mediathekviewweb/internal/domain/entry"
	"github.com/Frischifrisch/mediathekviewweb/internal/index"
	"github.com/Frischifrisch/mediathekviewweb/internal/query"
)

// Index executes compiled queries against the full-text index.
type Index interface {
	Search(ctx context.Context, body query.Body, offset, limit int) (index.Result, error)
	Newest(ctx context.Context, offset, limit int) (index.Result, error)
	Count(ctx context.Context) (uint64, error)
}

// EntryReader hydrates index hits from the entry store.
type EntryReader interface {
	GetMulti(ctx context.Context, ids []string) ([]entry.Entry, error)
}

// StateReader reads the import generation the response cache keys on.
type StateReader interface {
	Generation(ctx context.Context) (int64, error)
}
