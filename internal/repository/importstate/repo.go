package importstate

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Frischifrisch/mediathekviewweb/internal/db"
	"github.com/Frischifrisch/mediathekviewweb/internal/domain"
)

const (
	metaKey       = domain.KeyPrefix + "filmlist:current"
	generationKey = domain.KeyPrefix + "filmlist:generation"
	etagKey       = domain.KeyPrefix + "filmlist:etag"
)

// store is the consumer interface for import state (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
}

// Repo tracks which film list is live: its metadata, a generation
// counter bumped on every import, and the HTTP ETag of the last
// downloaded list.
type Repo struct {
	store store
}

// New creates an import state repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// SetCurrent records fl as the live film list.
func (r *Repo) SetCurrent(ctx context.Context, fl domain.Filmlist) error {
	if err := r.store.HSet(ctx, metaKey, buildMetaFields(fl)); err != nil {
		return fmt.Errorf("set current filmlist: %w", err)
	}
	return nil
}

// Current returns the live film list metadata.
func (r *Repo) Current(ctx context.Context) (domain.Filmlist, error) {
	m, err := r.store.HGetAll(ctx, metaKey)
	if err != nil {
		return domain.Filmlist{}, fmt.Errorf("get current filmlist: %w", err)
	}
	if len(m) == 0 {
		return domain.Filmlist{}, domain.ErrNoFilmlist
	}
	return parseMetaFields(m), nil
}

// BumpGeneration increments the import generation and returns the new value.
// Search caches key on the generation, so bumping it invalidates them.
func (r *Repo) BumpGeneration(ctx context.Context) (int64, error) {
	n, err := r.store.IncrBy(ctx, generationKey, 1)
	if err != nil {
		return 0, fmt.Errorf("bump generation: %w", err)
	}
	return n, nil
}

// Generation returns the current import generation, 0 before any import.
func (r *Repo) Generation(ctx context.Context) (int64, error) {
	raw, err := r.store.Get(ctx, generationKey)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("get generation: %w", err)
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse generation %q: %w", raw, err)
	}
	return n, nil
}

// ETag returns the ETag of the last downloaded list, "" when unknown.
func (r *Repo) ETag(ctx context.Context) (string, error) {
	raw, err := r.store.Get(ctx, etagKey)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("get etag: %w", err)
	}
	return string(raw), nil
}

// SetETag records the ETag of the last downloaded list.
func (r *Repo) SetETag(ctx context.Context, etag string) error {
	if err := r.store.Set(ctx, etagKey, []byte(etag)); err != nil {
		return fmt.Errorf("set etag: %w", err)
	}
	return nil
}
