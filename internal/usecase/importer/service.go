// Package importer keeps the entry corpus in sync with the published
// film list. Many instances may run the loop; a Redis lock elects the
// one that actually imports.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Frischifrisch/mediathekviewweb/internal/domain"
	"github.com/Frischifrisch/mediathekviewweb/internal/domain/entry"
	"github.com/Frischifrisch/mediathekviewweb/internal/filmlist"
	"github.com/Frischifrisch/mediathekviewweb/internal/metrics"
)

// lockKey is the leader lock all importing instances compete for.
const lockKey = domain.KeyPrefix + "import:leader"

// Fallbacks for zero Config fields.
const (
	DefaultInterval  = 15 * time.Minute
	DefaultLockTTL   = time.Minute
	DefaultBatchSize = 500
)

// Import run outcomes, used as metric label values.
const (
	outcomeImported  = "imported"
	outcomeUnchanged = "unchanged"
	outcomeNotLeader = "not_leader"
	outcomeError     = "error"
)

// Config holds importer settings.
type Config struct {
	// InstanceID is this process's token in the leader lock.
	InstanceID string
	// Interval between import attempts.
	Interval time.Duration
	// LockTTL bounds how long a crashed leader blocks the next one.
	LockTTL time.Duration
	// BatchSize caps entries per store write and per index commit.
	BatchSize int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.LockTTL <= 0 {
		c.LockTTL = DefaultLockTTL
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	return c
}

// Service runs the periodic film list import: download when changed,
// persist entries, feed the index, prune entries that left the list.
type Service struct {
	cfg     Config
	fetcher Fetcher
	entries EntryStore
	state   StateStore
	index   Indexer
	lock    LeaderLocker
	logger  *zap.Logger
}

// New creates an importer service. Zero Config fields fall back to the
// package defaults.
func New(cfg Config, fetcher Fetcher, entries EntryStore, state StateStore, index Indexer, lock LeaderLocker, logger *zap.Logger) *Service {
	return &Service{
		cfg:     cfg.withDefaults(),
		fetcher: fetcher,
		entries: entries,
		state:   state,
		index:   index,
		lock:    lock,
		logger:  logger,
	}
}

// Run loops imports until ctx is canceled. It attempts one import
// immediately and then once per configured interval.
func (s *Service) Run(ctx context.Context) {
	s.logger.Info("importer started",
		zap.String("instance", s.cfg.InstanceID),
		zap.Duration("interval", s.cfg.Interval),
	)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			s.logger.Info("importer stopped")
			return
		case <-ticker.C:
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	start := time.Now()
	outcome, err := s.importOnce(ctx)
	metrics.ImportRunsTotal.WithLabelValues(outcome).Inc()

	switch {
	case err != nil && ctx.Err() != nil:
		// Shutdown, not a failure.
	case err != nil:
		s.logger.Error("import failed", zap.Error(err))
	case outcome == outcomeImported:
		metrics.ImportDuration.Observe(time.Since(start).Seconds())
	}
}

// importOnce performs a single leader-locked import attempt.
func (s *Service) importOnce(ctx context.Context) (string, error) {
	ok, err := s.lock.AcquireLock(ctx, lockKey, s.cfg.InstanceID, s.cfg.LockTTL)
	if err != nil {
		return outcomeError, fmt.Errorf("acquire leader lock: %w", err)
	}
	if !ok {
		return outcomeNotLeader, nil
	}
	defer s.releaseLock(ctx)

	// Work on a context that dies with the leadership.
	workCtx, stopRefresh := s.withLeadership(ctx)
	defer stopRefresh()

	etag, err := s.state.ETag(workCtx)
	if err != nil {
		return outcomeError, fmt.Errorf("read etag: %w", err)
	}

	data, newTag, err := s.fetcher.Fetch(workCtx, etag)
	if errors.Is(err, filmlist.ErrNotModified) {
		return outcomeUnchanged, nil
	}
	if err != nil {
		return outcomeError, fmt.Errorf("fetch film list: %w", err)
	}

	list, err := filmlist.Parse(data)
	if err != nil {
		return outcomeError, err
	}
	meta := list.Meta()

	current, err := s.state.Current(workCtx)
	switch {
	case errors.Is(err, domain.ErrNoFilmlist):
		// First import.
	case err != nil:
		return outcomeError, fmt.Errorf("read current film list: %w", err)
	case !meta.CreatedAt.After(current.CreatedAt):
		// The server delivered a list we already hold, remember its
		// tag so the next tick can skip the download.
		s.saveETag(workCtx, newTag)
		return outcomeUnchanged, nil
	}

	s.logger.Info("importing film list",
		zap.String("list_id", meta.ID),
		zap.Time("created_at", meta.CreatedAt),
		zap.Int("records", list.Len()),
	)

	seen, err := s.storeEntries(workCtx, list)
	if err != nil {
		return outcomeError, fmt.Errorf("store entries: %w", err)
	}

	indexed, err := s.indexPending(workCtx)
	if err != nil {
		return outcomeError, fmt.Errorf("index entries: %w", err)
	}

	pruned, err := s.pruneVanished(workCtx, seen)
	if err != nil {
		return outcomeError, fmt.Errorf("prune entries: %w", err)
	}

	fl := domain.Filmlist{
		ID:         meta.ID,
		CreatedAt:  meta.CreatedAt,
		EntryCount: int64(len(seen)),
		ImportedAt: time.Now().UTC(),
	}
	if err := s.state.SetCurrent(workCtx, fl); err != nil {
		return outcomeError, fmt.Errorf("record film list: %w", err)
	}
	gen, err := s.state.BumpGeneration(workCtx)
	if err != nil {
		return outcomeError, fmt.Errorf("bump generation: %w", err)
	}
	s.saveETag(workCtx, newTag)

	metrics.ImportEntriesTotal.Add(float64(len(seen)))
	metrics.ImportSkippedRecordsTotal.Add(float64(list.Skipped()))

	s.logger.Info("film list imported",
		zap.String("list_id", meta.ID),
		zap.Int("entries", len(seen)),
		zap.Int64("indexed", indexed),
		zap.Int("pruned", pruned),
		zap.Int("skipped", list.Skipped()),
		zap.Int64("generation", gen),
	)
	return outcomeImported, nil
}

// Reindex queues every stored entry for indexing and drains the queue.
// Returns domain.ErrLockHeld while an import is running.
func (s *Service) Reindex(ctx context.Context) (int64, error) {
	ok, err := s.lock.AcquireLock(ctx, lockKey, s.cfg.InstanceID, s.cfg.LockTTL)
	if err != nil {
		return 0, fmt.Errorf("acquire leader lock: %w", err)
	}
	if !ok {
		return 0, domain.ErrLockHeld
	}
	defer s.releaseLock(ctx)

	workCtx, stopRefresh := s.withLeadership(ctx)
	defer stopRefresh()

	if err := s.entries.ClearPending(workCtx); err != nil {
		return 0, fmt.Errorf("clear pending queue: %w", err)
	}
	ids, err := s.entries.IDs(workCtx)
	if err != nil {
		return 0, fmt.Errorf("list entry ids: %w", err)
	}
	for start := 0; start < len(ids); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(ids))
		if err := s.entries.QueuePending(workCtx, ids[start:end]...); err != nil {
			return 0, fmt.Errorf("queue entries: %w", err)
		}
	}

	indexed, err := s.indexPending(workCtx)
	if err != nil {
		return indexed, fmt.Errorf("index entries: %w", err)
	}
	s.logger.Info("reindex finished", zap.Int64("indexed", indexed))
	return indexed, nil
}

// storeEntries writes the list in batches and queues every written ID
// for indexing. Returns the set of IDs the list contains.
func (s *Service) storeEntries(ctx context.Context, list *filmlist.List) (map[string]struct{}, error) {
	seen := make(map[string]struct{}, list.Len())
	batch := make([]entry.Entry, 0, s.cfg.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.entries.UpsertBatch(ctx, batch); err != nil {
			return err
		}
		ids := make([]string, len(batch))
		for i, e := range batch {
			ids[i] = e.ID()
		}
		if err := s.entries.QueuePending(ctx, ids...); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for list.Next() {
		e := list.Entry()
		seen[e.ID()] = struct{}{}
		batch = append(batch, e)
		if len(batch) >= s.cfg.BatchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return seen, nil
}

// indexPending drains the pending queue into the index in batches.
func (s *Service) indexPending(ctx context.Context) (int64, error) {
	var indexed int64
	for {
		ids, err := s.entries.DrainPending(ctx, int64(s.cfg.BatchSize))
		if err != nil {
			return indexed, err
		}
		if len(ids) == 0 {
			break
		}

		// IDs may have vanished between queueing and draining; GetMulti
		// silently drops those.
		batch, err := s.entries.GetMulti(ctx, ids)
		if err != nil {
			s.requeue(ctx, ids)
			return indexed, err
		}
		if err := s.index.UpsertBatch(ctx, batch); err != nil {
			s.requeue(ctx, ids)
			return indexed, err
		}
		indexed += int64(len(batch))
	}

	if n, err := s.entries.PendingCount(ctx); err == nil {
		metrics.IndexPendingEntries.Set(float64(n))
	}
	return indexed, nil
}

// requeue puts drained IDs back so the next run retries them.
func (s *Service) requeue(ctx context.Context, ids []string) {
	if err := s.entries.QueuePending(context.WithoutCancel(ctx), ids...); err != nil {
		s.logger.Error("requeue pending entries", zap.Int("count", len(ids)), zap.Error(err))
	}
}

// pruneVanished deletes stored entries the new list no longer carries,
// from the store and the index.
func (s *Service) pruneVanished(ctx context.Context, seen map[string]struct{}) (int, error) {
	stored, err := s.entries.IDs(ctx)
	if err != nil {
		return 0, err
	}
	var gone []string
	for _, id := range stored {
		if _, ok := seen[id]; !ok {
			gone = append(gone, id)
		}
	}
	for start := 0; start < len(gone); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(gone))
		if err := s.entries.DeleteBatch(ctx, gone[start:end]); err != nil {
			return 0, err
		}
		if err := s.index.DeleteBatch(ctx, gone[start:end]); err != nil {
			return 0, err
		}
	}
	return len(gone), nil
}

// withLeadership returns a child context that is canceled when the
// leader lock is lost, plus a stop func for the refresh loop.
func (s *Service) withLeadership(ctx context.Context) (context.Context, func()) {
	workCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.cfg.LockTTL / 3)
		defer ticker.Stop()
		for {
			select {
			case <-workCtx.Done():
				return
			case <-ticker.C:
				ok, err := s.lock.RefreshLock(workCtx, lockKey, s.cfg.InstanceID, s.cfg.LockTTL)
				if err != nil {
					if workCtx.Err() == nil {
						s.logger.Warn("refresh leader lock", zap.Error(err))
					}
					continue
				}
				if !ok {
					s.logger.Warn("leader lock lost, aborting import")
					cancel()
					return
				}
			}
		}
	}()

	return workCtx, func() {
		cancel()
		<-done
	}
}

// releaseLock frees the leader lock even when the run context is gone.
func (s *Service) releaseLock(ctx context.Context) {
	if err := s.lock.ReleaseLock(context.WithoutCancel(ctx), lockKey, s.cfg.InstanceID); err != nil {
		s.logger.Warn("release leader lock", zap.Error(err))
	}
}

func (s *Service) saveETag(ctx context.Context, etag string) {
	if etag == "" {
		return
	}
	if err := s.state.SetETag(ctx, etag); err != nil {
		s.logger.Warn("save etag", zap.Error(err))
	}
}
