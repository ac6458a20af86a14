package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Frischifrisch/mediathekviewweb/internal/domain"
	"github.com/Frischifrisch/mediathekviewweb/internal/domain/entry"
	"github.com/Frischifrisch/mediathekviewweb/internal/filmlist"
)

func TestImportOnce_FirstImport(t *testing.T) {
	svc, deps := newTestService(t)

	outcome, err := svc.importOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != outcomeImported {
		t.Fatalf("outcome = %q, want %q", outcome, outcomeImported)
	}

	if len(deps.entries.entries) != 3 {
		t.Errorf("expected 3 stored entries, got %d", len(deps.entries.entries))
	}
	if len(deps.index.docs) != 3 {
		t.Errorf("expected 3 indexed entries, got %d", len(deps.index.docs))
	}
	if len(deps.entries.pending) != 0 {
		t.Errorf("pending queue should be drained, got %d", len(deps.entries.pending))
	}

	if deps.state.current == nil {
		t.Fatal("film list metadata not recorded")
	}
	if deps.state.current.EntryCount != 3 {
		t.Errorf("entry count = %d, want 3", deps.state.current.EntryCount)
	}
	if !deps.state.current.CreatedAt.Equal(testListCreatedAt) {
		t.Errorf("created at = %v, want %v", deps.state.current.CreatedAt, testListCreatedAt)
	}
	if deps.state.generation != 1 {
		t.Errorf("generation = %d, want 1", deps.state.generation)
	}
	if deps.state.etag != `"list-v1"` {
		t.Errorf("etag = %q", deps.state.etag)
	}

	if deps.lock.acquires != 1 || deps.lock.releases != 1 {
		t.Errorf("lock acquires/releases = %d/%d, want 1/1", deps.lock.acquires, deps.lock.releases)
	}
}

func TestImportOnce_InheritsChannelAndTopic(t *testing.T) {
	svc, deps := newTestService(t)

	if _, err := svc.importOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var found bool
	for _, e := range deps.entries.entries {
		if e.Title() == "Wattenmeer" {
			found = true
			if e.Channel() != "ARTE" || e.Topic() != "Die Nordsee" {
				t.Errorf("inherited channel/topic = %q/%q", e.Channel(), e.Topic())
			}
		}
	}
	if !found {
		t.Error("record with inherited columns not imported")
	}
}

func TestImportOnce_NotLeader(t *testing.T) {
	svc, deps := newTestService(t)
	deps.lock.denyAcquire = true

	outcome, err := svc.importOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != outcomeNotLeader {
		t.Fatalf("outcome = %q, want %q", outcome, outcomeNotLeader)
	}
	if deps.fetcher.calls != 0 {
		t.Error("non-leader must not download the list")
	}
	if deps.lock.releases != 0 {
		t.Error("non-leader must not release a lock it does not hold")
	}
}

func TestImportOnce_NotModified(t *testing.T) {
	svc, deps := newTestService(t)
	deps.state.etag = `"list-v1"`
	deps.fetcher.fetchFn = func(_ context.Context, etag string) ([]byte, string, error) {
		if etag != `"list-v1"` {
			t.Errorf("conditional fetch etag = %q", etag)
		}
		return nil, etag, filmlist.ErrNotModified
	}

	outcome, err := svc.importOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != outcomeUnchanged {
		t.Fatalf("outcome = %q, want %q", outcome, outcomeUnchanged)
	}
	if len(deps.entries.entries) != 0 {
		t.Error("unchanged list must not write entries")
	}
}

func TestImportOnce_SameListAlreadyLive(t *testing.T) {
	svc, deps := newTestService(t)
	deps.state.current = &domain.Filmlist{ID: "f2051", CreatedAt: testListCreatedAt}

	outcome, err := svc.importOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != outcomeUnchanged {
		t.Fatalf("outcome = %q, want %q", outcome, outcomeUnchanged)
	}
	if deps.state.generation != 0 {
		t.Error("unchanged list must not bump the generation")
	}
	if deps.state.etag != `"list-v1"` {
		t.Errorf("etag of the unchanged list should still be recorded, got %q", deps.state.etag)
	}
}

func TestImportOnce_FetchError(t *testing.T) {
	svc, deps := newTestService(t)
	deps.fetcher.fetchFn = func(context.Context, string) ([]byte, string, error) {
		return nil, "", errors.New("status 502")
	}

	outcome, err := svc.importOnce(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if outcome != outcomeError {
		t.Fatalf("outcome = %q, want %q", outcome, outcomeError)
	}
	if deps.lock.releases != 1 {
		t.Error("lock must be released after a failed run")
	}
}

func TestImportOnce_MalformedList(t *testing.T) {
	svc, deps := newTestService(t)
	deps.fetcher.data = []byte(`{"Filmliste": "kaputt"`)

	outcome, err := svc.importOnce(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if outcome != outcomeError {
		t.Fatalf("outcome = %q, want %q", outcome, outcomeError)
	}
}

func TestImportOnce_PrunesVanishedEntries(t *testing.T) {
	svc, deps := newTestService(t)
	stale := seedEntry(t, deps, "https://media.example.org/alt/weg.mp4")

	if _, err := svc.importOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := deps.entries.entries[stale.ID()]; ok {
		t.Error("vanished entry still stored")
	}
	if _, ok := deps.index.docs[stale.ID()]; ok {
		t.Error("vanished entry still indexed")
	}
	if len(deps.entries.entries) != 3 {
		t.Errorf("expected 3 entries after prune, got %d", len(deps.entries.entries))
	}
	if deps.state.current.EntryCount != 3 {
		t.Errorf("entry count = %d, want 3", deps.state.current.EntryCount)
	}
}

func TestImportOnce_IndexFailureRequeuesBatch(t *testing.T) {
	svc, deps := newTestService(t)
	deps.index.upsertBatchFn = func(context.Context, []entry.Entry) error {
		return errors.New("index unavailable")
	}

	outcome, err := svc.importOnce(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if outcome != outcomeError {
		t.Fatalf("outcome = %q, want %q", outcome, outcomeError)
	}
	// All three queued IDs survive for the next run: the drained batch
	// is put back, the rest was never popped.
	if len(deps.entries.pending) != 3 {
		t.Errorf("pending after failed index run = %d, want 3", len(deps.entries.pending))
	}
}

func TestImportOnce_AbortsWhenLeadershipLost(t *testing.T) {
	deps := &testDeps{
		fetcher: &fakeFetcher{},
		entries: newFakeEntryStore(),
		state:   &fakeStateStore{},
		index:   newFakeIndexer(),
		lock:    &fakeLocker{},
	}
	deps.lock.refreshFn = func(context.Context, string, string, time.Duration) (bool, error) {
		return false, nil
	}
	// The fetch blocks until the leadership watchdog cancels the work
	// context.
	deps.fetcher.fetchFn = func(ctx context.Context, _ string) ([]byte, string, error) {
		<-ctx.Done()
		return nil, "", ctx.Err()
	}
	svc := New(
		Config{InstanceID: "test-instance", LockTTL: 30 * time.Millisecond, BatchSize: 2},
		deps.fetcher, deps.entries, deps.state, deps.index, deps.lock,
		zap.NewNop(),
	)

	outcome, err := svc.importOnce(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled work context, got %v", err)
	}
	if outcome != outcomeError {
		t.Fatalf("outcome = %q, want %q", outcome, outcomeError)
	}
}

func TestReindex(t *testing.T) {
	svc, deps := newTestService(t)
	seedEntry(t, deps, "https://media.example.org/bestand/eins.mp4")
	seedEntry(t, deps, "https://media.example.org/bestand/zwei.mp4")
	deps.index.docs = make(map[string]entry.Entry) // index lost
	deps.entries.pending = []string{"stale-junk"}

	n, err := svc.Reindex(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("reindexed = %d, want 2", n)
	}
	if !deps.entries.cleared {
		t.Error("stale pending queue was not cleared")
	}
	if len(deps.index.docs) != 2 {
		t.Errorf("expected 2 indexed entries, got %d", len(deps.index.docs))
	}
	if deps.lock.releases != 1 {
		t.Error("lock must be released after reindex")
	}
}

func TestReindex_ImportRunning(t *testing.T) {
	svc, deps := newTestService(t)
	deps.lock.denyAcquire = true

	_, err := svc.Reindex(context.Background())
	if !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	svc, deps := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on canceled context")
	}
	if deps.fetcher.calls != 1 {
		t.Errorf("expected exactly one tick, got %d fetches", deps.fetcher.calls)
	}
}

func TestRun_TicksOnInterval(t *testing.T) {
	deps := &testDeps{
		fetcher: &fakeFetcher{data: []byte(testListJSON), etag: `"list-v1"`},
		entries: newFakeEntryStore(),
		state:   &fakeStateStore{},
		index:   newFakeIndexer(),
		lock:    &fakeLocker{},
	}
	svc := New(
		Config{InstanceID: "test-instance", Interval: 5 * time.Millisecond, LockTTL: time.Minute, BatchSize: 2},
		deps.fetcher, deps.entries, deps.state, deps.index, deps.lock,
		zap.NewNop(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()
	<-done

	if deps.fetcher.calls < 2 {
		t.Errorf("expected repeated ticks, got %d fetches", deps.fetcher.calls)
	}
}
