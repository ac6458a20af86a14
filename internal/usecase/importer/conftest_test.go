package importer

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Frischifrisch/mediathekviewweb/internal/domain"
	"github.com/Frischifrisch/mediathekviewweb/internal/domain/entry"
)

// testListJSON is a minimal film list: head, column names and three
// records. The second record inherits channel and topic from the first.
const testListJSON = `{
"Filmliste":["01.09.2020, 23:30","01.09.2020, 21:30","3","MSearch [Vers.: 3.1.139]","f2051cf0a2cbc9b42e5ac364a07bc1bc"],
"Filmliste":["Sender","Thema","Titel","Datum","Zeit","Dauer","Groesse [MB]","Beschreibung","Url","Website","Url Untertitel","Url RTMP","Url Klein","Url RTMP Klein","Url HD","Url RTMP HD","DatumL","Url History","Geo","neu"],
"X":["ARTE","Die Nordsee","Sturmflut","01.09.2020","20:15:00","00:26:00","230","Doku ueber die Nordsee","https://media.example.org/nordsee/sturmflut.mp4","https://www.arte.tv/nordsee","","","","","","","1598984100","","",""],
"X":["","","Wattenmeer","01.09.2020","21:00:00","00:45:00","410","","https://media.example.org/nordsee/watt.mp4","https://www.arte.tv/watt","","","","","","","1598986800","","",""],
"X":["ZDF","heute journal","Sendung vom 1. September","01.09.2020","21:45:00","00:30:00","280","","https://media.example.org/hj/0109.mp4","https://www.zdf.de/hj","","","","","","","1598989500","","",""]
}`

// testListCreatedAt matches the UTC head time of testListJSON.
var testListCreatedAt = time.Date(2020, 9, 1, 21, 30, 0, 0, time.UTC)

// --- fakes: in-memory defaults, fn fields inject failures ---

type fakeFetcher struct {
	data    []byte
	etag    string
	calls   int
	fetchFn func(ctx context.Context, etag string) ([]byte, string, error)
}

func (f *fakeFetcher) Fetch(ctx context.Context, etag string) ([]byte, string, error) {
	f.calls++
	if f.fetchFn != nil {
		return f.fetchFn(ctx, etag)
	}
	return f.data, f.etag, nil
}

type fakeEntryStore struct {
	entries map[string]entry.Entry
	pending []string
	deleted []string
	cleared bool

	upsertBatchFn func(ctx context.Context, entries []entry.Entry) error
	getMultiFn    func(ctx context.Context, ids []string) ([]entry.Entry, error)
	idsFn         func(ctx context.Context) ([]string, error)
	drainFn       func(ctx context.Context, max int64) ([]string, error)
}

func newFakeEntryStore() *fakeEntryStore {
	return &fakeEntryStore{entries: make(map[string]entry.Entry)}
}

func (f *fakeEntryStore) UpsertBatch(ctx context.Context, batch []entry.Entry) error {
	if f.upsertBatchFn != nil {
		return f.upsertBatchFn(ctx, batch)
	}
	for _, e := range batch {
		f.entries[e.ID()] = e
	}
	return nil
}

func (f *fakeEntryStore) DeleteBatch(_ context.Context, ids []string) error {
	for _, id := range ids {
		delete(f.entries, id)
	}
	f.deleted = append(f.deleted, ids...)
	return nil
}

func (f *fakeEntryStore) GetMulti(ctx context.Context, ids []string) ([]entry.Entry, error) {
	if f.getMultiFn != nil {
		return f.getMultiFn(ctx, ids)
	}
	out := make([]entry.Entry, 0, len(ids))
	for _, id := range ids {
		if e, ok := f.entries[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEntryStore) IDs(ctx context.Context) ([]string, error) {
	if f.idsFn != nil {
		return f.idsFn(ctx)
	}
	ids := make([]string, 0, len(f.entries))
	for id := range f.entries {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeEntryStore) QueuePending(_ context.Context, ids ...string) error {
	f.pending = append(f.pending, ids...)
	return nil
}

func (f *fakeEntryStore) DrainPending(ctx context.Context, max int64) ([]string, error) {
	if f.drainFn != nil {
		return f.drainFn(ctx, max)
	}
	n := int(max)
	if n > len(f.pending) {
		n = len(f.pending)
	}
	out := f.pending[:n]
	f.pending = f.pending[n:]
	return out, nil
}

func (f *fakeEntryStore) PendingCount(_ context.Context) (int64, error) {
	return int64(len(f.pending)), nil
}

func (f *fakeEntryStore) ClearPending(_ context.Context) error {
	f.cleared = true
	f.pending = nil
	return nil
}

type fakeStateStore struct {
	current    *domain.Filmlist
	generation int64
	etag       string

	currentFn func(ctx context.Context) (domain.Filmlist, error)
	etagFn    func(ctx context.Context) (string, error)
}

func (f *fakeStateStore) Current(ctx context.Context) (domain.Filmlist, error) {
	if f.currentFn != nil {
		return f.currentFn(ctx)
	}
	if f.current == nil {
		return domain.Filmlist{}, domain.ErrNoFilmlist
	}
	return *f.current, nil
}

func (f *fakeStateStore) SetCurrent(_ context.Context, fl domain.Filmlist) error {
	f.current = &fl
	return nil
}

func (f *fakeStateStore) BumpGeneration(_ context.Context) (int64, error) {
	f.generation++
	return f.generation, nil
}

func (f *fakeStateStore) ETag(ctx context.Context) (string, error) {
	if f.etagFn != nil {
		return f.etagFn(ctx)
	}
	return f.etag, nil
}

func (f *fakeStateStore) SetETag(_ context.Context, etag string) error {
	f.etag = etag
	return nil
}

type fakeIndexer struct {
	docs    map[string]entry.Entry
	deleted []string

	upsertBatchFn func(ctx context.Context, entries []entry.Entry) error
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{docs: make(map[string]entry.Entry)}
}

func (f *fakeIndexer) UpsertBatch(ctx context.Context, batch []entry.Entry) error {
	if f.upsertBatchFn != nil {
		return f.upsertBatchFn(ctx, batch)
	}
	for _, e := range batch {
		f.docs[e.ID()] = e
	}
	return nil
}

func (f *fakeIndexer) DeleteBatch(_ context.Context, ids []string) error {
	for _, id := range ids {
		delete(f.docs, id)
	}
	f.deleted = append(f.deleted, ids...)
	return nil
}

type fakeLocker struct {
	denyAcquire bool
	acquires    int
	releases    int

	refreshFn func(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
}

func (f *fakeLocker) AcquireLock(_ context.Context, _, _ string, _ time.Duration) (bool, error) {
	f.acquires++
	return !f.denyAcquire, nil
}

func (f *fakeLocker) RefreshLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	if f.refreshFn != nil {
		return f.refreshFn(ctx, key, token, ttl)
	}
	return true, nil
}

func (f *fakeLocker) ReleaseLock(_ context.Context, _, _ string) error {
	f.releases++
	return nil
}

// testDeps bundles one fake of each collaborator.
type testDeps struct {
	fetcher *fakeFetcher
	entries *fakeEntryStore
	state   *fakeStateStore
	index   *fakeIndexer
	lock    *fakeLocker
}

// newTestService wires a Service over fresh fakes. The fetcher serves
// testListJSON, batch size 2 exercises batching with three records.
func newTestService(t *testing.T) (*Service, *testDeps) {
	t.Helper()
	deps := &testDeps{
		fetcher: &fakeFetcher{data: []byte(testListJSON), etag: `"list-v1"`},
		entries: newFakeEntryStore(),
		state:   &fakeStateStore{},
		index:   newFakeIndexer(),
		lock:    &fakeLocker{},
	}
	svc := New(
		Config{InstanceID: "test-instance", Interval: time.Minute, LockTTL: time.Minute, BatchSize: 2},
		deps.fetcher, deps.entries, deps.state, deps.index, deps.lock,
		zap.NewNop(),
	)
	return svc, deps
}

// seedEntry stores an entry in the fake store and index, as a previous
// import would have.
func seedEntry(t *testing.T, deps *testDeps, videoURL string) entry.Entry {
	t.Helper()
	e, err := entry.New(entry.Attributes{
		Channel:   "ZDF",
		Topic:     "Altbestand",
		Title:     "Nicht mehr gelistet",
		VideoURL:  videoURL,
		Timestamp: 1598000000,
		Duration:  600,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	deps.entries.entries[e.ID()] = e
	deps.index.docs[e.ID()] = e
	return e
}
