package search

import (
	"context"
	"errors"
	"testing"

	"github.com/Frischifrisch/mediathekviewweb/internal/domain/entry"
	"github.com/Frischifrisch/mediathekviewweb/internal/index"
	"github.com/Frischifrisch/mediathekviewweb/internal/query"
)

// --- Mocks ---

type mockIndex struct {
	searchResult index.Result
	searchErr    error
	newestResult index.Result
	newestErr    error
	countVal     uint64
	countErr     error

	searchCalls int
	newestCalls int
	lastBody    query.Body
	lastLimit   int
}

func (m *mockIndex) Search(_ context.Context, body query.Body, _, limit int) (index.Result, error) {
	m.searchCalls++
	m.lastBody = body
	m.lastLimit = limit
	return m.searchResult, m.searchErr
}

func (m *mockIndex) Newest(_ context.Context, _, limit int) (index.Result, error) {
	m.newestCalls++
	m.lastLimit = limit
	return m.newestResult, m.newestErr
}

func (m *mockIndex) Count(_ context.Context) (uint64, error) {
	return m.countVal, m.countErr
}

type mockEntries struct {
	entries map[string]entry.Entry
	err     error
}

func (m *mockEntries) GetMulti(_ context.Context, ids []string) ([]entry.Entry, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]entry.Entry, 0, len(ids))
	for _, id := range ids {
		if e, ok := m.entries[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

type mockState struct {
	gen int64
	err error
}

func (m *mockState) Generation(_ context.Context) (int64, error) {
	return m.gen, m.err
}

func makeEntry(t *testing.T, title, videoURL string) entry.Entry {
	t.Helper()
	e, err := entry.New(entry.Attributes{
		Channel:   "NDR",
		Topic:     "Die Nordreportage",
		Title:     title,
		VideoURL:  videoURL,
		Timestamp: 1598984100,
		Duration:  1740,
	})
	if err != nil {
		t.Fatalf("entry.New: %v", err)
	}
	return e
}

func newTestService(t *testing.T, idx *mockIndex, entries *mockEntries, state *mockState) *Service {
	t.Helper()
	compiler, err := query.NewCompiler(query.DefaultConverters(), query.DefaultFields())
	if err != nil {
		t.Fatalf("query.NewCompiler: %v", err)
	}
	return New(compiler, idx, entries, state, 8, 10)
}

// --- Tests ---

func TestSearch_TextQuery(t *testing.T) {
	a := makeEntry(t, "Wattwanderung", "https://media.example.org/ndr/watt.mp4")
	b := makeEntry(t, "Halligen im Winter", "https://media.example.org/ndr/hallig.mp4")
	idx := &mockIndex{searchResult: index.Result{IDs: []string{a.ID(), b.ID()}, Total: 7}}
	entries := &mockEntries{entries: map[string]entry.Entry{a.ID(): a, b.ID(): b}}
	svc := newTestService(t, idx, entries, &mockState{gen: 1})

	page, err := svc.Search(context.Background(), "nordsee")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 7 {
		t.Errorf("total = %d, want 7", page.Total)
	}
	if len(page.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(page.Entries))
	}
	if page.Entries[0].Title() != "Wattwanderung" {
		t.Errorf("entries out of rank order: first is %q", page.Entries[0].Title())
	}
	if idx.lastLimit != 10 {
		t.Errorf("limit = %d, want 10", idx.lastLimit)
	}

	tm, ok := idx.lastBody.(query.TextMatch)
	if !ok {
		t.Fatalf("expected TextMatch body, got %T", idx.lastBody)
	}
	if tm.Text() != "nordsee" {
		t.Errorf("text = %q", tm.Text())
	}
}

func TestSearch_EmptyQueryListsNewest(t *testing.T) {
	idx := &mockIndex{newestResult: index.Result{Total: 3}}
	svc := newTestService(t, idx, &mockEntries{}, &mockState{gen: 1})

	page, err := svc.Search(context.Background(), "   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 3 {
		t.Errorf("total = %d, want 3", page.Total)
	}
	if idx.newestCalls != 1 {
		t.Errorf("newest calls = %d, want 1", idx.newestCalls)
	}
	if idx.searchCalls != 0 {
		t.Error("empty input must not run a compiled query")
	}
}

func TestSearch_UnknownSelector(t *testing.T) {
	idx := &mockIndex{}
	svc := newTestService(t, idx, &mockEntries{}, &mockState{gen: 1})

	_, err := svc.Search(context.Background(), "quelle:ard")
	if !errors.Is(err, query.ErrUnknownSelector) {
		t.Fatalf("expected ErrUnknownSelector, got %v", err)
	}
	if idx.searchCalls != 0 {
		t.Error("invalid query must not reach the index")
	}
}

func TestSearch_BadValue(t *testing.T) {
	svc := newTestService(t, &mockIndex{}, &mockEntries{}, &mockState{gen: 1})

	_, err := svc.Search(context.Background(), "dauer:abc")
	if !errors.Is(err, query.ErrBadValue) {
		t.Fatalf("expected ErrBadValue, got %v", err)
	}
}

func TestSearch_CachesAnswers(t *testing.T) {
	a := makeEntry(t, "Wattwanderung", "https://media.example.org/ndr/watt.mp4")
	idx := &mockIndex{searchResult: index.Result{IDs: []string{a.ID()}, Total: 1}}
	entries := &mockEntries{entries: map[string]entry.Entry{a.ID(): a}}
	svc := newTestService(t, idx, entries, &mockState{gen: 1})

	for i := 0; i < 3; i++ {
		page, err := svc.Search(context.Background(), "watt")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(page.Entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(page.Entries))
		}
	}
	if idx.searchCalls != 1 {
		t.Errorf("index searched %d times, want 1", idx.searchCalls)
	}
}

func TestSearch_NewGenerationBypassesCache(t *testing.T) {
	idx := &mockIndex{}
	state := &mockState{gen: 1}
	svc := newTestService(t, idx, &mockEntries{}, state)

	if _, err := svc.Search(context.Background(), "watt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state.gen = 2
	if _, err := svc.Search(context.Background(), "watt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.searchCalls != 2 {
		t.Errorf("index searched %d times, want 2 after import", idx.searchCalls)
	}
}

func TestSearch_GenerationError(t *testing.T) {
	idx := &mockIndex{}
	svc := newTestService(t, idx, &mockEntries{}, &mockState{err: errors.New("redis down")})

	_, err := svc.Search(context.Background(), "watt")
	if err == nil {
		t.Fatal("expected error")
	}
	if idx.searchCalls != 0 {
		t.Error("query must not run when the generation is unreadable")
	}
}

func TestSearch_IndexError(t *testing.T) {
	idx := &mockIndex{searchErr: errors.New("index closed")}
	svc := newTestService(t, idx, &mockEntries{}, &mockState{gen: 1})

	if _, err := svc.Search(context.Background(), "watt"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSearch_HydrateErrorNotCached(t *testing.T) {
	idx := &mockIndex{searchResult: index.Result{IDs: []string{"gone"}, Total: 1}}
	entries := &mockEntries{err: errors.New("redis down")}
	svc := newTestService(t, idx, entries, &mockState{gen: 1})

	if _, err := svc.Search(context.Background(), "watt"); err == nil {
		t.Fatal("expected error")
	}

	entries.err = nil
	if _, err := svc.Search(context.Background(), "watt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.searchCalls != 2 {
		t.Errorf("failed answer was cached, index searched %d times", idx.searchCalls)
	}
}

func TestCount(t *testing.T) {
	svc := newTestService(t, &mockIndex{countVal: 512000}, &mockEntries{}, &mockState{})

	n, err := svc.Count(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 512000 {
		t.Errorf("count = %d, want 512000", n)
	}
}

func TestCount_Error(t *testing.T) {
	svc := newTestService(t, &mockIndex{countErr: errors.New("index closed")}, &mockEntries{}, &mockState{})

	if _, err := svc.Count(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
