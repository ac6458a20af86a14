package entry

import (
	"context"
	"testing"

	"github.com/Frischifrisch/mediathekviewweb/internal/db"
	domentry "github.com/Frischifrisch/mediathekviewweb/internal/domain/entry"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetMultiFn    func(ctx context.Context, items []db.HashSetItem) error
	hgetAllFn      func(ctx context.Context, key string) (map[string]string, error)
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	scanFn         func(ctx context.Context, pattern string) ([]string, error)
	delFn          func(ctx context.Context, keys ...string) error
	saddFn         func(ctx context.Context, key string, members ...string) (int64, error)
	spopNFn        func(ctx context.Context, key string, count int64) ([]string, error)
	scardFn        func(ctx context.Context, key string) (int64, error)
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return nil, nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	if m.delFn != nil {
		return m.delFn(ctx, keys...)
	}
	return nil
}

func (m *mockStore) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	if m.saddFn != nil {
		return m.saddFn(ctx, key, members...)
	}
	return 0, nil
}

func (m *mockStore) SPopN(ctx context.Context, key string, count int64) ([]string, error) {
	if m.spopNFn != nil {
		return m.spopNFn(ctx, key, count)
	}
	return nil, nil
}

func (m *mockStore) SCard(ctx context.Context, key string) (int64, error) {
	if m.scardFn != nil {
		return m.scardFn(ctx, key)
	}
	return 0, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms)
	return repo, ms
}

func testEntry(t *testing.T) domentry.Entry {
	t.Helper()
	e, err := domentry.New(domentry.Attributes{
		Channel:     "ARTE",
		Topic:       "Dokumentation",
		Title:       "Die Nordsee von oben",
		Description: "Luftaufnahmen der Nordseekueste",
		Website:     "https://www.arte.tv/de/videos/nordsee",
		VideoURL:    "https://media.example.org/nordsee.mp4",
		VideoHDURL:  "https://media.example.org/nordsee_hd.mp4",
		Timestamp:   1600000000,
		Duration:    5400,
		Size:        734003200,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return e
}
