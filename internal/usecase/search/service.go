package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Frischifrisch/mediathekviewweb/internal/domain/entry"
	"github.com/Frischifrisch/mediathekviewweb/internal/index"
	"github.com/Frischifrisch/mediathekviewweb/internal/metrics"
	"github.com/Frischifrisch/mediathekviewweb/internal/query"
)

// DefaultCacheSize bounds the response cache when no size is configured.
const DefaultCacheSize = 512

// DefaultMaxResults caps how many entries one query returns.
const DefaultMaxResults = 50

// Page is one answered query: hydrated entries in rank order plus the
// total match count behind them.
type Page struct {
	Entries []entry.Entry
	Total   uint64
}

// Service compiles raw search strings and answers them from the index.
// Responses are cached per import generation, so a finished import ages
// cached pages out without explicit invalidation.
type Service struct {
	compiler   *query.Compiler
	index      Index
	entries    EntryReader
	state      StateReader
	cache      *lru.Cache[string, Page]
	maxResults int
}

// New creates a search service. cacheSize and maxResults fall back to
// the package defaults when not positive.
func New(compiler *query.Compiler, idx Index, entries EntryReader, state StateReader, cacheSize, maxResults int) *Service {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	cache, _ := lru.New[string, Page](cacheSize)
	return &Service{
		compiler:   compiler,
		index:      idx,
		entries:    entries,
		state:      state,
		cache:      cache,
		maxResults: maxResults,
	}
}

// Search answers a raw search string. Empty input lists the newest
// entries. Compile errors pass through unwrapped, they carry the error
// identities the transport maps to status codes.
func (s *Service) Search(ctx context.Context, raw string) (Page, error) {
	gen, err := s.state.Generation(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("read generation: %w", err)
	}

	key := strconv.FormatInt(gen, 10) + ":" + raw
	if page, ok := s.cache.Get(key); ok {
		metrics.SearchCacheTotal.WithLabelValues("hit").Inc()
		return page, nil
	}
	metrics.SearchCacheTotal.WithLabelValues("miss").Inc()

	res, err := s.execute(ctx, raw)
	if err != nil {
		return Page{}, err
	}

	entries, err := s.entries.GetMulti(ctx, res.IDs)
	if err != nil {
		return Page{}, fmt.Errorf("hydrate %d hits: %w", len(res.IDs), err)
	}

	page := Page{Entries: entries, Total: res.Total}
	s.cache.Add(key, page)
	return page, nil
}

func (s *Service) execute(ctx context.Context, raw string) (index.Result, error) {
	body, err := s.compiler.Compile(raw)
	if errors.Is(err, query.ErrEmptyQuery) {
		res, err := s.index.Newest(ctx, 0, s.maxResults)
		if err != nil {
			return index.Result{}, fmt.Errorf("list newest: %w", err)
		}
		return res, nil
	}
	if err != nil {
		return index.Result{}, err
	}

	res, err := s.index.Search(ctx, body, 0, s.maxResults)
	if err != nil {
		return index.Result{}, fmt.Errorf("run query: %w", err)
	}
	return res, nil
}

// Count reports how many entries the index currently holds.
func (s *Service) Count(ctx context.Context) (uint64, error) {
	n, err := s.index.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}
