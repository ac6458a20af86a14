// Package bleve runs the full-text index the compiled queries execute
// against. Entries are indexed locally; search results carry entry IDs
// only, and hydration happens from the entry store.
package bleve

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/de"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/Frischifrisch/mediathekviewweb/internal/domain/entry"
	"github.com/Frischifrisch/mediathekviewweb/internal/index"
	"github.com/Frischifrisch/mediathekviewweb/internal/query"
)

// Config configures the index.
type Config struct {
	// Path of the index directory. Empty runs the index in memory.
	Path string
}

// Index wraps a bleve index over film list entries.
type Index struct {
	idx bleve.Index
}

// Open opens the index at cfg.Path, creating it when absent.
func Open(cfg Config) (*Index, error) {
	if cfg.Path == "" {
		idx, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		return &Index{idx: idx}, nil
	}

	idx, err := bleve.Open(cfg.Path)
	if err != nil {
		idx, err = bleve.New(cfg.Path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index at %s: %w", cfg.Path, err)
		}
	}
	return &Index{idx: idx}, nil
}

// buildIndexMapping declares the entry fields: analyzed German text for
// the four text fields, numerics for duration and timestamp. Nothing is
// stored, the entry store owns the documents.
func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = de.AnalyzerName

	doc := bleve.NewDocumentMapping()
	doc.Dynamic = false

	text := bleve.NewTextFieldMapping()
	text.Store = false
	text.IncludeTermVectors = false
	for _, f := range []query.Field{
		query.FieldChannel, query.FieldTopic, query.FieldTitle, query.FieldDescription,
	} {
		doc.AddFieldMappingsAt(string(f), text)
	}

	num := bleve.NewNumericFieldMapping()
	num.Store = false
	doc.AddFieldMappingsAt(string(query.FieldDuration), num)
	doc.AddFieldMappingsAt(string(query.FieldTimestamp), num)

	im.DefaultMapping = doc
	return im
}

func buildDoc(e entry.Entry) map[string]any {
	return map[string]any{
		string(query.FieldChannel):     e.Channel(),
		string(query.FieldTopic):       e.Topic(),
		string(query.FieldTitle):       e.Title(),
		string(query.FieldDescription): e.Description(),
		string(query.FieldDuration):    float64(e.Duration()),
		string(query.FieldTimestamp):   float64(e.Timestamp()),
	}
}

// UpsertBatch indexes entries in one batch, replacing existing documents.
func (i *Index) UpsertBatch(ctx context.Context, entries []entry.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	batch := i.idx.NewBatch()
	for _, e := range entries {
		if err := batch.Index(e.ID(), buildDoc(e)); err != nil {
			return fmt.Errorf("batch index %s: %w", e.ID(), err)
		}
	}
	if err := i.idx.Batch(batch); err != nil {
		return fmt.Errorf("commit batch of %d: %w", len(entries), err)
	}
	return nil
}

// DeleteBatch removes entries from the index.
func (i *Index) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	batch := i.idx.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := i.idx.Batch(batch); err != nil {
		return fmt.Errorf("commit delete batch of %d: %w", len(ids), err)
	}
	return nil
}

// sortNewestFirst orders hits by broadcast time, relevance breaking
// ties. Every listing in the product sorts this way.
var sortNewestFirst = []string{"-" + string(query.FieldTimestamp), "-_score"}

// Search executes a compiled query, newest first.
func (i *Index) Search(ctx context.Context, body query.Body, offset, limit int) (index.Result, error) {
	bq, err := translate(body)
	if err != nil {
		return index.Result{}, err
	}
	req := bleve.NewSearchRequestOptions(bq, limit, offset, false)
	req.SortBy(sortNewestFirst)
	return i.run(ctx, req)
}

// Newest lists the whole corpus, newest first. Serves empty queries.
func (i *Index) Newest(ctx context.Context, offset, limit int) (index.Result, error) {
	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), limit, offset, false)
	req.SortBy(sortNewestFirst)
	return i.run(ctx, req)
}

func (i *Index) run(ctx context.Context, req *bleve.SearchRequest) (index.Result, error) {
	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return index.Result{}, fmt.Errorf("search: %w", err)
	}
	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return index.Result{IDs: ids, Total: res.Total}, nil
}

// Count returns the number of indexed entries.
func (i *Index) Count(ctx context.Context) (uint64, error) {
	n, err := i.idx.DocCount()
	if err != nil {
		return 0, fmt.Errorf("doc count: %w", err)
	}
	return n, nil
}

// Close flushes and closes the index.
func (i *Index) Close() error {
	return i.idx.Close()
}
