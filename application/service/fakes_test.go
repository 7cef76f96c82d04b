package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/helixml/embedsync/domain/content"
	"github.com/helixml/embedsync/domain/embedding"
	"github.com/helixml/embedsync/domain/vector"
	"github.com/helixml/embedsync/infrastructure/persistence"
	"github.com/helixml/embedsync/internal/testdb"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTaskStore(t *testing.T) persistence.TaskStore {
	t.Helper()
	return persistence.NewTaskStore(testdb.New(t))
}

type fakeSource struct {
	items map[int64]content.Item
	refs  map[string][]content.Ref
	err   error
}

func (f *fakeSource) Load(_ context.Context, ref content.Ref) (content.Item, error) {
	if f.err != nil {
		return content.Item{}, f.err
	}
	item, ok := f.items[ref.EntityID()]
	if !ok {
		return content.Item{}, content.ErrNotFound
	}
	return item, nil
}

func (f *fakeSource) List(_ context.Context, _ string, bundles []string) ([]content.Ref, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []content.Ref
	for _, b := range bundles {
		out = append(out, f.refs[b]...)
	}
	return out, nil
}

// fakeEmbedder returns a vector derived from the text length. Texts listed
// in fail produce the mapped error.
type fakeEmbedder struct {
	mu    sync.Mutex
	fail  map[string]error
	texts []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text, _ string) (embedding.Vector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	if err, ok := f.fail[text]; ok {
		return embedding.Vector{}, err
	}
	n := float64(len(text))
	return embedding.NewVector([]float64{n, n / 2, 1}, "fake-model", embedding.NewUsage(len(text), len(text))), nil
}

func (f *fakeEmbedder) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

// fakeVectorStore keeps records per collection keyed by id.
type fakeVectorStore struct {
	mu          sync.Mutex
	collections map[string]map[string]vector.Record
	upsertErr   error
	deleteErr   error
	purgeErr    error
	deletes     []vector.Filter
	queries     []vector.Query
	matches     []vector.Match
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{collections: map[string]map[string]vector.Record{}}
}

func (f *fakeVectorStore) Name() string { return "fake" }

func (f *fakeVectorStore) Upsert(_ context.Context, collection string, records []vector.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if f.collections[collection] == nil {
		f.collections[collection] = map[string]vector.Record{}
	}
	for _, r := range records {
		f.collections[collection][r.ID()] = r
	}
	return nil
}

func (f *fakeVectorStore) Delete(_ context.Context, collection string, ids []string, filter vector.Filter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes = append(f.deletes, filter)
	for id := range f.collections[collection] {
		for _, want := range ids {
			if id == want {
				delete(f.collections[collection], id)
			}
		}
	}
	for id, r := range f.collections[collection] {
		if matchesFilter(r.Metadata(), filter) {
			delete(f.collections[collection], id)
		}
	}
	return nil
}

func matchesFilter(meta map[string]any, filter vector.Filter) bool {
	if filter.Empty() {
		return false
	}
	for key, values := range filter {
		found := false
		for _, v := range values {
			if meta[key] == v {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (f *fakeVectorStore) DeleteAll(_ context.Context, collection string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.purgeErr != nil {
		return f.purgeErr
	}
	delete(f.collections, collection)
	return nil
}

func (f *fakeVectorStore) Query(_ context.Context, q vector.Query) ([]vector.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.matches, nil
}

func (f *fakeVectorStore) Fetch(_ context.Context, collection string, ids []string) ([]vector.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []vector.Record
	for _, id := range ids {
		if r, ok := f.collections[collection][id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeVectorStore) Stats(_ context.Context, collection string) ([]vector.PartitionStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []vector.PartitionStats
	for name, records := range f.collections {
		if collection != "" && name != collection {
			continue
		}
		out = append(out, vector.PartitionStats{Name: name, RecordCount: int64(len(records))})
	}
	return out, nil
}

func (f *fakeVectorStore) ids(collection string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for id := range f.collections[collection] {
		out = append(out, id)
	}
	return out
}
