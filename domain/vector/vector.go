// Package vector defines the backend-neutral vector store contract.
package vector

import (
	"context"
	"sort"
)

// DefaultTopK is used when a query does not specify how many matches to return.
const DefaultTopK = 5

// Record is one vector in the external store.
type Record struct {
	id       string
	values   []float64
	metadata map[string]any
}

// NewRecord creates a Record. Values and metadata are copied.
func NewRecord(id string, values []float64, metadata map[string]any) Record {
	v := make([]float64, len(values))
	copy(v, values)
	m := make(map[string]any, len(metadata))
	for k, val := range metadata {
		m[k] = val
	}
	return Record{id: id, values: v, metadata: m}
}

// ID returns the client-side record id.
func (r Record) ID() string { return r.id }

// Values returns a copy of the vector values.
func (r Record) Values() []float64 {
	v := make([]float64, len(r.values))
	copy(v, r.values)
	return v
}

// Metadata returns a copy of the record metadata.
func (r Record) Metadata() map[string]any {
	m := make(map[string]any, len(r.metadata))
	for k, v := range r.metadata {
		m[k] = v
	}
	return m
}

// Match is a single similarity query result.
type Match struct {
	id       string
	score    float64
	metadata map[string]any
}

// NewMatch creates a Match.
func NewMatch(id string, score float64, metadata map[string]any) Match {
	return Match{id: id, score: score, metadata: metadata}
}

// ID returns the client-side record id.
func (m Match) ID() string { return m.id }

// Score returns the similarity score reported by the backend.
func (m Match) Score() float64 { return m.score }

// Metadata returns the match metadata (nil when not requested).
func (m Match) Metadata() map[string]any { return m.metadata }

// Filter restricts queries and deletes to records whose metadata key holds
// one of the listed values.
type Filter map[string][]any

// Keys returns the filter keys in sorted order.
func (f Filter) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Empty reports whether the filter has no constraints.
func (f Filter) Empty() bool { return len(f) == 0 }

// Query describes a similarity search.
type Query struct {
	Collection      string
	Vector          []float64
	TopK            int
	Filter          Filter
	IncludeMetadata bool
}

// Limit returns TopK, or DefaultTopK when unset.
func (q Query) Limit() int {
	if q.TopK <= 0 {
		return DefaultTopK
	}
	return q.TopK
}

// PartitionStats reports the contents of one namespace or collection.
type PartitionStats struct {
	Name         string
	RecordCount  int64
	Shards       int
	DynamicField bool
	Fields       []string
}

// Store is implemented by every vector database backend.
type Store interface {
	// Name returns the backend name, e.g. "pinecone".
	Name() string

	// Upsert inserts or overwrites records in the collection. Backends that
	// need explicit collections create them on first use.
	Upsert(ctx context.Context, collection string, records []Record) error

	// Delete removes records by client id or by metadata filter.
	Delete(ctx context.Context, collection string, ids []string, filter Filter) error

	// DeleteAll removes every record in the collection.
	DeleteAll(ctx context.Context, collection string) error

	// Query returns the nearest records to the query vector.
	Query(ctx context.Context, query Query) ([]Match, error)

	// Fetch returns records by client id.
	Fetch(ctx context.Context, collection string, ids []string) ([]Record, error)

	// Stats returns per-partition counts. An empty collection means all.
	Stats(ctx context.Context, collection string) ([]PartitionStats, error)
}
