package vectorstore

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sort"

	"github.com/helixml/embedsync/domain/failure"
	"github.com/helixml/embedsync/domain/vector"
	"github.com/helixml/embedsync/internal/config"
)

// PineconeName is the plugin name of the Pinecone backend.
const PineconeName = "pinecone"

// NoNamespaceLabel names the default namespace in stats.
const NoNamespaceLabel = "No namespace entered"

// Pinecone is a vector.Store backed by a Pinecone index. Collections map to
// namespaces, which need no creation call.
type Pinecone struct {
	backend
	disableNamespace bool
}

// NewPinecone creates a Pinecone client. When namespaces are disabled every
// record is written to the default namespace and DeleteAll is refused.
func NewPinecone(cfg config.PineconeConfig, logger *slog.Logger) (*Pinecone, error) {
	host, err := sanitizeHost(PineconeName, "PINECONE_HOSTNAME", cfg.Hostname())
	if err != nil {
		return nil, err
	}
	apiKey, err := requireCredential(PineconeName, "PINECONE_API_KEY", cfg.APIKey())
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("API-Key", apiKey)
	headers.Set("Content-Type", "application/json")
	headers.Set("Accept", "application/json")

	return &Pinecone{
		backend:          newBackend(PineconeName, host, cfg.Timeout(), headers, logger),
		disableNamespace: cfg.DisableNamespace(),
	}, nil
}

// Name returns "pinecone".
func (p *Pinecone) Name() string { return PineconeName }

func (p *Pinecone) namespace(collection string) string {
	if p.disableNamespace {
		return ""
	}
	return collection
}

type pineconeVector struct {
	ID       string         `json:"id"`
	Values   []float64      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type pineconeUpsertRequest struct {
	Vectors   []pineconeVector `json:"vectors"`
	Namespace string           `json:"namespace,omitempty"`
}

// Upsert writes records into the collection's namespace.
func (p *Pinecone) Upsert(ctx context.Context, collection string, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}
	vectors := make([]pineconeVector, len(records))
	for i, r := range records {
		vectors[i] = pineconeVector{ID: r.ID(), Values: r.Values(), Metadata: r.Metadata()}
	}
	return p.doJSON(ctx, "upsert", http.MethodPost, "/vectors/upsert", nil, pineconeUpsertRequest{
		Vectors:   vectors,
		Namespace: p.namespace(collection),
	}, nil)
}

type pineconeDeleteRequest struct {
	IDs       []string       `json:"ids,omitempty"`
	DeleteAll bool           `json:"deleteAll,omitempty"`
	Namespace string         `json:"namespace,omitempty"`
	Filter    map[string]any `json:"filter,omitempty"`
}

// Delete removes records by id or by metadata filter. Exactly one of the
// two must be given.
func (p *Pinecone) Delete(ctx context.Context, collection string, ids []string, filter vector.Filter) error {
	switch {
	case len(ids) == 0 && filter.Empty():
		return p.fail("delete", 0, "ids or filter required", nil)
	case len(ids) > 0 && !filter.Empty():
		return p.fail("delete", 0, "ids and filter are mutually exclusive", nil)
	}
	return p.doJSON(ctx, "delete", http.MethodPost, "/vectors/delete", nil, pineconeDeleteRequest{
		IDs:       ids,
		Namespace: p.namespace(collection),
		Filter:    pineconeFilter(filter),
	}, nil)
}

// DeleteAll removes every record in the collection's namespace.
func (p *Pinecone) DeleteAll(ctx context.Context, collection string) error {
	if p.disableNamespace {
		return failure.NewGuardRejection(PineconeName, "delete_all",
			"namespaces are disabled, deleting all would empty the whole index")
	}
	return p.doJSON(ctx, "delete_all", http.MethodPost, "/vectors/delete", nil, pineconeDeleteRequest{
		DeleteAll: true,
		Namespace: p.namespace(collection),
	}, nil)
}

type pineconeQueryRequest struct {
	Vector          []float64      `json:"vector"`
	TopK            int            `json:"topK"`
	IncludeMetadata bool           `json:"includeMetadata"`
	IncludeValues   bool           `json:"includeValues"`
	Namespace       string         `json:"namespace,omitempty"`
	Filter          map[string]any `json:"filter,omitempty"`
}

type pineconeQueryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

// Query returns the nearest records in the collection's namespace.
func (p *Pinecone) Query(ctx context.Context, q vector.Query) ([]vector.Match, error) {
	var resp pineconeQueryResponse
	err := p.doJSON(ctx, "query", http.MethodPost, "/query", nil, pineconeQueryRequest{
		Vector:          q.Vector,
		TopK:            q.Limit(),
		IncludeMetadata: q.IncludeMetadata,
		Namespace:       p.namespace(q.Collection),
		Filter:          pineconeFilter(q.Filter),
	}, &resp)
	if err != nil {
		return nil, err
	}

	matches := make([]vector.Match, len(resp.Matches))
	for i, m := range resp.Matches {
		matches[i] = vector.NewMatch(m.ID, m.Score, m.Metadata)
	}
	return matches, nil
}

type pineconeFetchResponse struct {
	Vectors map[string]pineconeVector `json:"vectors"`
}

// Fetch returns the records with the given ids, in request order. Unknown
// ids are omitted.
func (p *Pinecone) Fetch(ctx context.Context, collection string, ids []string) ([]vector.Record, error) {
	if len(ids) == 0 {
		return []vector.Record{}, nil
	}
	query := url.Values{"ids": ids}
	if ns := p.namespace(collection); ns != "" {
		query.Set("namespace", ns)
	}

	var resp pineconeFetchResponse
	if err := p.doJSON(ctx, "fetch", http.MethodGet, "/vectors/fetch", query, nil, &resp); err != nil {
		return nil, err
	}

	records := make([]vector.Record, 0, len(ids))
	for _, id := range ids {
		if v, ok := resp.Vectors[id]; ok {
			records = append(records, vector.NewRecord(id, v.Values, v.Metadata))
		}
	}
	return records, nil
}

type pineconeStatsResponse struct {
	Namespaces map[string]struct {
		VectorCount int64 `json:"vectorCount"`
	} `json:"namespaces"`
}

// Stats returns the vector count of every namespace, or only of the
// collection's namespace when one is given.
func (p *Pinecone) Stats(ctx context.Context, collection string) ([]vector.PartitionStats, error) {
	var resp pineconeStatsResponse
	if err := p.doJSON(ctx, "stats", http.MethodPost, "/describe_index_stats", nil, struct{}{}, &resp); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(resp.Namespaces))
	for name := range resp.Namespaces {
		if collection != "" && name != p.namespace(collection) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	stats := make([]vector.PartitionStats, len(names))
	for i, name := range names {
		label := name
		if label == "" {
			label = NoNamespaceLabel
		}
		stats[i] = vector.PartitionStats{Name: label, RecordCount: resp.Namespaces[name].VectorCount}
	}
	return stats, nil
}

// pineconeFilter renders {"key": ["a","b"]} as {"key": {"$in": ["a","b"]}}.
func pineconeFilter(filter vector.Filter) map[string]any {
	if filter.Empty() {
		return nil
	}
	out := make(map[string]any, len(filter))
	for _, key := range filter.Keys() {
		out[key] = map[string]any{"$in": filter[key]}
	}
	return out
}

var _ vector.Store = (*Pinecone)(nil)
