package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/helixml/embedsync/domain/vector"
	"github.com/helixml/embedsync/internal/config"
)

// MilvusName is the plugin name of the Milvus backend.
const MilvusName = "milvus"

const (
	milvusOK          = 200
	milvusSourceField = "source_id"
	milvusVectorField = "vector"
)

// Milvus is a vector.Store backed by the Milvus v1 REST API. Milvus assigns
// its own primary keys, so the client id is kept in the source_id field.
type Milvus struct {
	backend
	dimension int
}

// NewMilvus creates a Milvus client.
func NewMilvus(cfg config.MilvusConfig, logger *slog.Logger) (*Milvus, error) {
	host, err := sanitizeHost(MilvusName, "MILVUS_HOSTNAME", cfg.Hostname())
	if err != nil {
		return nil, err
	}
	token, err := requireCredential(MilvusName, "MILVUS_TOKEN", cfg.Token())
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+token)
	headers.Set("Accept", "application/json")
	headers.Set("Content-Type", "application/json")

	dimension := cfg.Dimension()
	if dimension <= 0 {
		dimension = config.DefaultMilvusDimension
	}

	return &Milvus{
		backend:   newBackend(MilvusName, host, cfg.Timeout(), headers, logger),
		dimension: dimension,
	}, nil
}

// Name returns "milvus".
func (m *Milvus) Name() string { return MilvusName }

type milvusResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// call performs a request and unwraps the {"code","data"} envelope. Numbers
// in data decode as json.Number so int64 primary keys survive.
func (m *Milvus) call(ctx context.Context, operation, method, path string, query url.Values, body, out any) error {
	var resp milvusResponse
	if err := m.doJSON(ctx, operation, method, path, query, body, &resp); err != nil {
		return err
	}
	if resp.Code != milvusOK {
		msg := resp.Message
		if msg == "" {
			msg = "unexpected response code"
		}
		return m.fail(operation, resp.Code, msg, nil)
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(resp.Data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return m.fail(operation, 0, "decode response data", err)
	}
	return nil
}

func (m *Milvus) listCollections(ctx context.Context) ([]string, error) {
	var names []string
	if err := m.call(ctx, "list_collections", http.MethodGet, "/v1/vector/collections", nil, nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

func (m *Milvus) ensureCollection(ctx context.Context, collection string) error {
	names, err := m.listCollections(ctx)
	if err != nil {
		return err
	}
	if slices.Contains(names, collection) {
		return nil
	}

	m.logger.InfoContext(ctx, "creating collection", "collection", collection, "dimension", m.dimension)
	err = m.call(ctx, "create_collection", http.MethodPost, "/v1/vector/collections/create", nil, map[string]any{
		"collectionName": collection,
		"dimension":      m.dimension,
	}, nil)
	if err != nil {
		return err
	}

	// Milvus accepts invalid names without reporting an error.
	names, err = m.listCollections(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(names, collection) {
		return m.fail("create_collection", 0, "failed to create collection "+collection, nil)
	}
	return nil
}

// resolveIDs returns the native primary keys of rows matching expr. Keys
// are json.Number for int64 primary keys and string for varchar ones.
func (m *Milvus) resolveIDs(ctx context.Context, collection, expr string) ([]any, error) {
	var rows []map[string]any
	err := m.call(ctx, "resolve_ids", http.MethodPost, "/v1/vector/get", nil, map[string]any{
		"collectionName": collection,
		"filter":         expr,
		"outputFields":   []string{"id"},
	}, &rows)
	if err != nil {
		return nil, err
	}
	ids := make([]any, 0, len(rows))
	for _, row := range rows {
		switch id := row["id"].(type) {
		case json.Number, string:
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *Milvus) deleteNative(ctx context.Context, operation, collection string, ids []any) error {
	if len(ids) == 0 {
		return nil
	}
	return m.call(ctx, operation, http.MethodPost, "/v1/vector/delete", nil, map[string]any{
		"collectionName": collection,
		"id":             ids,
	}, nil)
}

// Upsert replaces any rows with the same source ids, then inserts records.
// The collection is created on first use.
func (m *Milvus) Upsert(ctx context.Context, collection string, records []vector.Record) error {
	if err := m.requireCollection("upsert", collection); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	if err := m.ensureCollection(ctx, collection); err != nil {
		return err
	}

	sourceIDs := make([]string, len(records))
	rows := make([]map[string]any, len(records))
	for i, r := range records {
		sourceIDs[i] = r.ID()
		row := r.Metadata()
		row[milvusVectorField] = r.Values()
		row[milvusSourceField] = r.ID()
		rows[i] = row
	}

	// Milvus has no upsert by source_id; the previous rows must be gone before
	// inserting or the key ends up with two rows.
	existing, err := m.resolveIDs(ctx, collection, sourceIDFilter(sourceIDs))
	if err != nil {
		return err
	}
	if err := m.deleteNative(ctx, "upsert", collection, existing); err != nil {
		return err
	}

	return m.call(ctx, "upsert", http.MethodPost, "/v1/vector/insert", nil, map[string]any{
		"collectionName": collection,
		"data":           rows,
	}, nil)
}

// Delete removes rows by source id or by metadata filter.
func (m *Milvus) Delete(ctx context.Context, collection string, ids []string, filter vector.Filter) error {
	if err := m.requireCollection("delete", collection); err != nil {
		return err
	}
	var expr string
	switch {
	case len(ids) == 0 && filter.Empty():
		return m.fail("delete", 0, "ids or filter required", nil)
	case len(ids) > 0 && !filter.Empty():
		return m.fail("delete", 0, "ids and filter are mutually exclusive", nil)
	case len(ids) > 0:
		expr = sourceIDFilter(ids)
	default:
		expr = milvusFilter(filter)
	}

	native, err := m.resolveIDs(ctx, collection, expr)
	if err != nil {
		return err
	}
	return m.deleteNative(ctx, "delete", collection, native)
}

// DeleteAll drops the collection.
func (m *Milvus) DeleteAll(ctx context.Context, collection string) error {
	if err := m.requireCollection("delete_all", collection); err != nil {
		return err
	}
	return m.call(ctx, "delete_all", http.MethodPost, "/v1/vector/collections/drop", nil, map[string]any{
		"collectionName": collection,
	}, nil)
}

// Query searches the collection. The match id is the row's source_id.
func (m *Milvus) Query(ctx context.Context, q vector.Query) ([]vector.Match, error) {
	if err := m.requireCollection("query", q.Collection); err != nil {
		return nil, err
	}
	body := map[string]any{
		"collectionName": q.Collection,
		"vector":         q.Vector,
		"limit":          q.Limit(),
	}
	if q.IncludeMetadata {
		body["outputFields"] = []string{"*"}
	}
	if !q.Filter.Empty() {
		body["filter"] = milvusFilter(q.Filter)
	}

	var rows []map[string]any
	if err := m.call(ctx, "query", http.MethodPost, "/v1/vector/search", nil, body, &rows); err != nil {
		return nil, err
	}

	matches := make([]vector.Match, len(rows))
	for i, row := range rows {
		var metadata map[string]any
		if q.IncludeMetadata {
			metadata = rowMetadata(row)
		}
		matches[i] = vector.NewMatch(rowSourceID(row), toFloat(row["distance"]), metadata)
	}
	return matches, nil
}

// Fetch returns rows by source id.
func (m *Milvus) Fetch(ctx context.Context, collection string, ids []string) ([]vector.Record, error) {
	if err := m.requireCollection("fetch", collection); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []vector.Record{}, nil
	}

	var rows []map[string]any
	err := m.call(ctx, "fetch", http.MethodPost, "/v1/vector/get", nil, map[string]any{
		"collectionName": collection,
		"filter":         sourceIDFilter(ids),
		"outputFields":   []string{"*"},
	}, &rows)
	if err != nil {
		return nil, err
	}

	records := make([]vector.Record, len(rows))
	for i, row := range rows {
		var values []float64
		if raw, ok := row[milvusVectorField].([]any); ok {
			values = make([]float64, len(raw))
			for j, v := range raw {
				values[j] = toFloat(v)
			}
		}
		records[i] = vector.NewRecord(rowSourceID(row), values, rowMetadata(row))
	}
	return records, nil
}

type milvusDescribe struct {
	CollectionName     string `json:"collectionName"`
	ShardsNum          int    `json:"shardsNum"`
	EnableDynamicField bool   `json:"enableDynamicField"`
	Fields             []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"fields"`
}

// Stats describes one collection, or every collection when none is given.
func (m *Milvus) Stats(ctx context.Context, collection string) ([]vector.PartitionStats, error) {
	names := []string{collection}
	if collection == "" {
		var err error
		if names, err = m.listCollections(ctx); err != nil {
			return nil, err
		}
	}

	stats := make([]vector.PartitionStats, 0, len(names))
	for _, name := range names {
		var desc milvusDescribe
		err := m.call(ctx, "stats", http.MethodGet, "/v1/vector/collections/describe",
			url.Values{"collectionName": {name}}, nil, &desc)
		if err != nil {
			return nil, err
		}

		count, err := m.count(ctx, name)
		if err != nil {
			return nil, err
		}

		fields := make([]string, len(desc.Fields))
		for i, f := range desc.Fields {
			fields[i] = fmt.Sprintf("%s (%s)", f.Name, f.Type)
		}
		stats = append(stats, vector.PartitionStats{
			Name:         desc.CollectionName,
			RecordCount:  count,
			Shards:       desc.ShardsNum,
			DynamicField: desc.EnableDynamicField,
			Fields:       fields,
		})
	}
	return stats, nil
}

func (m *Milvus) count(ctx context.Context, collection string) (int64, error) {
	var rows []map[string]any
	err := m.call(ctx, "stats", http.MethodPost, "/v1/vector/query", nil, map[string]any{
		"collectionName": collection,
		"outputFields":   []string{"count(*)"},
	}, &rows)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return int64(toFloat(rows[0]["count(*)"])), nil
}

// sourceIDFilter renders `source_id in ["a", "b"]`.
func sourceIDFilter(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = strconv.Quote(id)
	}
	return milvusSourceField + " in [" + strings.Join(quoted, ", ") + "]"
}

// milvusFilter renders each key as `key in [...]`, joined by AND. Strings
// are single-quoted, numbers are written bare.
func milvusFilter(filter vector.Filter) string {
	clauses := make([]string, 0, len(filter))
	for _, key := range filter.Keys() {
		values := make([]string, len(filter[key]))
		for i, v := range filter[key] {
			values[i] = milvusLiteral(v)
		}
		clauses = append(clauses, fmt.Sprintf("%s in [%s]", key, strings.Join(values, ",")))
	}
	return strings.Join(clauses, " AND ")
}

func milvusLiteral(v any) string {
	switch val := v.(type) {
	case int, int32, int64, uint, uint32, uint64, float32, float64, json.Number:
		return fmt.Sprint(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		s := fmt.Sprint(val)
		return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
	}
}

func rowSourceID(row map[string]any) string {
	if id, ok := row[milvusSourceField].(string); ok {
		return id
	}
	return fmt.Sprint(row["id"])
}

// rowMetadata strips Milvus bookkeeping fields from a result row.
func rowMetadata(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		switch k {
		case "id", "distance", milvusSourceField, milvusVectorField:
			continue
		}
		out[k] = normalizeNumber(v)
	}
	return out
}

// normalizeNumber turns json.Number into int64 when integral, else float64.
func normalizeNumber(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	f, _ := n.Float64()
	return f
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case json.Number:
		f, _ := n.Float64()
		return f
	case float64:
		return n
	}
	return 0
}

var _ vector.Store = (*Milvus)(nil)

