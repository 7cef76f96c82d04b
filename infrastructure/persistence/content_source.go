package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/helixml/embedsync/domain/content"
	"github.com/helixml/embedsync/internal/database"
)

// EntityTable describes the base table holding one entity type.
type EntityTable struct {
	Table        string
	IDColumn     string
	BundleColumn string
}

// ContentSource reads CMS entities from the field storage schema:
// a base table per entity type, field_config, field_config_instance and one
// field_data_<field_name> table per field.
type ContentSource struct {
	db     database.Database
	tables map[string]EntityTable
}

// ContentSourceOption configures a ContentSource.
type ContentSourceOption func(*ContentSource)

// WithEntityTable registers the base table of an entity type.
func WithEntityTable(entityType string, table EntityTable) ContentSourceOption {
	return func(s *ContentSource) {
		s.tables[entityType] = table
	}
}

// NewContentSource creates a ContentSource. Nodes are registered by default.
func NewContentSource(db database.Database, options ...ContentSourceOption) *ContentSource {
	s := &ContentSource{
		db: db,
		tables: map[string]EntityTable{
			content.EntityTypeNode: {Table: "node", IDColumn: "nid", BundleColumn: "type"},
		},
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

type fieldInstanceRow struct {
	FieldName string
	Type      string
}

type fieldValueRow struct {
	Value sql.NullString
}

type entityRow struct {
	ID     int64
	Bundle string
}

// Load returns the entity with its fields in definition order. Values are
// only read for supported field types.
func (s *ContentSource) Load(ctx context.Context, ref content.Ref) (content.Item, error) {
	table, err := s.table(ref.EntityType())
	if err != nil {
		return content.Item{}, err
	}

	var rows []entityRow
	query := fmt.Sprintf("SELECT %s AS id, %s AS bundle FROM %s WHERE %s = ?",
		table.IDColumn, table.BundleColumn, table.Table, table.IDColumn)
	if err := s.db.Session(ctx).Raw(query, ref.EntityID()).Scan(&rows).Error; err != nil {
		return content.Item{}, fmt.Errorf("load %s: %w", ref, err)
	}
	if len(rows) == 0 {
		return content.Item{}, fmt.Errorf("%w: %s %d", content.ErrNotFound, ref.EntityType(), ref.EntityID())
	}
	loaded := content.NewRef(ref.EntityType(), rows[0].ID, rows[0].Bundle)

	var instances []fieldInstanceRow
	err = s.db.Session(ctx).Raw(
		`SELECT fci.field_name AS field_name, fc.type AS type
		FROM field_config_instance fci
		JOIN field_config fc ON fc.field_name = fci.field_name
		WHERE fci.entity_type = ? AND fci.bundle = ?
		ORDER BY fci.id`,
		loaded.EntityType(), loaded.Bundle(),
	).Scan(&instances).Error
	if err != nil {
		return content.Item{}, fmt.Errorf("load field instances for %s: %w", loaded, err)
	}

	fields := make([]content.Field, 0, len(instances))
	for _, inst := range instances {
		if !content.IsSupportedFieldType(inst.Type) {
			fields = append(fields, content.NewField(inst.FieldName, inst.Type, nil))
			continue
		}
		values, err := s.fieldValues(ctx, loaded, inst.FieldName)
		if err != nil {
			return content.Item{}, err
		}
		fields = append(fields, content.NewField(inst.FieldName, inst.Type, values))
	}

	return content.NewItem(loaded, fields), nil
}

// fieldValues returns the field values in delta order. Rows flagged deleted
// are ignored; a NULL value is kept as an empty string so deltas line up.
func (s *ContentSource) fieldValues(ctx context.Context, ref content.Ref, fieldName string) ([]string, error) {
	if !validIdentifier(fieldName) {
		return nil, fmt.Errorf("load field %q: invalid field name", fieldName)
	}
	var rows []fieldValueRow
	query := fmt.Sprintf(
		"SELECT %s_value AS value FROM field_data_%s WHERE entity_type = ? AND entity_id = ? AND deleted = 0 ORDER BY delta",
		fieldName, fieldName,
	)
	if err := s.db.Session(ctx).Raw(query, ref.EntityType(), ref.EntityID()).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("load field %s for %s: %w", fieldName, ref, err)
	}
	values := make([]string, len(rows))
	for i, row := range rows {
		values[i] = row.Value.String
	}
	return values, nil
}

// List returns refs for every entity of entityType in one of bundles,
// ordered by id. No bundles means no entities.
func (s *ContentSource) List(ctx context.Context, entityType string, bundles []string) ([]content.Ref, error) {
	if len(bundles) == 0 {
		return []content.Ref{}, nil
	}
	table, err := s.table(entityType)
	if err != nil {
		return nil, err
	}

	var rows []entityRow
	query := fmt.Sprintf("SELECT %s AS id, %s AS bundle FROM %s WHERE %s IN ? ORDER BY %s",
		table.IDColumn, table.BundleColumn, table.Table, table.BundleColumn, table.IDColumn)
	if err := s.db.Session(ctx).Raw(query, bundles).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", entityType, err)
	}

	refs := make([]content.Ref, len(rows))
	for i, row := range rows {
		refs[i] = content.NewRef(entityType, row.ID, row.Bundle)
	}
	return refs, nil
}

func (s *ContentSource) table(entityType string) (EntityTable, error) {
	table, ok := s.tables[entityType]
	if !ok {
		return EntityTable{}, errors.New("unsupported entity type: " + entityType)
	}
	return table, nil
}

func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}
