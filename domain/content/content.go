// Package content describes the CMS entities the pipeline reads from.
package content

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// EntityTypeNode is the entity type of CMS nodes, the default sync target.
const EntityTypeNode = "node"

// ErrNotFound indicates the requested entity does not exist in the CMS.
var ErrNotFound = errors.New("content not found")

// SupportedFieldTypes lists the field types whose values are embedded.
var SupportedFieldTypes = []string{
	"string",
	"string_long",
	"text",
	"text_long",
	"text_with_summary",
	"text_textarea_with_summary",
}

// IsSupportedFieldType reports whether values of fieldType are embedded.
func IsSupportedFieldType(fieldType string) bool {
	return slices.Contains(SupportedFieldTypes, fieldType)
}

// Ref identifies a content entity.
type Ref struct {
	entityType string
	entityID   int64
	bundle     string
}

// NewRef creates a Ref.
func NewRef(entityType string, entityID int64, bundle string) Ref {
	return Ref{
		entityType: strings.TrimSpace(entityType),
		entityID:   entityID,
		bundle:     strings.TrimSpace(bundle),
	}
}

// EntityType returns the entity type, e.g. "node".
func (r Ref) EntityType() string { return r.entityType }

// EntityID returns the entity id.
func (r Ref) EntityID() int64 { return r.entityID }

// Bundle returns the bundle, e.g. "article".
func (r Ref) Bundle() string { return r.bundle }

// WithBundle returns a copy of the ref with the bundle set.
func (r Ref) WithBundle(bundle string) Ref {
	r.bundle = bundle
	return r
}

// Validate checks the ref carries an entity type and a positive id.
func (r Ref) Validate() error {
	if r.entityType == "" {
		return fmt.Errorf("content ref: entity type is required")
	}
	if r.entityID <= 0 {
		return fmt.Errorf("content ref: entity id must be positive, got %d", r.entityID)
	}
	return nil
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%d (%s)", r.entityType, r.entityID, r.bundle)
}

// Field is one field of an entity with its ordered values (deltas).
type Field struct {
	name      string
	fieldType string
	values    []string
}

// NewField creates a Field. Values are kept in delta order.
func NewField(name, fieldType string, values []string) Field {
	v := make([]string, len(values))
	copy(v, values)
	return Field{name: name, fieldType: fieldType, values: v}
}

// Name returns the field machine name.
func (f Field) Name() string { return f.name }

// Type returns the field type.
func (f Field) Type() string { return f.fieldType }

// Values returns a copy of the field values; index is the delta.
func (f Field) Values() []string {
	v := make([]string, len(f.values))
	copy(v, f.values)
	return v
}

// Supported reports whether this field's type is embedded.
func (f Field) Supported() bool { return IsSupportedFieldType(f.fieldType) }

// Item is a loaded content entity with fields in definition order.
type Item struct {
	ref    Ref
	fields []Field
}

// NewItem creates an Item.
func NewItem(ref Ref, fields []Field) Item {
	f := make([]Field, len(fields))
	copy(f, fields)
	return Item{ref: ref, fields: f}
}

// Ref returns the item reference.
func (i Item) Ref() Ref { return i.ref }

// Fields returns the fields in definition order.
func (i Item) Fields() []Field {
	f := make([]Field, len(i.fields))
	copy(f, i.fields)
	return f
}

// Source loads content entities from the CMS.
type Source interface {
	// Load returns the entity with its fields. Returns ErrNotFound when
	// the entity does not exist.
	Load(ctx context.Context, ref Ref) (Item, error)

	// List returns refs for every entity of entityType in the given bundles.
	List(ctx context.Context, entityType string, bundles []string) ([]Ref, error)
}
