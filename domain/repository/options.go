package repository

// WithEntityType filters by the "entity_type" column.
func WithEntityType(entityType string) Option {
	return WithCondition("entity_type", entityType)
}

// WithEntityID filters by the "entity_id" column.
func WithEntityID(id int64) Option {
	return WithCondition("entity_id", id)
}

// WithBundle filters by the "bundle" column.
func WithBundle(bundle string) Option {
	return WithCondition("bundle", bundle)
}

// WithBundleIn filters by the "bundle" column using IN.
func WithBundleIn(bundles []string) Option {
	return WithConditionIn("bundle", bundles)
}

// WithFieldName filters by the "field_name" column.
func WithFieldName(name string) Option {
	return WithCondition("field_name", name)
}

// WithFieldDelta filters by the "field_delta" column.
func WithFieldDelta(delta int) Option {
	return WithCondition("field_delta", delta)
}

// WithOperation filters tasks by the "type" column.
func WithOperation(operation string) Option {
	return WithCondition("type", operation)
}
