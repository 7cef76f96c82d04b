// Package handler provides task handlers for processing queued operations.
package handler

import (
	"encoding/json"
	"fmt"

	"github.com/helixml/embedsync/domain/content"
	"github.com/helixml/embedsync/domain/task"
)

// ExtractInt64 extracts an int64 value from the payload. Payloads read back
// from storage carry numbers as float64.
func ExtractInt64(payload map[string]any, key string) (int64, error) {
	val, ok := payload[key]
	if !ok {
		return 0, fmt.Errorf("missing required field: %s", key)
	}

	switch v := val.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("invalid value for %s: %w", key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("invalid type for %s: %T", key, val)
	}
}

// ExtractString extracts a string value from the payload.
func ExtractString(payload map[string]any, key string) (string, error) {
	val, ok := payload[key]
	if !ok {
		return "", fmt.Errorf("missing required field: %s", key)
	}

	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("invalid type for %s: expected string, got %T", key, val)
	}

	return s, nil
}

// ExtractRef extracts the entity reference from a task payload. The bundle
// is optional.
func ExtractRef(payload map[string]any) (content.Ref, error) {
	entityType, err := ExtractString(payload, task.KeyEntityType)
	if err != nil {
		return content.Ref{}, err
	}

	entityID, err := ExtractInt64(payload, task.KeyEntityID)
	if err != nil {
		return content.Ref{}, err
	}

	var bundle string
	if _, ok := payload[task.KeyBundle]; ok {
		if bundle, err = ExtractString(payload, task.KeyBundle); err != nil {
			return content.Ref{}, err
		}
	}

	ref := content.NewRef(entityType, entityID, bundle)
	if err := ref.Validate(); err != nil {
		return content.Ref{}, err
	}
	return ref, nil
}
