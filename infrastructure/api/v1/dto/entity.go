// Package dto holds the JSON request and response bodies of the v1 API.
package dto

// EntityRequest identifies one content entity.
type EntityRequest struct {
	EntityType string `json:"entity_type"`
	EntityID   int64  `json:"entity_id"`
	Bundle     string `json:"bundle,omitempty"`
	Priority   string `json:"priority,omitempty"`
}

// EntityRef is an entity reference in responses.
type EntityRef struct {
	EntityType string `json:"entity_type"`
	EntityID   int64  `json:"entity_id"`
	Bundle     string `json:"bundle,omitempty"`
}

// EnqueuedResponse acknowledges a queued entity operation.
type EnqueuedResponse struct {
	Operation string    `json:"operation"`
	Entity    EntityRef `json:"entity"`
	Priority  int       `json:"priority"`
}

// SyncResultResponse reports a synchronous entity sync.
type SyncResultResponse struct {
	Entity   EntityRef `json:"entity"`
	Embedded int       `json:"embedded"`
	Failed   int       `json:"failed"`
	Skipped  bool      `json:"skipped"`
	Tokens   int       `json:"tokens"`
}
