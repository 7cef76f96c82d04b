package dto

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	Text       string           `json:"text"`
	EntityType string           `json:"entity_type,omitempty"`
	TopK       int              `json:"top_k,omitempty"`
	Filter     map[string][]any `json:"filter,omitempty"`
}

// SearchMatch is one search hit.
type SearchMatch struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SearchResponse lists search hits, best first.
type SearchResponse struct {
	Data []SearchMatch `json:"data"`
}
