package dto

// PartitionResponse reports one namespace or collection.
type PartitionResponse struct {
	Name         string   `json:"name"`
	RecordCount  int64    `json:"record_count"`
	Shards       int      `json:"shards,omitempty"`
	DynamicField bool     `json:"dynamic_field,omitempty"`
	Fields       []string `json:"fields,omitempty"`
}

// StatsResponse lists partition statistics for the active backend.
type StatsResponse struct {
	Backend    string              `json:"backend"`
	Partitions []PartitionResponse `json:"partitions"`
}
