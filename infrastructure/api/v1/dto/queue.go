package dto

import "time"

// TaskResponse is one queued task.
type TaskResponse struct {
	ID        int64          `json:"id"`
	Operation string         `json:"operation"`
	Priority  int            `json:"priority"`
	Attempts  int            `json:"attempts"`
	DedupKey  string         `json:"dedup_key"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TaskListResponse is a page of queued tasks.
type TaskListResponse struct {
	Data []TaskResponse `json:"data"`
	Meta map[string]any `json:"meta"`
}
