package task

import "strings"

// Operation represents the type of task operation.
type Operation string

// Operation values for the task queue system.
const (
	OperationSyncEntity   Operation = "embedsync.entity.sync"
	OperationDeleteEntity Operation = "embedsync.entity.delete"
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	return string(o)
}

// IsEntityOperation returns true if the operation acts on a single content entity.
func (o Operation) IsEntityOperation() bool {
	return strings.HasPrefix(string(o), "embedsync.entity.")
}

// AllOperations returns every operation the worker must have a handler for.
// Used at startup to validate the handler registry.
func AllOperations() []Operation {
	return []Operation{OperationSyncEntity, OperationDeleteEntity}
}

// ParseOperation maps a short trigger verb ("sync", "delete") or a full
// operation name to an Operation. Empty input means sync.
func ParseOperation(s string) (Operation, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sync", string(OperationSyncEntity):
		return OperationSyncEntity, true
	case "delete", string(OperationDeleteEntity):
		return OperationDeleteEntity, true
	default:
		return "", false
	}
}
