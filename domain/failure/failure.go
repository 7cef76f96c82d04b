// Package failure defines the error taxonomy shared by the sync pipeline.
//
// Every remote or configuration failure surfaces as one of four typed errors.
// Callers branch on the sentinel values with errors.Is and extract details
// with errors.As.
package failure

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the typed errors below.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrProvider      = errors.New("provider error")
	ErrVectorStore   = errors.New("vector store error")
	ErrGuardRejected = errors.New("operation rejected by guard")
)

// ConfigurationError reports missing or invalid settings. It is raised before
// any network call and is never retried.
type ConfigurationError struct {
	component string
	setting   string
	reason    string
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(component, setting, reason string) *ConfigurationError {
	return &ConfigurationError{component: component, setting: setting, reason: reason}
}

// Component returns the component that rejected its configuration.
func (e *ConfigurationError) Component() string { return e.component }

// Setting returns the offending setting name.
func (e *ConfigurationError) Setting() string { return e.setting }

// Reason returns the human readable reason.
func (e *ConfigurationError) Reason() string { return e.reason }

func (e *ConfigurationError) Error() string {
	if e.setting == "" {
		return fmt.Sprintf("%s: %s", e.component, e.reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.component, e.setting, e.reason)
}

// Is matches ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// ProviderError reports an embedding API transport or response failure.
type ProviderError struct {
	operation  string
	statusCode int
	message    string
	cause      error
}

// NewProviderError creates a ProviderError.
func NewProviderError(operation string, statusCode int, message string, cause error) *ProviderError {
	return &ProviderError{operation: operation, statusCode: statusCode, message: message, cause: cause}
}

// Operation returns the provider operation that failed.
func (e *ProviderError) Operation() string { return e.operation }

// StatusCode returns the HTTP status code, or zero when none was received.
func (e *ProviderError) StatusCode() int { return e.statusCode }

// Message returns the provider message.
func (e *ProviderError) Message() string { return e.message }

func (e *ProviderError) Error() string {
	if e.statusCode > 0 {
		return fmt.Sprintf("provider %s failed (status %d): %s", e.operation, e.statusCode, e.message)
	}
	return fmt.Sprintf("provider %s failed: %s", e.operation, e.message)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error { return e.cause }

// Is matches ErrProvider.
func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// VectorStoreError reports a transport, validation, or backend-specific
// failure in a vector database call.
type VectorStoreError struct {
	backend    string
	operation  string
	statusCode int
	message    string
	cause      error
}

// NewVectorStoreError creates a VectorStoreError.
func NewVectorStoreError(backend, operation string, statusCode int, message string, cause error) *VectorStoreError {
	return &VectorStoreError{
		backend:    backend,
		operation:  operation,
		statusCode: statusCode,
		message:    message,
		cause:      cause,
	}
}

// Backend returns the backend name.
func (e *VectorStoreError) Backend() string { return e.backend }

// Operation returns the failed operation.
func (e *VectorStoreError) Operation() string { return e.operation }

// StatusCode returns the HTTP status code, or zero.
func (e *VectorStoreError) StatusCode() int { return e.statusCode }

// Message returns the failure message.
func (e *VectorStoreError) Message() string { return e.message }

func (e *VectorStoreError) Error() string {
	msg := fmt.Sprintf("%s %s", e.backend, e.operation)
	if e.statusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.statusCode)
	}
	msg = fmt.Sprintf("%s: %s", msg, e.message)
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *VectorStoreError) Unwrap() error { return e.cause }

// Is matches ErrVectorStore.
func (e *VectorStoreError) Is(target error) bool { return target == ErrVectorStore }

// GuardRejection reports an operation disallowed by configuration policy.
type GuardRejection struct {
	backend   string
	operation string
	reason    string
}

// NewGuardRejection creates a GuardRejection.
func NewGuardRejection(backend, operation, reason string) *GuardRejection {
	return &GuardRejection{backend: backend, operation: operation, reason: reason}
}

// Operation returns the rejected operation.
func (e *GuardRejection) Operation() string { return e.operation }

func (e *GuardRejection) Error() string {
	return fmt.Sprintf("%s %s rejected: %s", e.backend, e.operation, e.reason)
}

// Is matches ErrGuardRejected.
func (e *GuardRejection) Is(target error) bool { return target == ErrGuardRejected }

// Retryable reports whether a work item that failed with err should be tried
// again. Configuration and guard failures cannot succeed on a retry.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrConfiguration) && !errors.Is(err, ErrGuardRejected)
}
