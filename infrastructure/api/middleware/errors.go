package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/helixml/embedsync/application/service"
	"github.com/helixml/embedsync/domain/content"
	"github.com/helixml/embedsync/domain/failure"
	"github.com/helixml/embedsync/internal/database"
	"github.com/helixml/embedsync/internal/log"
)

// Sentinel errors matched by the typed API errors.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrServer         = errors.New("server error")
)

// APIError carries an explicit HTTP status.
type APIError struct {
	code    int
	message string
	cause   error
}

// NewAPIError creates an APIError.
func NewAPIError(code int, message string, cause error) *APIError {
	return &APIError{code: code, message: message, cause: cause}
}

// Code returns the HTTP status code.
func (e *APIError) Code() int { return e.code }

// Message returns the client facing message.
func (e *APIError) Message() string { return e.message }

func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("api error %d: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("api error %d: %s", e.code, e.message)
}

// Unwrap returns the cause.
func (e *APIError) Unwrap() error { return e.cause }

// AuthenticationError reports a missing or invalid API key.
type AuthenticationError struct {
	reason string
}

// NewAuthenticationError creates an AuthenticationError.
func NewAuthenticationError(reason string) *AuthenticationError {
	return &AuthenticationError{reason: reason}
}

func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.reason
}

// Is matches ErrAuthentication.
func (e *AuthenticationError) Is(target error) bool { return target == ErrAuthentication }

// ServerError reports a server side condition with a chosen status.
type ServerError struct {
	statusCode int
	message    string
}

// NewServerError creates a ServerError.
func NewServerError(statusCode int, message string) *ServerError {
	return &ServerError{statusCode: statusCode, message: message}
}

// StatusCode returns the HTTP status code.
func (e *ServerError) StatusCode() int { return e.statusCode }

// Message returns the message.
func (e *ServerError) Message() string { return e.message }

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.statusCode, e.message)
}

// Is matches ErrServer.
func (e *ServerError) Is(target error) bool { return target == ErrServer }

// ErrorObject is one entry of an error response.
type ErrorObject struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Errors []ErrorObject `json:"errors"`
}

// StatusFor maps an error to its HTTP status and title.
func StatusFor(err error) (int, string) {
	var (
		apiErr    *APIError
		serverErr *ServerError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)

	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code(), http.StatusText(apiErr.Code())
	case errors.As(err, &serverErr):
		return serverErr.StatusCode(), http.StatusText(serverErr.StatusCode())
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, failure.ErrConfiguration):
		return http.StatusServiceUnavailable, "Not Configured"
	case errors.Is(err, failure.ErrGuardRejected):
		return http.StatusForbidden, "Rejected"
	case errors.Is(err, failure.ErrProvider):
		return http.StatusBadGateway, "Embedding Provider Error"
	case errors.Is(err, failure.ErrVectorStore):
		return http.StatusBadGateway, "Vector Store Error"
	case errors.Is(err, content.ErrNotFound), errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, service.ErrInvalidRef),
		errors.Is(err, service.ErrEmptyQuery),
		errors.Is(err, service.ErrCollectionRequired):
		return http.StatusBadRequest, "Bad Request"
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return http.StatusBadRequest, "Malformed Body"
	}
	return http.StatusInternalServerError, "Internal Server Error"
}

// WriteError writes an error response and logs it with the request's
// correlation id.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	status, title := StatusFor(err)
	correlationID := log.CorrelationID(r.Context())

	if logger != nil {
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(r.Context(), level, "request error",
			slog.Int("status", status),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}

	detail := err.Error()
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		detail = apiErr.Message()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Errors: []ErrorObject{{
			ID:     correlationID,
			Status: strconv.Itoa(status),
			Title:  title,
			Detail: detail,
		}},
	})
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
