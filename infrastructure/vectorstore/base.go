// Package vectorstore implements vector.Store for the supported vector
// database backends over their REST APIs.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/helixml/embedsync/domain/failure"
)

// maxErrorBody bounds how much of a failed response body is kept in errors.
const maxErrorBody = 512

// backend is the HTTP plumbing shared by every vector store client.
type backend struct {
	name    string
	baseURL string
	client  *http.Client
	headers http.Header
	logger  *slog.Logger
}

func newBackend(name, baseURL string, timeout time.Duration, headers http.Header, logger *slog.Logger) backend {
	if logger == nil {
		logger = slog.Default()
	}
	return backend{
		name:    name,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		headers: headers,
		logger:  logger.With("component", "vectorstore", "backend", name),
	}
}

// sanitizeHost trims the configured hostname and checks it is an absolute
// http(s) URL.
func sanitizeHost(component, setting, raw string) (string, error) {
	host := strings.TrimRight(strings.TrimSpace(raw), "/")
	if host == "" {
		return "", failure.NewConfigurationError(component, setting, "hostname is required")
	}
	u, err := url.Parse(host)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", failure.NewConfigurationError(component, setting, fmt.Sprintf("%q is not an absolute http(s) URL", host))
	}
	return host, nil
}

// requireCredential trims a credential and fails when it is empty.
func requireCredential(component, setting, raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", failure.NewConfigurationError(component, setting, "credential is required")
	}
	return value, nil
}

// fail builds a VectorStoreError for this backend.
func (b backend) fail(operation string, status int, message string, cause error) error {
	return failure.NewVectorStoreError(b.name, operation, status, message, cause)
}

// requireCollection rejects an empty collection name.
func (b backend) requireCollection(operation, collection string) error {
	if strings.TrimSpace(collection) == "" {
		return b.fail(operation, 0, "collection name is required", nil)
	}
	return nil
}

// doJSON sends body as JSON and decodes a 2xx response into out. A nil body
// sends no payload; a nil out discards the response.
func (b backend) doJSON(ctx context.Context, operation, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return b.fail(operation, 0, "encode request", err)
		}
		reader = bytes.NewReader(payload)
	}

	target := b.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return b.fail(operation, 0, "build request", err)
	}
	for key, values := range b.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		b.logger.WarnContext(ctx, "vector store request failed", "operation", operation, "path", path, "error", err)
		return b.fail(operation, 0, "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	b.logger.DebugContext(ctx, "vector store request",
		"operation", operation,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return b.fail(operation, resp.StatusCode, "read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return b.fail(operation, resp.StatusCode, truncate(strings.TrimSpace(string(respBody))), nil)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return b.fail(operation, resp.StatusCode, "decode response", err)
	}
	return nil
}

func truncate(s string) string {
	if s == "" {
		return "empty response body"
	}
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
