package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/helixml/embedsync/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var data map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &data), line)
		out = append(out, data)
	}
	return out
}

func TestNewLogger_FromConfig(t *testing.T) {
	cfg := config.NewAppConfigWithOptions(
		config.WithLogLevel("DEBUG"),
		config.WithLogFormat(config.LogFormatJSON),
	)
	logger := NewLogger(cfg)
	require.NotNil(t, logger)
	assert.NotNil(t, logger.Slog())
	assert.True(t, logger.Handler().Enabled(context.Background(), -4))
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, config.LogFormatJSON, "warn")

	logger.Info("hidden")
	logger.Warn("shown")
	logger.Error("also shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "shown", lines[0]["msg"])
}

func TestLogger_RedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, config.LogFormatJSON, "INFO")

	logger.With("api_key", "sk-live").Info("request",
		"Authorization", "Bearer abc",
		"milvus_token", "root:Milvus",
		"collection", "node",
	)

	out := buf.String()
	assert.NotContains(t, out, "sk-live")
	assert.NotContains(t, out, "Bearer abc")
	assert.NotContains(t, out, "root:Milvus")

	lines := decodeLines(t, &buf)
	assert.Equal(t, Redacted, lines[0]["api_key"])
	assert.Equal(t, "node", lines[0]["collection"])
}

func TestLogger_RedactsInsideGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, config.LogFormatJSON, "INFO")

	logger.Slog().Info("call", "params", map[string]any{"id": 1})
	logger.Slog().Info("call", slog.Group("headers", "password", "hunter2", "accept", "json"))

	assert.NotContains(t, buf.String(), "hunter2")
}

func TestLogger_AddsContextIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, config.LogFormatJSON, "INFO")

	ctx := WithRequestID(WithCorrelationID(context.Background(), "corr-123"), "req-456")
	logger.Slog().InfoContext(ctx, "test message")

	lines := decodeLines(t, &buf)
	assert.Equal(t, "corr-123", lines[0]["correlation_id"])
	assert.Equal(t, "req-456", lines[0]["request_id"])
}

func TestEnsureCorrelationID(t *testing.T) {
	ctx := EnsureCorrelationID(context.Background())
	id := CorrelationID(ctx)
	assert.Len(t, id, 36)
	assert.Equal(t, id, CorrelationID(EnsureCorrelationID(ctx)))
	assert.Equal(t, "", RequestID(context.Background()))
}

func TestIsSensitiveKey(t *testing.T) {
	for _, k := range []string{"api_key", "API-Key", "token", "bearer_token", "Authorization", "db_password", "client_secret"} {
		assert.True(t, IsSensitiveKey(k), k)
	}
	for _, k := range []string{"collection", "entity_id", "field_name"} {
		assert.False(t, IsSensitiveKey(k), k)
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("WARNING").String())
	assert.Equal(t, "ERROR", parseLevel("error").String())
	assert.Equal(t, "INFO", parseLevel("nonsense").String())
}
