package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationError(t *testing.T) {
	err := NewConfigurationError("pinecone", "PINECONE_HOSTNAME", "is required")

	assert.Equal(t, "pinecone: PINECONE_HOSTNAME: is required", err.Error())
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.False(t, errors.Is(err, ErrVectorStore))
}

func TestConfigurationError_NoSetting(t *testing.T) {
	err := NewConfigurationError("vectorstore", "", "no backend selected")
	assert.Equal(t, "vectorstore: no backend selected", err.Error())
}

func TestProviderError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewProviderError("embedding", 429, "rate limited", cause)

	assert.Equal(t, "provider embedding failed (status 429): rate limited", err.Error())
	assert.True(t, errors.Is(err, ErrProvider))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 429, err.StatusCode())
}

func TestVectorStoreError(t *testing.T) {
	err := NewVectorStoreError("milvus", "upsert", 0, "collection name is required", nil)
	assert.Equal(t, "milvus upsert: collection name is required", err.Error())
	assert.True(t, errors.Is(err, ErrVectorStore))

	withStatus := NewVectorStoreError("pinecone", "query", 500, "server error", errors.New("boom"))
	assert.Equal(t, "pinecone query (status 500): server error: boom", withStatus.Error())
}

func TestGuardRejection(t *testing.T) {
	err := NewGuardRejection("pinecone", "delete_all", "namespace deletion is disabled")
	assert.Equal(t, "pinecone delete_all rejected: namespace deletion is disabled", err.Error())
	assert.True(t, errors.Is(err, ErrGuardRejected))
}

func TestErrors_SurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("sync field body: %w", NewVectorStoreError("pinecone", "upsert", 503, "unavailable", nil))

	var target *VectorStoreError
	require.True(t, errors.As(wrapped, &target))
	assert.Equal(t, "pinecone", target.Backend())
	assert.True(t, errors.Is(wrapped, ErrVectorStore))
}

func TestRetryable(t *testing.T) {
	assert.False(t, Retryable(nil))
	assert.False(t, Retryable(NewConfigurationError("x", "y", "z")))
	assert.False(t, Retryable(fmt.Errorf("wrapped: %w", NewGuardRejection("a", "b", "c"))))
	assert.True(t, Retryable(NewProviderError("embedding", 500, "oops", nil)))
	assert.True(t, Retryable(errors.New("entity not found")))
}
