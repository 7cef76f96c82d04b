// Package provider implements embedding clients for remote model endpoints.
package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/helixml/embedsync/domain/embedding"
	"github.com/helixml/embedsync/domain/failure"
	"github.com/helixml/embedsync/internal/config"
)

const operationEmbed = "embedding"

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint. Each call is
// a single attempt; retries happen at the work-item level.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder creates an embedder from endpoint configuration. A
// missing API key or model is a configuration error.
func NewOpenAIEmbedder(endpoint config.Endpoint) (*OpenAIEmbedder, error) {
	if strings.TrimSpace(endpoint.APIKey()) == "" {
		return nil, failure.NewConfigurationError("embedding client", "EMBEDDING_ENDPOINT_API_KEY", "api key is required")
	}
	if strings.TrimSpace(endpoint.Model()) == "" {
		return nil, failure.NewConfigurationError("embedding client", "EMBEDDING_ENDPOINT_MODEL", "model is required")
	}

	cfg := openai.DefaultConfig(endpoint.APIKey())
	if endpoint.BaseURL() != "" {
		cfg.BaseURL = endpoint.BaseURL()
	}
	if endpoint.Timeout() > 0 {
		cfg.HTTPClient = &http.Client{Timeout: endpoint.Timeout()}
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  endpoint.Model(),
	}, nil
}

// Model returns the configured default model.
func (e *OpenAIEmbedder) Model() string {
	return e.model
}

// Embed returns the embedding of text. An empty model uses the configured
// default.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text, model string) (embedding.Vector, error) {
	if model == "" {
		model = e.model
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(model),
		Input: []string{text},
	})
	if err != nil {
		return embedding.Vector{}, wrapError(err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return embedding.Vector{}, failure.NewProviderError(operationEmbed, 0, "response contained no embedding", nil)
	}

	values := make([]float64, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		values[i] = float64(v)
	}

	returned := string(resp.Model)
	if returned == "" {
		returned = model
	}
	usage := embedding.NewUsage(resp.Usage.PromptTokens, resp.Usage.TotalTokens)
	return embedding.NewVector(values, returned, usage), nil
}

// wrapError converts a go-openai error into a ProviderError.
func wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return failure.NewProviderError(operationEmbed, apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return failure.NewProviderError(operationEmbed, reqErr.HTTPStatusCode, reqErr.Error(), err)
	}

	return failure.NewProviderError(operationEmbed, 0, err.Error(), err)
}

var _ embedding.Embedder = (*OpenAIEmbedder)(nil)
