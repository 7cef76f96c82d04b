// Package service provides application layer services that orchestrate domain operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/helixml/embedsync/domain/content"
	"github.com/helixml/embedsync/domain/embedding"
	"github.com/helixml/embedsync/domain/vector"
	"github.com/helixml/embedsync/internal/config"
)

// ErrEmptyQuery indicates a search without query text.
var ErrEmptyQuery = errors.New("search text is required")

// SearchRequest describes a semantic search over one entity type.
type SearchRequest struct {
	Text       string
	EntityType string
	TopK       int
	Filter     vector.Filter
}

// Search embeds query text and asks the vector store for the nearest
// stored field values.
type Search struct {
	embedder     embedding.Embedder
	vectors      vector.Store
	defaultLimit int
	logger       *slog.Logger
}

// NewSearch creates a new Search service.
func NewSearch(embedder embedding.Embedder, vectors vector.Store, logger *slog.Logger) *Search {
	return &Search{
		embedder:     embedder,
		vectors:      vectors,
		defaultLimit: config.DefaultSearchLimit,
		logger:       logger,
	}
}

// WithDefaultLimit sets the TopK used when a request leaves it unset.
func (s *Search) WithDefaultLimit(n int) *Search {
	if n > 0 {
		s.defaultLimit = n
	}
	return s
}

// Query runs the search. Matches carry their metadata.
func (s *Search) Query(ctx context.Context, req SearchRequest) ([]vector.Match, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyQuery
	}

	entityType := strings.TrimSpace(req.EntityType)
	if entityType == "" {
		entityType = content.EntityTypeNode
	}

	topK := req.TopK
	if topK <= 0 {
		topK = s.defaultLimit
	}

	vec, err := s.embedder.Embed(ctx, text, "")
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.vectors.Query(ctx, vector.Query{
		Collection:      embedding.CollectionFor(entityType),
		Vector:          vec.Values(),
		TopK:            topK,
		Filter:          req.Filter,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}

	s.logger.Debug("search completed",
		slog.String("entity_type", entityType),
		slog.Int("top_k", topK),
		slog.Int("matches", len(matches)),
	)
	return matches, nil
}
