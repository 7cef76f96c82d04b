package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/helixml/embedsync/domain/vector"
)

// ErrCollectionRequired indicates an operation that must name a collection.
var ErrCollectionRequired = errors.New("collection is required")

// Vectors exposes administrative vector store operations.
type Vectors struct {
	store  vector.Store
	logger *slog.Logger
}

// NewVectors creates a new Vectors service.
func NewVectors(store vector.Store, logger *slog.Logger) *Vectors {
	return &Vectors{store: store, logger: logger}
}

// Backend returns the vector store backend name.
func (v *Vectors) Backend() string {
	return v.store.Name()
}

// Stats returns partition statistics. An empty collection reports all.
func (v *Vectors) Stats(ctx context.Context, collection string) ([]vector.PartitionStats, error) {
	return v.store.Stats(ctx, strings.TrimSpace(collection))
}

// Fetch returns stored records by id.
func (v *Vectors) Fetch(ctx context.Context, collection string, ids []string) ([]vector.Record, error) {
	collection = strings.TrimSpace(collection)
	if collection == "" {
		return nil, ErrCollectionRequired
	}
	if len(ids) == 0 {
		return []vector.Record{}, nil
	}
	return v.store.Fetch(ctx, collection, ids)
}

// Purge removes every record of the collection. Backends may refuse with a
// guard rejection.
func (v *Vectors) Purge(ctx context.Context, collection string) error {
	collection = strings.TrimSpace(collection)
	if collection == "" {
		return ErrCollectionRequired
	}
	if err := v.store.DeleteAll(ctx, collection); err != nil {
		return fmt.Errorf("purge %s: %w", collection, err)
	}
	v.logger.Warn("collection purged",
		slog.String("backend", v.store.Name()),
		slog.String("collection", collection),
	)
	return nil
}
