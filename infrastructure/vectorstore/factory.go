package vectorstore

import (
	"fmt"
	"log/slog"

	"github.com/helixml/embedsync/domain/failure"
	"github.com/helixml/embedsync/domain/vector"
	"github.com/helixml/embedsync/internal/config"
)

// Plugins lists the selectable backends.
var Plugins = []string{config.PluginPinecone, config.PluginMilvus}

// New builds the vector store selected by cfg.Plugin().
func New(cfg config.VectorConfig, logger *slog.Logger) (vector.Store, error) {
	switch cfg.Plugin() {
	case config.PluginPinecone:
		store, err := NewPinecone(cfg.Pinecone(), logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.PluginMilvus:
		store, err := NewMilvus(cfg.Milvus(), logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "":
		return nil, failure.NewConfigurationError("vector store", "VECTOR_CLIENT_PLUGIN", "no vector client plugin selected")
	default:
		return nil, failure.NewConfigurationError("vector store", "VECTOR_CLIENT_PLUGIN",
			fmt.Sprintf("unknown plugin %q, expected one of %v", cfg.Plugin(), Plugins))
	}
}
