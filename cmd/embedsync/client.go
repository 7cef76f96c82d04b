package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/helixml/embedsync"
	"github.com/helixml/embedsync/domain/content"
	"github.com/helixml/embedsync/internal/config"
	"github.com/helixml/embedsync/internal/log"
)

// session is a loaded configuration with an open client.
type session struct {
	cfg    config.AppConfig
	client *embedsync.Client
	logger *slog.Logger
}

// openSession loads configuration and creates a client. One-shot commands
// leave background processing off; logs go to stderr so stdout stays
// parseable.
func openSession(envFile string, background bool, extra ...embedsync.Option) (*session, error) {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return nil, err
	}

	logger := log.NewLoggerWithWriter(os.Stderr, cfg.LogFormat(), cfg.LogLevel()).Slog()

	opts := []embedsync.Option{
		embedsync.WithAppConfig(cfg),
		embedsync.WithLogger(logger),
	}
	if !background {
		opts = append(opts, embedsync.WithBackgroundDisabled())
	}
	opts = append(opts, extra...)

	client, err := embedsync.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create embedsync client: %w", err)
	}
	return &session{cfg: cfg, client: client, logger: logger}, nil
}

func (s *session) close() {
	if err := s.client.Close(); err != nil {
		s.logger.Error("failed to close embedsync client", slog.Any("error", err))
	}
}

// parseRef reads "<entity_type> <entity_id> [bundle]".
func parseRef(args []string) (content.Ref, error) {
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return content.Ref{}, fmt.Errorf("entity id %q: %w", args[1], err)
	}
	bundle := ""
	if len(args) > 2 {
		bundle = args[2]
	}
	ref := content.NewRef(args[0], id, bundle)
	if err := ref.Validate(); err != nil {
		return content.Ref{}, err
	}
	return ref, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
