package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/helixml/embedsync/infrastructure/api"
	"github.com/helixml/embedsync/internal/config"
)

func serveCmd(envFile *string) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server and background workers",
		Long: `Start the HTTP API server, the queue workers, the optional periodic reindex
and the optional NATS trigger.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. SETTINGS_FILE (YAML) for sync and vector settings
  5. Command line flags

Environment variables:
  HOST, PORT                   Listen address (default: 0.0.0.0:8080)
  DATA_DIR                     Data directory (default: ~/.embedsync)
  DB_URL                       Queue and mirror database (default: sqlite:///{data_dir}/embedsync.db)
  CONTENT_DB_URL               CMS database (default: DB_URL)
  LOG_LEVEL, LOG_FORMAT        Logging (default: INFO, pretty)
  API_KEYS                     Comma-separated keys required on write routes

  EMBEDDING_ENDPOINT_*         BASE_URL, MODEL, API_KEY, TIMEOUT
  VECTOR_CLIENT_PLUGIN         pinecone or milvus
  PINECONE_*                   HOSTNAME, API_KEY, DISABLE_NAMESPACE, TIMEOUT
  MILVUS_*                     HOSTNAME, TOKEN, DIMENSION, TIMEOUT
  SYNC_*                       NODE_TYPES, STOPWORDS, STRIP_ELEMENTS, MAX_LENGTH, REINDEX_SECONDS
  NATS_*                       URL, SUBJECT
  WORKER_*                     COUNT, POLL_SECONDS, MAX_ATTEMPTS`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *envFile, host, port)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")

	return cmd
}

func runServe(ctx context.Context, envFile, host string, port int) error {
	s, err := openSession(envFile, true)
	if err != nil {
		return err
	}
	defer s.close()

	cfg := applyServeOverrides(s.cfg, host, port)

	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	s.logger.LogAttrs(ctx, slog.LevelInfo, "starting embedsync", attrs...)
	if err := s.client.Ready(); err != nil {
		s.logger.Warn("embedding or vector store not configured; sync tasks will be dropped", slog.Any("error", err))
	}

	apiServer := api.NewAPIServer(s.client, cfg.APIKeys()).WithVersion(version)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.ListenAndServe(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("shutdown error", slog.Any("error", err))
	}
	return <-errCh
}

// applyServeOverrides applies command line flag overrides to the config.
func applyServeOverrides(cfg config.AppConfig, host string, port int) config.AppConfig {
	var opts []config.AppConfigOption

	if host != "" {
		opts = append(opts, config.WithHost(host))
	}
	if port != 0 {
		opts = append(opts, config.WithPort(port))
	}

	return cfg.Apply(opts...)
}
