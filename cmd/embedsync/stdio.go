package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/helixml/embedsync/internal/mcp"
)

func stdioCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Start MCP server on stdio",
		Long: `Start the MCP (Model Context Protocol) server on stdio.

This lets AI assistants run semantic searches over the embedded content.
Logs are written to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(*envFile, false)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.client.Ready(); err != nil {
				return err
			}

			s.logger.Info("starting MCP server", slog.String("version", version))
			return mcp.NewServer(s.client.Search, s.client.Vectors, version, s.logger).ServeStdio()
		},
	}
}
