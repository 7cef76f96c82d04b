package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func reindexCmd(envFile *string) *cobra.Command {
	var process bool

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Queue every entity of the allowed bundles",
		Long: `Queue a sync for every entity whose bundle is in SYNC_NODE_TYPES.

With --process the queue is drained in this process before exiting;
otherwise a running "embedsync serve" picks the tasks up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(*envFile, false)
			if err != nil {
				return err
			}
			defer s.close()

			ctx := cmd.Context()
			queued, err := s.client.Reindex.Run(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "queued %d entities\n", queued); err != nil {
				return err
			}
			if !process {
				return nil
			}

			if err := s.client.Ready(); err != nil {
				return err
			}
			processed, err := s.client.ProcessQueue(ctx)
			if err != nil {
				return err
			}
			s.logger.Info("queue drained", slog.Int("processed", processed))
			_, err = fmt.Fprintf(out, "processed %d tasks\n", processed)
			return err
		},
	}

	cmd.Flags().BoolVar(&process, "process", false, "Process the queue before exiting")

	return cmd
}
