package main

import (
	"github.com/spf13/cobra"

	"github.com/helixml/embedsync/domain/vector"
)

type statsOutput struct {
	Backend    string                  `json:"backend"`
	Partitions []vector.PartitionStats `json:"partitions"`
	Queued     int64                   `json:"queued"`
	Mirrored   int64                   `json:"mirrored"`
}

func statsCmd(envFile *string) *cobra.Command {
	var collection string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show vector store, queue and mirror counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(*envFile, false)
			if err != nil {
				return err
			}
			defer s.close()

			ctx := cmd.Context()
			partitions, err := s.client.Vectors.Stats(ctx, collection)
			if err != nil {
				return err
			}
			queued, err := s.client.Queue.Count(ctx)
			if err != nil {
				return err
			}
			mirrored, err := s.client.Sync.MirroredCount(ctx)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), statsOutput{
				Backend:    s.client.Vectors.Backend(),
				Partitions: partitions,
				Queued:     queued,
				Mirrored:   mirrored,
			})
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "Limit to one namespace or collection")

	return cmd
}
