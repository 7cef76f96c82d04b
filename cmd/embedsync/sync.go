package main

import (
	"github.com/spf13/cobra"
)

type syncOutput struct {
	Entity   string `json:"entity"`
	Embedded int    `json:"embedded"`
	Failed   int    `json:"failed"`
	Skipped  bool   `json:"skipped"`
	Tokens   int    `json:"tokens"`
}

func syncCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <entity_type> <entity_id> [bundle]",
		Short: "Embed one entity now, bypassing the queue",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRef(args)
			if err != nil {
				return err
			}

			s, err := openSession(*envFile, false)
			if err != nil {
				return err
			}
			defer s.close()

			result, err := s.client.Sync.SyncEntity(cmd.Context(), ref)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), syncOutput{
				Entity:   result.Ref.String(),
				Embedded: result.Embedded,
				Failed:   result.Failed,
				Skipped:  result.Skipped,
				Tokens:   result.Tokens,
			})
		},
	}
}
