package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errPurgeNotConfirmed = errors.New("purge removes every vector in the collection: pass --yes to confirm")

func purgeCmd(envFile *string) *cobra.Command {
	var (
		collection string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every vector in a collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errPurgeNotConfirmed
			}

			s, err := openSession(*envFile, false)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.client.Vectors.Purge(cmd.Context(), collection); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "purged %s from %s\n", collection, s.client.Vectors.Backend())
			return err
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "Namespace or collection to purge")
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the purge")
	_ = cmd.MarkFlagRequired("collection")

	return cmd
}
