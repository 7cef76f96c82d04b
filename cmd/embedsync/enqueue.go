package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helixml/embedsync/domain/task"
)

var priorityNames = map[string]task.Priority{
	"background": task.PriorityBackground,
	"normal":     task.PriorityNormal,
	"user":       task.PriorityUserInitiated,
	"critical":   task.PriorityCritical,
}

func parsePriority(name string) (task.Priority, error) {
	p, ok := priorityNames[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown priority %q (background, normal, user, critical)", name)
	}
	return p, nil
}

func enqueueCmd(envFile *string) *cobra.Command {
	var (
		remove   bool
		priority string
	)

	cmd := &cobra.Command{
		Use:   "enqueue <entity_type> <entity_id> [bundle]",
		Short: "Queue an entity for embedding or removal",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRef(args)
			if err != nil {
				return err
			}
			p, err := parsePriority(priority)
			if err != nil {
				return err
			}

			s, err := openSession(*envFile, false)
			if err != nil {
				return err
			}
			defer s.close()

			op := task.OperationSyncEntity
			enqueue := s.client.Queue.EnqueueSync
			if remove {
				op = task.OperationDeleteEntity
				enqueue = s.client.Queue.EnqueueDelete
			}
			if err := enqueue(cmd.Context(), ref, p); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "queued %s %s\n", op, ref)
			return err
		},
	}

	cmd.Flags().BoolVar(&remove, "delete", false, "Queue removal of the entity's vectors instead of a sync")
	cmd.Flags().StringVar(&priority, "priority", "user", "Queue priority: background, normal, user, critical")

	return cmd
}
