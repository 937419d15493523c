package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"montage/internal/compose"
	"montage/internal/config"
	"montage/internal/logging"
	"montage/internal/queue"
)

func newEnqueueCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue <job.json>",
		Short: "Push a compose job file onto the work queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read job file: %w", err)
			}
			job, err := compose.ParseJob(payload)
			if err != nil {
				return err
			}

			cfg, _, err := config.Load(*configFlag)
			if err != nil {
				return err
			}
			rdb := queue.NewClient(cfg.Redis)
			defer rdb.Close()

			q := queue.New(rdb, cfg.Redis, logging.NewNop())
			if err := q.Enqueue(cmd.Context(), job); err != nil {
				return err
			}
			depth, err := q.Depth(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Enqueued task %d (%d paragraphs); queue depth %d\n",
				job.TaskID, len(job.Paragraphs), depth)
			return nil
		},
	}
}
