package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"montage/internal/config"
	"montage/internal/progress"
	"montage/internal/queue"
)

func newStatusCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id>",
		Short: "Show live progress for a composition task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid task id %q", args[0])
			}

			cfg, _, err := config.Load(*configFlag)
			if err != nil {
				return err
			}
			rdb := queue.NewClient(cfg.Redis)
			defer rdb.Close()

			tracker := progress.NewTracker(rdb, time.Duration(cfg.Redis.ProgressTTLSeconds)*time.Second)
			record, err := tracker.Fetch(cmd.Context(), taskID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if record == nil {
				fmt.Fprintf(out, "No progress record for task %d (expired or never started)\n", taskID)
				return nil
			}

			rows := [][]string{
				{"Status", record.Status},
				{"Step", record.CurrentStepLabel},
				{"Paragraphs", fmt.Sprintf("%d/%d", record.CompletedParagraphs, record.TotalParagraphs)},
				{"Remaining", fmt.Sprintf("%.1fs", record.EstimatedRemainingSeconds)},
			}
			if record.ErrorMessage != "" {
				rows = append(rows, []string{"Error", record.ErrorMessage})
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}
