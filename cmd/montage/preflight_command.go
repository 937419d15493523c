package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"montage/internal/config"
	"montage/internal/preflight"
	"montage/internal/queue"
)

func newPreflightCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check host readiness for the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.Load(*configFlag)
			if err != nil {
				return err
			}
			rdb := queue.NewClient(cfg.Redis)
			defer rdb.Close()

			results := preflight.RunAll(cmd.Context(), cfg, rdb)
			rows := make([][]string, 0, len(results))
			for _, result := range results {
				state := "FAIL"
				if result.Passed {
					state = "OK"
				}
				rows = append(rows, []string{result.Name, state, result.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "State", "Detail"}, rows, nil))
			if !preflight.AllPassed(results) {
				return fmt.Errorf("preflight checks failed")
			}
			return nil
		},
	}
}
