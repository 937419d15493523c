package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "montage",
		Short:         "Operator tooling for the montage compositing daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newConfigCommand(&configFlag))
	rootCmd.AddCommand(newStatusCommand(&configFlag))
	rootCmd.AddCommand(newEnqueueCommand(&configFlag))
	rootCmd.AddCommand(newPreflightCommand(&configFlag))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
