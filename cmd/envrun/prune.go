package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cmdPrune)
}

var cmdPrune = &cobra.Command{
	Use:   "prune",
	Short: "Remove registry entries whose supervisor is gone",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := controllerFactory()
		if err != nil {
			return err
		}
		removed, err := ctrl.Prune(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(removed) == 0 {
			fmt.Fprintln(out, "No stale entries")
			return nil
		}
		for _, d := range removed {
			fmt.Fprintf(out, "Removed pid=%d name=%s\n", d.PID, d.Name)
		}
		return nil
	},
}
