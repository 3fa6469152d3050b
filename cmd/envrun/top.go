package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"envrun/internal/tui"
)

func init() {
	rootCmd.AddCommand(cmdTop)
}

var cmdTop = &cobra.Command{
	Use:   "top",
	Short: "Browse supervised processes interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := controllerFactory()
		if err != nil {
			return err
		}
		if err := tui.Run(ctrl, ctrl.Config().RegistryDir); err != nil {
			return fmt.Errorf("tui exited with error: %w", err)
		}
		return nil
	},
}
