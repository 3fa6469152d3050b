package main

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"envrun/internal/app"
)

var (
	killNames   []string
	killPIDs    []int
	killPrefix  string
	killAll     bool
	killForce   bool
	killTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(cmdKill)
	cmdKill.Flags().StringSliceVar(&killNames, "name", nil, "Match processes with these exact names")
	cmdKill.Flags().IntSliceVar(&killPIDs, "pid", nil, "Filter by supervisor PID (repeatable)")
	cmdKill.Flags().StringVar(&killPrefix, "prefix", "", "Match processes launched into this environment")
	cmdKill.Flags().BoolVar(&killAll, "all", false, "Stop every process that matches the selector")
	cmdKill.Flags().BoolVar(&killForce, "force", false, "Send SIGKILL when a supervisor does not exit in time")
	cmdKill.Flags().DurationVar(&killTimeout, "timeout", app.DefaultKillTimeout, "How long to wait for each supervisor to exit")
}

var cmdKill = &cobra.Command{
	Use:   "kill",
	Short: "Stop supervised processes",
	Long:  "Selects processes via the same filters as `ps` and sends SIGTERM to their supervisors, which stop the command and clean up the registry.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := controllerFactory()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
		spin.Suffix = " Stopping..."
		spin.Start()
		res, err := ctrl.Kill(cmd.Context(), app.KillParams{
			Filters: app.ListFilters{
				Names:  killNames,
				PIDs:   killPIDs,
				Prefix: killPrefix,
			},
			AllowAll:        killAll,
			Force:           killForce,
			Timeout:         killTimeout,
			RequireSelector: true,
		})
		spin.Stop()

		if res.Message != "" {
			fmt.Fprintln(out, res.Message)
		}
		for _, event := range res.Events {
			name := event.Proc.Name
			if name == "" {
				name = "-"
			}
			switch event.Kind {
			case app.EventStopped:
				fmt.Fprintf(out, "Stopped pid=%d name=%s\n", event.Proc.PID, name)
			case app.EventKilled:
				fmt.Fprintf(out, "Killed pid=%d name=%s and removed its descriptor\n", event.Proc.PID, name)
			case app.EventStale:
				fmt.Fprintf(out, "Stale entry pid=%d name=%s (run `envrun prune` to remove)\n", event.Proc.PID, name)
			case app.EventFailed:
				fmt.Fprintf(out, "Failed to stop pid=%d name=%s: %v\n", event.Proc.PID, name, event.Err)
			case app.EventRemoveFailure:
				fmt.Fprintf(out, "Killed pid=%d name=%s but failed to remove its descriptor: %v\n", event.Proc.PID, name, event.Err)
			}
		}
		return err
	},
}
