package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"envrun/internal/app"
)

var (
	psNames  []string
	psPIDs   []int
	psPrefix string
	psAlive  bool
	psJSON   bool
)

func init() {
	rootCmd.AddCommand(cmdPs)
	cmdPs.Flags().StringSliceVar(&psNames, "name", nil, "Match processes with these exact names")
	cmdPs.Flags().IntSliceVar(&psPIDs, "pid", nil, "Filter by supervisor PID (repeatable)")
	cmdPs.Flags().StringVar(&psPrefix, "prefix", "", "Match processes launched into this environment")
	cmdPs.Flags().BoolVar(&psAlive, "alive", false, "Only show processes whose supervisor is running")
	cmdPs.Flags().BoolVar(&psJSON, "json", false, "Print JSON instead of a table")
}

type processJSON struct {
	PID       int       `json:"pid"`
	Name      string    `json:"name"`
	Command   []string  `json:"command"`
	Prefix    string    `json:"prefix"`
	StartedAt time.Time `json:"started_at,omitzero"`
	Alive     bool      `json:"alive"`
}

var cmdPs = &cobra.Command{
	Use:   "ps",
	Short: "List supervised processes",
	Long:  "Scans the process registry and prints every supervised process with the liveness of its supervisor.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := controllerFactory()
		if err != nil {
			return err
		}
		procs, err := ctrl.List(cmd.Context(), app.ListParams{
			Filters: app.ListFilters{
				Names:     psNames,
				PIDs:      psPIDs,
				Prefix:    psPrefix,
				AliveOnly: psAlive,
			},
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if psJSON {
			rows := make([]processJSON, 0, len(procs))
			for _, p := range procs {
				rows = append(rows, processJSON{
					PID:       p.PID,
					Name:      p.Name,
					Command:   p.Command,
					Prefix:    p.Prefix,
					StartedAt: p.StartedAt,
					Alive:     p.Alive,
				})
			}
			output, err := json.MarshalIndent(rows, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			fmt.Fprintln(out, string(output))
			return nil
		}

		if len(procs) == 0 {
			fmt.Fprintln(out, "No processes registered")
			return nil
		}

		table := tablewriter.NewWriter(out)
		table.Header("PID", "Name", "Status", "Prefix", "Started", "Command")
		for _, p := range procs {
			status := "dead"
			if p.Alive {
				status = "alive"
			}
			started := "-"
			if !p.StartedAt.IsZero() {
				started = p.StartedAt.Local().Format(time.DateTime)
			}
			table.Append(p.PID, p.Name, status, p.Prefix, started, strings.Join(p.Command, " "))
		}
		return table.Render()
	},
}
