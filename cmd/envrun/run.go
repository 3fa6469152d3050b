package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"envrun/internal/app"
	"envrun/internal/launcher"
)

var (
	runPrefix   string
	runCwd      string
	runSinks    []string
	runCleanEnv bool
	runEnv      []string
	runDetach   bool
	runName     string
)

func init() {
	rootCmd.AddCommand(cmdRun)

	cmdRun.Flags().SetInterspersed(false)
	cmdRun.Flags().StringVarP(&runPrefix, "prefix", "p", "", "Target environment (default from config, $ENVRUN_TARGET_PREFIX or $CONDA_PREFIX)")
	cmdRun.Flags().StringVar(&runCwd, "cwd", "", "Working directory for the command")
	cmdRun.Flags().StringSliceVar(&runSinks, "sink", nil, "Streams to discard: stdout, stderr, stdin (repeatable)")
	cmdRun.Flags().BoolVar(&runCleanEnv, "clean-env", false, "Start the command with an empty environment")
	cmdRun.Flags().StringArrayVarP(&runEnv, "env", "e", nil, "Set KEY=VALUE, or pass KEY through from the current environment (repeatable)")
	cmdRun.Flags().BoolVarP(&runDetach, "detach", "d", false, "Detach into a background session")
	cmdRun.Flags().StringVar(&runName, "name", "", "Unique name for the process (generated when empty)")
}

var cmdRun = &cobra.Command{
	Use:   "run [flags] [--] <command> [args...]",
	Short: "Run a command inside an environment and supervise it",
	Long: `Registers the command in the process registry, runs it inside the target
environment and exits with its status. SIGINT and SIGTERM are forwarded to the
command, which is killed if it does not stop within a few seconds.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		streams, err := parseSinks(runSinks)
		if err != nil {
			return err
		}
		ctrl, err := controllerFactory()
		if err != nil {
			return err
		}

		code, err := ctrl.Run(cmd.Context(), app.RunParams{
			Options: launcher.Options{
				Command:  args,
				Cwd:      runCwd,
				Streams:  streams,
				CleanEnv: runCleanEnv,
				Env:      runEnv,
				Detach:   runDetach,
				Name:     runName,
			},
			Prefix: runPrefix,
		})
		if errors.Is(err, launcher.ErrInterrupted) {
			return exitCodeError{code: code}
		}
		if err != nil {
			return err
		}
		if code != 0 {
			return exitCodeError{code: code}
		}
		return nil
	},
}

func parseSinks(values []string) (launcher.StreamOptions, error) {
	var s launcher.StreamOptions
	for _, v := range values {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "stdout", "out":
			s |= launcher.SinkOut
		case "stderr", "err":
			s |= launcher.SinkErr
		case "stdin", "in":
			s |= launcher.SinkIn
		default:
			return 0, fmt.Errorf("unknown stream %q (want stdout, stderr or stdin)", v)
		}
	}
	return s, nil
}
