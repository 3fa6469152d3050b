package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"envrun/internal/app"
	"envrun/internal/config"
	"envrun/internal/registry"
)

var (
	configPath string
	logLevel   string
)

// controllerAPI is the part of app.App the commands use.
type controllerAPI interface {
	Run(context.Context, app.RunParams) (int, error)
	List(context.Context, app.ListParams) ([]app.Process, error)
	Kill(context.Context, app.KillParams) (app.KillResult, error)
	Prune(context.Context) ([]registry.Descriptor, error)
	Config() config.Config
}

var controllerFactory = func() (controllerAPI, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return app.New(app.Options{Config: &cfg})
}

// exitCodeError carries a child's exit status out of a command.
type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

var rootCmd = &cobra.Command{
	Use:   "envrun [command]",
	Short: "envrun: run and supervise commands inside environments",
	Long: `envrun launches commands inside a target environment, keeps a registry of the
processes it supervises under ~/.envrun/proc, and forwards termination signals to them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (default ~/.envrun/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
}

func main() {
	os.Exit(execute())
}

func execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	var exitErr exitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	return 1
}
