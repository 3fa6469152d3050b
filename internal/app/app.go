package app

import (
	"context"
	"io"
	"log/slog"

	"envrun/internal/config"
	"envrun/internal/launcher"
	"envrun/internal/lock"
	"envrun/internal/logging"
	"envrun/internal/registry"
)

// Options configures the top-level controller.
type Options struct {
	// ConfigPath points to the optional config file. Ignored when Config is set.
	ConfigPath string
	Config     *config.Config
	Logger     *slog.Logger

	// Stdout and Stderr receive the output of launched commands. They default
	// to the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// App exposes high-level operations that the CLI/TUI can reuse.
type App struct {
	cfg    config.Config
	logger *slog.Logger
	reg    *registry.Registry

	stdout io.Writer
	stderr io.Writer
}

// New constructs the shared controller facade.
func New(opts Options) (*App, error) {
	var cfg config.Config
	if opts.Config != nil {
		cfg = *opts.Config
	} else {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.New(&logging.Config{Level: cfg.LogLevel, Format: logging.Format(cfg.LogFormat)})
	}

	locker := lock.New(lock.Options{
		Disabled: !cfg.UseLockfiles,
		Timeout:  cfg.LockTimeout,
		Logger:   logger,
	})
	return &App{
		cfg:    cfg,
		logger: logger,
		reg:    registry.New(cfg.RegistryDir, locker, logger),
		stdout: opts.Stdout,
		stderr: opts.Stderr,
	}, nil
}

// Config returns the effective configuration.
func (a *App) Config() config.Config { return a.cfg }

// Registry returns the process registry.
func (a *App) Registry() *registry.Registry { return a.reg }

// RunParams describes one supervised launch.
type RunParams struct {
	launcher.Options
	// Prefix overrides the configured target environment.
	Prefix string
}

// Run launches a command under supervision and returns its exit status.
func (a *App) Run(ctx context.Context, params RunParams) (int, error) {
	prefix := a.cfg.TargetPrefix
	if params.Prefix != "" {
		prefix = params.Prefix
	}
	l := launcher.New(launcher.Config{
		Registry: a.reg,
		Prefix:   prefix,
		Logger:   a.logger,
		Stdout:   a.stdout,
		Stderr:   a.stderr,
	})
	return l.Run(ctx, params.Options)
}
