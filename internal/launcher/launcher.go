// Package launcher runs a command in a target environment under supervision:
// it registers the process in the shared registry, spawns it, forwards
// termination signals and removes the registry entry once it exits.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"envrun/internal/activation"
	"envrun/internal/logging"
	"envrun/internal/naming"
	"envrun/internal/registry"
)

// StopTimeout is the grace period between the cooperative stop request and
// the forced kill.
const StopTimeout = 3 * time.Second

// ExitSpawnFailure is returned as the exit code when no child could be run.
const ExitSpawnFailure = 1

var (
	// ErrEmptyCommand is returned when Options.Command is empty.
	ErrEmptyCommand = errors.New("no command given")

	// ErrInterrupted is returned when a termination signal arrives before the
	// child is spawned.
	ErrInterrupted = errors.New("launch interrupted")
)

// SpawnError reports that the OS refused to start the child.
type SpawnError struct {
	Command []string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %q: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// StreamOptions selects standard streams to discard. The zero value inherits
// all three from the supervising process.
type StreamOptions uint8

const (
	SinkOut StreamOptions = 1 << iota
	SinkErr
	SinkIn
)

// Has reports whether every bit of o is set in s.
func (s StreamOptions) Has(o StreamOptions) bool { return s&o == o }

// Options describes one launch.
type Options struct {
	Command []string
	// Cwd overrides the child's working directory.
	Cwd     string
	Streams StreamOptions
	// CleanEnv starts the child from an empty environment.
	CleanEnv bool
	// Env holds KEY=VALUE overrides, or bare KEY to copy the current value.
	Env    []string
	Detach bool
	// Name is an explicit alias. An empty Name gets a generated one.
	Name string
}

// Config wires a Launcher to its collaborators.
type Config struct {
	Registry *registry.Registry
	// Names generates aliases. Defaults to an Assigner backed by Registry.
	Names *naming.Assigner
	// Wrapper activates Prefix around the command. Defaults to activation.ShellWrapper.
	Wrapper  activation.Wrapper
	Detacher Detacher
	Prefix   string
	Logger   *slog.Logger

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Launcher supervises launches against one registry.
type Launcher struct {
	reg      *registry.Registry
	names    *naming.Assigner
	wrapper  activation.Wrapper
	detacher Detacher
	prefix   string
	logger   *slog.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	notify      func(c chan<- os.Signal, sig ...os.Signal)
	stopNotify  func(c chan<- os.Signal)
	stopTimeout time.Duration
}

// New returns a Launcher for cfg.
func New(cfg Config) *Launcher {
	l := &Launcher{
		reg:         cfg.Registry,
		names:       cfg.Names,
		wrapper:     cfg.Wrapper,
		detacher:    cfg.Detacher,
		prefix:      cfg.Prefix,
		logger:      logging.OrDiscard(cfg.Logger),
		stdin:       cfg.Stdin,
		stdout:      cfg.Stdout,
		stderr:      cfg.Stderr,
		notify:      signal.Notify,
		stopNotify:  signal.Stop,
		stopTimeout: StopTimeout,
	}
	if l.names == nil {
		l.names = naming.New(l.reg.IsNameInUse)
	}
	if l.wrapper == nil {
		l.wrapper = activation.ShellWrapper{}
	}
	if l.detacher == nil {
		l.detacher = SessionDetacher{}
	}
	if l.stdin == nil {
		l.stdin = os.Stdin
	}
	if l.stdout == nil {
		l.stdout = os.Stdout
	}
	if l.stderr == nil {
		l.stderr = os.Stderr
	}
	return l
}

// Run launches opts.Command and blocks until it exits, returning its exit
// status. Errors are returned only for failures before the child exists; the
// code is then ExitSpawnFailure, or 128+signal for ErrInterrupted. ctx bounds
// lock acquisition only.
func (l *Launcher) Run(ctx context.Context, opts Options) (int, error) {
	if len(opts.Command) == 0 {
		return ExitSpawnFailure, ErrEmptyCommand
	}

	if opts.Detach {
		if err := l.checkExplicitName(opts.Name); err != nil {
			return ExitSpawnFailure, err
		}
		pid, err := l.detacher.Detach()
		switch {
		case errors.Is(err, ErrDetachUnsupported):
			l.logger.Warn("detach is not supported on this platform, running attached")
		case err != nil:
			return ExitSpawnFailure, fmt.Errorf("detach: %w", err)
		case pid > 0:
			fmt.Fprintln(l.stdout, detachNotice(pid))
			return 0, nil
		}
	}

	// Signals are caught from here on so that the descriptor is always
	// removed. They are queued until the child exists.
	sigc := make(chan os.Signal, 1)
	l.notify(sigc, os.Interrupt, syscall.SIGTERM)
	defer l.stopNotify(sigc)

	if err := l.reg.EnsureDir(); err != nil {
		l.logger.Warn("could not create registry directory", "error", err)
	}

	name, entry, err := l.register(ctx, opts)
	if err != nil {
		return ExitSpawnFailure, err
	}
	// Entry.Close tolerates a nil receiver.
	defer entry.Close()

	argv, script, err := l.wrapper.Wrap(l.prefix, tag(name, opts.Command))
	if err != nil {
		return ExitSpawnFailure, fmt.Errorf("wrap command: %w", err)
	}
	if script != "" {
		defer func() {
			if err := os.Remove(script); err != nil && !errors.Is(err, os.ErrNotExist) {
				l.logger.Warn("failed to remove activation script", "path", script, "error", err)
			}
		}()
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = opts.Cwd
	cmd.Env = buildEnv(os.Environ(), opts.CleanEnv, opts.Env, os.LookupEnv, l.logger)
	l.configureStreams(cmd, opts.Streams)

	select {
	case sig := <-sigc:
		l.logger.Info("received signal before spawn, aborting launch", "signal", sig.String(), "name", name)
		return signalCode(sig), fmt.Errorf("%w by %s", ErrInterrupted, sig)
	default:
	}

	child := newChild(cmd)
	if err := child.Start(); err != nil {
		return ExitSpawnFailure, &SpawnError{Command: argv, Err: err}
	}
	l.logger.Debug("started child", "pid", child.Pid(), "name", name)

	stop := l.forwardSignals(child, sigc)
	defer stop()

	code, err := child.Wait()
	if err != nil {
		l.logger.Warn("error while waiting for child", "pid", child.Pid(), "error", err)
	}
	return code, nil
}

// register picks the alias and writes the descriptor under the registry lock.
// The returned entry is nil when the registry directory is unusable.
func (l *Launcher) register(ctx context.Context, opts Options) (string, *registry.Entry, error) {
	explicit, err := registry.NormalizeName(opts.Name)
	if err != nil {
		return "", nil, err
	}

	if !l.reg.Usable() {
		l.logger.Warn("registry directory is not usable, process will not be tracked", "dir", l.reg.Dir())
		if explicit != "" {
			return explicit, nil, nil
		}
		return l.names.Assign(baseName(opts.Command)), nil, nil
	}

	lk, err := l.reg.Lock(ctx)
	if err != nil {
		return "", nil, err
	}
	defer lk.Release()

	if running, err := l.reg.List(nil); err == nil {
		l.logger.Debug("currently running processes", "count", len(running))
	}

	name := explicit
	if name == "" {
		name = l.names.Assign(baseName(opts.Command))
	} else if l.reg.IsNameInUse(name) {
		return "", nil, fmt.Errorf("%q: %w", name, registry.ErrNameInUse)
	}

	entry, err := l.reg.Register(lk, registry.Descriptor{
		Name:    name,
		Command: opts.Command,
		Prefix:  l.prefix,
	})
	if err != nil {
		return "", nil, err
	}
	return name, entry, nil
}

// checkExplicitName reports an explicit alias that is invalid or already
// registered. Registration re-checks under the lock; this only lets a detaching
// launch fail on the caller's terminal.
func (l *Launcher) checkExplicitName(raw string) error {
	name, err := registry.NormalizeName(raw)
	if err != nil || name == "" {
		return err
	}
	if l.reg.IsNameInUse(name) {
		return fmt.Errorf("%q: %w", name, registry.ErrNameInUse)
	}
	return nil
}

func (l *Launcher) configureStreams(cmd *exec.Cmd, s StreamOptions) {
	// A nil stream is connected to the null device.
	if !s.Has(SinkIn) {
		cmd.Stdin = l.stdin
	}
	if !s.Has(SinkOut) {
		cmd.Stdout = l.stdout
	}
	if !s.Has(SinkErr) {
		cmd.Stderr = l.stderr
	}
}

// tag makes the wrapper replace itself with command, running under alias.
func tag(alias string, command []string) []string {
	if runtime.GOOS == "windows" {
		return command
	}
	out := make([]string, 0, len(command)+3)
	out = append(out, "exec", "-a", alias)
	return append(out, command...)
}

func baseName(command []string) string {
	return filepath.Base(command[0])
}
