package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"envrun/internal/launcher"
)

// Event kinds reported by Kill.
const (
	EventStopped       = "stopped"
	EventKilled        = "killed"
	EventStale         = "stale"
	EventFailed        = "failed"
	EventRemoveFailure = "remove_failure"
)

// DefaultKillTimeout leaves a supervising instance time to stop its child
// gracefully, then forcefully, and clean up.
const DefaultKillTimeout = launcher.StopTimeout + 2*time.Second

// forceWait bounds the wait after SIGKILL.
const forceWait = 2 * time.Second

var pollInterval = 100 * time.Millisecond

// KillParams configures kill command semantics.
type KillParams struct {
	Filters  ListFilters
	AllowAll bool
	// Force escalates to SIGKILL when the supervising instance outlives Timeout.
	Force           bool
	Timeout         time.Duration
	RequireSelector bool
}

// KillEvent describes one action taken during kill.
type KillEvent struct {
	Kind string
	Proc Process
	Err  error
}

// KillResult aggregates the command outcome.
type KillResult struct {
	Events       []KillEvent
	Message      string
	TotalMatches int
	TotalAlive   int
	Successes    int
}

// Kill stops the supervising instances of matching processes. Each instance
// forwards the stop to its child and removes its own descriptor; descriptors
// of instances that had to be force-killed are removed here.
func (a *App) Kill(ctx context.Context, params KillParams) (KillResult, error) {
	var result KillResult
	if params.RequireSelector && !params.AllowAll && params.Filters.empty() {
		return result, errors.New("provide at least one selector (--name/--pid/--prefix) or pass --all")
	}
	if params.Timeout <= 0 {
		return result, errors.New("timeout must be greater than 0")
	}

	filters := params.Filters
	filters.AliveOnly = false
	procs, err := a.List(ctx, ListParams{Filters: filters})
	if err != nil {
		return result, err
	}

	result.TotalMatches = len(procs)
	if result.TotalMatches == 0 {
		result.Message = "No processes match the provided selectors"
		return result, nil
	}

	alive := make([]Process, 0, len(procs))
	for _, proc := range procs {
		if proc.Alive {
			alive = append(alive, proc)
			continue
		}
		result.Events = append(result.Events, KillEvent{Kind: EventStale, Proc: proc})
	}
	result.TotalAlive = len(alive)
	if len(alive) == 0 {
		result.Message = "Matching processes exist but none are currently alive"
		return result, nil
	}

	if len(alive) > 1 && !params.AllowAll {
		return result, fmt.Errorf("multiple alive processes match filters (pids: %s). Use --all to terminate all or narrow the selection", joinProcessesSample(alive))
	}

	for _, proc := range alive {
		event := a.stop(ctx, proc, params)
		result.Events = append(result.Events, event)
		if event.Kind == EventStopped || event.Kind == EventKilled {
			result.Successes++
		}
	}

	switch {
	case result.Successes == result.TotalAlive:
		return result, nil
	case result.Successes == 0:
		return result, errors.New("no processes were killed (see output above)")
	default:
		return result, fmt.Errorf("partially successful: killed %d/%d processes", result.Successes, result.TotalAlive)
	}
}

func (a *App) stop(ctx context.Context, proc Process, params KillParams) KillEvent {
	pid := proc.PID
	if pid == os.Getpid() {
		return KillEvent{Kind: EventFailed, Proc: proc, Err: errors.New("refusing to stop current process")}
	}

	if err := signalProcess(pid, sigTerm); err != nil {
		if !processAlive(pid) {
			return KillEvent{Kind: EventStopped, Proc: proc}
		}
		return KillEvent{Kind: EventFailed, Proc: proc, Err: fmt.Errorf("send SIGTERM: %w", err)}
	}
	if waitForExit(ctx, pid, params.Timeout) {
		return KillEvent{Kind: EventStopped, Proc: proc}
	}
	if !params.Force {
		return KillEvent{Kind: EventFailed, Proc: proc, Err: fmt.Errorf("process %d did not exit after SIGTERM", pid)}
	}

	if err := signalProcess(pid, sigKill); err != nil && processAlive(pid) {
		return KillEvent{Kind: EventFailed, Proc: proc, Err: fmt.Errorf("send SIGKILL: %w", err)}
	}
	if !waitForExit(ctx, pid, forceWait) {
		return KillEvent{Kind: EventFailed, Proc: proc, Err: fmt.Errorf("process %d did not exit after SIGKILL", pid)}
	}

	// A killed supervisor leaves its descriptor behind.
	if err := a.removeDescriptor(ctx, pid); err != nil {
		return KillEvent{Kind: EventRemoveFailure, Proc: proc, Err: err}
	}
	return KillEvent{Kind: EventKilled, Proc: proc}
}

func (a *App) removeDescriptor(ctx context.Context, pid int) error {
	lk, err := a.reg.Lock(ctx)
	if err != nil {
		return err
	}
	defer lk.Release()
	return a.reg.Remove(pid)
}

func waitForExit(ctx context.Context, pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if !processAlive(pid) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(pollInterval):
		}
	}
}

func joinProcessesSample(procs []Process) string {
	limit := 5
	pids := make([]string, 0, limit+1)
	for i := 0; i < len(procs) && i < limit; i++ {
		pids = append(pids, fmt.Sprintf("%d", procs[i].PID))
	}
	if len(procs) > limit {
		pids = append(pids, "...")
	}
	return strings.Join(pids, ", ")
}
