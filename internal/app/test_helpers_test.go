package app

import (
	"context"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"envrun/internal/config"
	"envrun/internal/logging"
	"envrun/internal/registry"
)

type sentSignal struct {
	pid int
	sig syscall.Signal
}

// fakeProcs is a process table driven by the signals the app sends.
type fakeProcs struct {
	mu         sync.Mutex
	alive      map[int]bool
	ignoreTerm map[int]bool
	sent       []sentSignal
}

func stubProcesses(t *testing.T, alive ...int) *fakeProcs {
	t.Helper()
	f := &fakeProcs{alive: make(map[int]bool), ignoreTerm: make(map[int]bool)}
	for _, pid := range alive {
		f.alive[pid] = true
	}

	origAlive, origSignal, origPoll := processAlive, signalProcess, pollInterval
	processAlive = f.isAlive
	signalProcess = f.signal
	pollInterval = time.Millisecond
	t.Cleanup(func() {
		processAlive, signalProcess, pollInterval = origAlive, origSignal, origPoll
	})
	return f
}

func (f *fakeProcs) isAlive(pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive[pid]
}

func (f *fakeProcs) signal(pid int, sig syscall.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentSignal{pid: pid, sig: sig})
	if sig == sigTerm && f.ignoreTerm[pid] {
		return nil
	}
	delete(f.alive, pid)
	return nil
}

func (f *fakeProcs) signals() []sentSignal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentSignal(nil), f.sent...)
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := &config.Config{
		RegistryDir:  filepath.Join(t.TempDir(), "proc"),
		UseLockfiles: true,
		LockTimeout:  -1,
	}
	a, err := New(Options{Config: cfg, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Registry().EnsureDir(); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	return a
}

func seed(t *testing.T, a *App, descs ...registry.Descriptor) {
	t.Helper()
	lk, err := a.Registry().Lock(context.Background())
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer lk.Release()
	for _, d := range descs {
		if _, err := a.Registry().Register(lk, d); err != nil {
			t.Fatalf("register %d: %v", d.PID, err)
		}
	}
}

func registeredPIDs(t *testing.T, a *App) []int {
	t.Helper()
	descs, err := a.Registry().List(nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	pids := make([]int, 0, len(descs))
	for _, d := range descs {
		pids = append(pids, d.PID)
	}
	return pids
}
