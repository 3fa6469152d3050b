package app

import (
	"context"
	"os"
	"reflect"
	"testing"
	"time"

	"envrun/internal/registry"
)

func TestAppKillRequiresSelector(t *testing.T) {
	a := newTestApp(t)
	_, err := a.Kill(context.Background(), KillParams{
		Timeout:         time.Second,
		RequireSelector: true,
	})
	if err == nil || err.Error() != "provide at least one selector (--name/--pid/--prefix) or pass --all" {
		t.Fatalf("expected selector error, got %v", err)
	}
}

func TestAppKillInvalidTimeout(t *testing.T) {
	a := newTestApp(t)
	_, err := a.Kill(context.Background(), KillParams{AllowAll: true})
	if err == nil || err.Error() != "timeout must be greater than 0" {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestAppKillNoMatches(t *testing.T) {
	a := newTestApp(t)
	stubProcesses(t)
	res, err := a.Kill(context.Background(), KillParams{
		Filters:         ListFilters{Names: []string{"nope"}},
		Timeout:         time.Second,
		RequireSelector: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != "No processes match the provided selectors" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
}

func TestAppKillNoAlive(t *testing.T) {
	a := newTestApp(t)
	procs := stubProcesses(t)
	seed(t, a, registry.Descriptor{PID: 40, Name: "ghost"})

	res, err := a.Kill(context.Background(), KillParams{
		Filters: ListFilters{Names: []string{"ghost"}},
		Timeout: time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != "Matching processes exist but none are currently alive" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if len(res.Events) != 1 || res.Events[0].Kind != EventStale {
		t.Fatalf("expected one stale event, got %+v", res.Events)
	}
	if len(procs.signals()) != 0 {
		t.Fatalf("stale entries must not be signaled: %+v", procs.signals())
	}
}

func TestAppKillMultiMatchWithoutAll(t *testing.T) {
	a := newTestApp(t)
	stubProcesses(t, 1, 2, 3)
	seed(t, a,
		registry.Descriptor{PID: 1, Name: "a", Prefix: "/p"},
		registry.Descriptor{PID: 2, Name: "b", Prefix: "/p"},
		registry.Descriptor{PID: 3, Name: "c", Prefix: "/p"},
	)

	_, err := a.Kill(context.Background(), KillParams{
		Filters: ListFilters{Prefix: "/p"},
		Timeout: time.Second,
	})
	if err == nil || err.Error() != "multiple alive processes match filters (pids: 1, 2, 3). Use --all to terminate all or narrow the selection" {
		t.Fatalf("expected multi-match error, got %v", err)
	}
}

func TestAppKillGraceful(t *testing.T) {
	a := newTestApp(t)
	procs := stubProcesses(t, 50)
	seed(t, a, registry.Descriptor{PID: 50, Name: "swift_web"})

	res, err := a.Kill(context.Background(), KillParams{
		Filters: ListFilters{Names: []string{"swift_web"}},
		Timeout: time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Successes != 1 || len(res.Events) != 1 || res.Events[0].Kind != EventStopped {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got := procs.signals(); !reflect.DeepEqual(got, []sentSignal{{50, sigTerm}}) {
		t.Fatalf("unexpected signals: %+v", got)
	}
	// The supervising instance removes its own descriptor.
	if got := registeredPIDs(t, a); !reflect.DeepEqual(got, []int{50}) {
		t.Fatalf("descriptor should be left to its owner, registry: %v", got)
	}
}

func TestAppKillTimeoutWithoutForce(t *testing.T) {
	a := newTestApp(t)
	procs := stubProcesses(t, 60)
	procs.ignoreTerm[60] = true
	seed(t, a, registry.Descriptor{PID: 60, Name: "stubborn_web"})

	res, err := a.Kill(context.Background(), KillParams{
		Filters: ListFilters{PIDs: []int{60}},
		Timeout: 20 * time.Millisecond,
	})
	if err == nil || err.Error() != "no processes were killed (see output above)" {
		t.Fatalf("expected failure, got %v", err)
	}
	if len(res.Events) != 1 || res.Events[0].Kind != EventFailed {
		t.Fatalf("unexpected events: %+v", res.Events)
	}
}

func TestAppKillForce(t *testing.T) {
	a := newTestApp(t)
	procs := stubProcesses(t, 60, 61)
	procs.ignoreTerm[60] = true
	seed(t, a, registry.Descriptor{PID: 60, Name: "stubborn_web"}, registry.Descriptor{PID: 61, Name: "other"})

	res, err := a.Kill(context.Background(), KillParams{
		Filters: ListFilters{PIDs: []int{60}},
		Force:   true,
		Timeout: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Events) != 1 || res.Events[0].Kind != EventKilled {
		t.Fatalf("unexpected events: %+v", res.Events)
	}
	want := []sentSignal{{60, sigTerm}, {60, sigKill}}
	if got := procs.signals(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected signals: %+v", got)
	}
	if got := registeredPIDs(t, a); !reflect.DeepEqual(got, []int{61}) {
		t.Fatalf("orphaned descriptor not removed, registry: %v", got)
	}
}

func TestAppKillAllPartial(t *testing.T) {
	a := newTestApp(t)
	procs := stubProcesses(t, 70, 71)
	procs.ignoreTerm[71] = true
	seed(t, a, registry.Descriptor{PID: 70, Name: "a"}, registry.Descriptor{PID: 71, Name: "b"})

	res, err := a.Kill(context.Background(), KillParams{
		AllowAll: true,
		Timeout:  20 * time.Millisecond,
	})
	if err == nil || err.Error() != "partially successful: killed 1/2 processes" {
		t.Fatalf("expected partial failure, got %v", err)
	}
	if res.TotalMatches != 2 || res.TotalAlive != 2 || res.Successes != 1 {
		t.Fatalf("unexpected counters: %+v", res)
	}
}

func TestAppKillRefusesSelf(t *testing.T) {
	a := newTestApp(t)
	self := os.Getpid()
	procs := stubProcesses(t, self)
	seed(t, a, registry.Descriptor{PID: self, Name: "me"})

	res, err := a.Kill(context.Background(), KillParams{
		Filters: ListFilters{Names: []string{"me"}},
		Timeout: time.Second,
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(res.Events) != 1 || res.Events[0].Kind != EventFailed {
		t.Fatalf("unexpected events: %+v", res.Events)
	}
	if len(procs.signals()) != 0 {
		t.Fatalf("no signal expected, got %+v", procs.signals())
	}
}
