package app

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"envrun/internal/registry"
)

var (
	processAlive  = pidExists
	signalProcess = sendSignal
)

// Process is a registry entry with the liveness of its supervising instance.
type Process struct {
	registry.Descriptor
	Alive bool
}

// ListFilters aggregates selectors shared across commands. Selectors of
// different kinds must all match; values within one kind are alternatives.
type ListFilters struct {
	Names     []string
	PIDs      []int
	Prefix    string
	AliveOnly bool
}

func (f ListFilters) predicate() (registry.Predicate, error) {
	names := make([]string, 0, len(f.Names))
	for _, name := range f.Names {
		clean := strings.TrimSpace(name)
		if clean == "" {
			return nil, errors.New("name filters must not be empty")
		}
		names = append(names, clean)
	}
	for _, pid := range f.PIDs {
		if pid <= 0 {
			return nil, fmt.Errorf("invalid pid filter: %d", pid)
		}
	}
	pids := registry.PIDIn(f.PIDs...)
	prefix := strings.TrimSpace(f.Prefix)

	return func(d registry.Descriptor) bool {
		if len(names) > 0 && !slices.Contains(names, d.Name) {
			return false
		}
		if len(f.PIDs) > 0 && !pids(d) {
			return false
		}
		return prefix == "" || d.Prefix == prefix
	}, nil
}

func (f ListFilters) empty() bool {
	return len(f.Names) == 0 && len(f.PIDs) == 0 && strings.TrimSpace(f.Prefix) == ""
}

func pidExists(pid int) bool {
	ok, err := process.PidExists(int32(pid))
	return err == nil && ok
}
