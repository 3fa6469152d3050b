package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"envrun/internal/lock"
	"envrun/internal/logging"
)

var (
	// ErrNameInUse is returned when an explicit alias is already registered.
	ErrNameInUse = errors.New("another process with this name is currently running")

	// ErrLockNotHeld is returned when registering without the directory lock.
	ErrLockNotHeld = errors.New("registry lock is not held")
)

// Registry is the directory of descriptor files shared by every tool instance.
// It keeps no in-memory state: each query rescans the directory.
type Registry struct {
	dir    string
	locker *lock.Locker
	logger *slog.Logger
}

// New returns a Registry rooted at dir. Locking goes through locker.
func New(dir string, locker *lock.Locker, logger *slog.Logger) *Registry {
	return &Registry{
		dir:    filepath.Clean(dir),
		locker: locker,
		logger: logging.OrDiscard(logger),
	}
}

// Dir returns the registry directory.
func (r *Registry) Dir() string { return r.dir }

// EnsureDir creates the registry directory if needed.
func (r *Registry) EnsureDir() error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return fmt.Errorf("create registry directory %s: %w", r.dir, err)
	}
	return nil
}

// Usable reports whether the directory exists and is writable.
func (r *Registry) Usable() bool {
	info, err := os.Stat(r.dir)
	if err != nil || !info.IsDir() {
		return false
	}
	return writable(r.dir)
}

// Lock acquires the registry directory lock.
func (r *Registry) Lock(ctx context.Context) (*lock.Lock, error) {
	return r.locker.Acquire(ctx, r.dir)
}

// List scans the directory and returns the descriptors matching pred (all
// when pred is nil), ordered by PID. Unreadable or malformed files are skipped
// with a warning. A missing directory yields an empty result.
func (r *Registry) List(pred Predicate) ([]Descriptor, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read registry directory %s: %w", r.dir, err)
	}

	out := make([]Descriptor, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != DescriptorExt {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())
		d, err := readDescriptor(path)
		if err != nil {
			r.logger.Warn("skipping registry entry", "path", path, "error", err)
			continue
		}
		if pred == nil || pred(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out, nil
}

// IsNameInUse reports whether a registered descriptor carries name. A scan
// failure is logged and treated as "not in use".
func (r *Registry) IsNameInUse(name string) bool {
	matches, err := r.List(NameEquals(name))
	if err != nil {
		r.logger.Warn("registry scan failed", "error", err)
		return false
	}
	return len(matches) > 0
}

// Register writes d while lk is held and returns the Entry that owns the file.
// A zero d.PID means the current process.
func (r *Registry) Register(lk *lock.Lock, d Descriptor) (*Entry, error) {
	if lk == nil || (!lk.Disabled() && lk.Path() != lock.Path(r.dir)) {
		return nil, ErrLockNotHeld
	}
	if d.PID <= 0 {
		d.PID = os.Getpid()
	}
	if d.StartedAt.IsZero() {
		d.StartedAt = now()
	}
	path := r.descriptorPath(d.PID)
	if err := writeDescriptor(path, d); err != nil {
		return nil, &CreateError{Path: path, Err: err}
	}
	return &Entry{reg: r, path: path, desc: d}, nil
}

// Remove deletes the descriptor for pid. The caller must hold the lock.
func (r *Registry) Remove(pid int) error {
	if err := os.Remove(r.descriptorPath(pid)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Prune removes, under the directory lock, descriptors whose supervising
// process is no longer alive, and returns them.
func (r *Registry) Prune(ctx context.Context, alive func(pid int) bool) ([]Descriptor, error) {
	lk, err := r.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer lk.Release()

	stale, err := r.List(func(d Descriptor) bool { return !alive(d.PID) })
	if err != nil {
		return nil, err
	}
	removed := make([]Descriptor, 0, len(stale))
	for _, d := range stale {
		if err := r.Remove(d.PID); err != nil {
			r.logger.Warn("failed to remove stale descriptor", "pid", d.PID, "error", err)
			continue
		}
		removed = append(removed, d)
	}
	return removed, nil
}

func (r *Registry) descriptorPath(pid int) string {
	return filepath.Join(r.dir, strconv.Itoa(pid)+DescriptorExt)
}

func readDescriptor(path string) (Descriptor, error) {
	var d Descriptor
	pid, err := strconv.Atoi(strings.TrimSuffix(filepath.Base(path), DescriptorExt))
	if err != nil || pid <= 0 {
		return d, errors.New("file name is not a pid")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return d, err
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("parse descriptor: %w", err)
	}
	d.PID = pid
	return d, nil
}

// CreateError reports that a descriptor file could not be written.
type CreateError struct {
	Path string
	Err  error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("failed to open/create file %s: %v", e.Path, e.Err)
}

func (e *CreateError) Unwrap() error { return e.Err }
