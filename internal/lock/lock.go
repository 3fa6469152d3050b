// Package lock provides an advisory, re-entrant lock scoped to a directory.
//
// The lock is a flock(2) on a file named after the directory and placed inside
// it. Separate Locker values behave like separate tool instances: they contend
// for the same flock. Acquisitions through one Locker are re-entrant and share
// a single open file, because flock conflicts between descriptors of the same
// process as well.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"envrun/internal/logging"
)

const defaultPollInterval = 50 * time.Millisecond

// ErrLocked is returned when another process holds the lock and the
// configured wait (if any) has elapsed.
var ErrLocked = errors.New("directory is locked by another process")

// Error reports a failure to obtain a directory lock. It is distinct from the
// "locking disabled" case, which is not an error.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to lock %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options configures a Locker.
type Options struct {
	// Disabled turns every Acquire into a no-op that still returns a Lock.
	Disabled bool
	// Timeout bounds waiting for a contended lock: 0 waits until ctx is done,
	// negative fails immediately.
	Timeout time.Duration
	// PollInterval is the retry period while waiting. Defaults to 50ms.
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Locker hands out directory locks for one process.
type Locker struct {
	opts   Options
	logger *slog.Logger

	mu   sync.Mutex
	held map[string]*state
}

type state struct {
	f    *os.File
	refs int
}

// New returns a Locker.
func New(opts Options) *Locker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	return &Locker{
		opts:   opts,
		logger: logging.OrDiscard(opts.Logger),
		held:   make(map[string]*state),
	}
}

// Path returns the lock file used for dir.
func Path(dir string) string {
	dir = filepath.Clean(dir)
	return filepath.Join(dir, filepath.Base(dir)+".lock")
}

// Acquire locks dir. The returned Lock must be released; releasing is
// idempotent. When locking is disabled or unsupported, Acquire succeeds with a
// Lock whose Disabled method reports true.
func (l *Locker) Acquire(ctx context.Context, dir string) (*Lock, error) {
	path := Path(dir)
	if l.opts.Disabled || !supported {
		l.logger.Debug("directory locking disabled, no exclusion applied", "path", path)
		return &Lock{path: path, disabled: true}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if st, ok := l.held[path]; ok {
		st.refs++
		return &Lock{locker: l, path: path}, nil
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	if err := l.wait(ctx, f); err != nil {
		f.Close()
		if errors.Is(err, ErrLocked) {
			if pid := holderPID(path); pid > 0 {
				err = fmt.Errorf("%w (held by pid %d)", err, pid)
			}
		}
		return nil, &Error{Path: path, Err: err}
	}
	writeHolder(f)

	l.held[path] = &state{f: f, refs: 1}
	return &Lock{locker: l, path: path}, nil
}

func (l *Locker) wait(ctx context.Context, f *os.File) error {
	var deadline <-chan time.Time
	if l.opts.Timeout > 0 {
		timer := time.NewTimer(l.opts.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	ticker := time.NewTicker(l.opts.PollInterval)
	defer ticker.Stop()

	for {
		ok, err := tryLock(f)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if l.opts.Timeout < 0 {
			return ErrLocked
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrLocked, ctx.Err())
		case <-deadline:
			return fmt.Errorf("%w (timeout after %v)", ErrLocked, l.opts.Timeout)
		case <-ticker.C:
		}
	}
}

func (l *Locker) release(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.held[path]
	if !ok {
		return nil
	}
	st.refs--
	if st.refs > 0 {
		return nil
	}
	delete(l.held, path)
	err := unlock(st.f)
	if cerr := st.f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("release lock %s: %w", path, err)
	}
	return nil
}

// Lock is one acquisition of a directory lock.
type Lock struct {
	locker   *Locker
	path     string
	disabled bool
	once     sync.Once
}

// Path returns the lock file path.
func (lk *Lock) Path() string { return lk.path }

// Disabled reports whether this lock provides no real exclusion.
func (lk *Lock) Disabled() bool { return lk.disabled }

// Release drops this acquisition. The flock is released once the last
// acquisition for the directory is dropped.
func (lk *Lock) Release() error {
	if lk == nil || lk.locker == nil {
		return nil
	}
	var err error
	lk.once.Do(func() { err = lk.locker.release(lk.path) })
	return err
}

func writeHolder(f *os.File) {
	if err := f.Truncate(0); err != nil {
		return
	}
	_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
}

func holderPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
