package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
)

// Entry owns one descriptor file for the lifetime of a launch. Close removes
// the file under the directory lock; failures are logged, never escalated past
// the returned error.
type Entry struct {
	reg  *Registry
	path string
	desc Descriptor

	once sync.Once
	err  error
}

// Descriptor returns the record written for this entry.
func (e *Entry) Descriptor() Descriptor { return e.desc }

// Path returns the descriptor file path.
func (e *Entry) Path() string { return e.path }

// Close re-acquires the registry lock and deletes the descriptor. It is safe
// to call more than once.
func (e *Entry) Close() error {
	if e == nil {
		return nil
	}
	e.once.Do(func() { e.err = e.remove() })
	return e.err
}

func (e *Entry) remove() error {
	log := e.reg.logger
	lk, err := e.reg.Lock(context.Background())
	if err != nil {
		// Removal proceeds unguarded.
		log.Warn("could not lock registry for descriptor removal", "path", e.path, "error", err)
	} else {
		defer lk.Release()
	}
	if err := os.Remove(e.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed to remove descriptor", "path", e.path, "error", err)
		return fmt.Errorf("remove descriptor %s: %w", e.path, err)
	}
	return nil
}
