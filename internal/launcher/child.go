package launcher

import (
	"errors"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Child is a spawned process shared between the main wait path and the signal
// forwarder. Stop calls are serialized; a single goroutine reaps the process.
type Child struct {
	cmd *exec.Cmd

	mu   sync.Mutex
	done chan struct{}
	err  error
}

func newChild(cmd *exec.Cmd) *Child {
	return &Child{cmd: cmd, done: make(chan struct{})}
}

// Start spawns the process.
func (c *Child) Start() error {
	if err := c.cmd.Start(); err != nil {
		return err
	}
	go func() {
		c.err = c.cmd.Wait()
		close(c.done)
	}()
	return nil
}

// Pid returns the child's process id.
func (c *Child) Pid() int { return c.cmd.Process.Pid }

// Done is closed once the child has exited and its streams are drained.
func (c *Child) Done() <-chan struct{} { return c.done }

// Wait blocks until the child exits and returns its exit status. Signal
// deaths map to 128+signal. A non-nil error means the status was obtained but
// something else went wrong, such as copying its output.
func (c *Child) Wait() (int, error) {
	<-c.done
	var exitErr *exec.ExitError
	if c.err != nil && !errors.As(c.err, &exitErr) {
		return exitStatus(c.cmd.ProcessState), c.err
	}
	return exitStatus(c.cmd.ProcessState), nil
}

// Stop asks the child to terminate and kills it if it is still running after
// timeout. It returns once the child has exited. Stopping an exited child is a
// no-op.
func (c *Child) Stop(timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return nil
	default:
	}

	if err := terminate(c.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-c.done:
		return nil
	case <-timer.C:
	}

	if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	<-c.done
	return nil
}
