//go:build unix

package launcher

import (
	"os/exec"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommandForTest() *exec.Cmd {
	return exec.Command("true")
}

func TestChildExitStatus(t *testing.T) {
	c := newChild(exec.Command("sh", "-c", "exit 42"))
	require.NoError(t, c.Start())
	code, err := c.Wait()
	require.NoError(t, err)
	assert.Equal(t, 42, code)
}

func TestChildStopAfterExit(t *testing.T) {
	c := newChild(exec.Command("true"))
	require.NoError(t, c.Start())
	code, err := c.Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.NoError(t, c.Stop(time.Second))
}

func TestChildConcurrentStop(t *testing.T) {
	c := newChild(exec.Command("sleep", "5"))
	require.NoError(t, c.Start())

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Stop(time.Second)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}

	code, err := c.Wait()
	require.NoError(t, err)
	assert.Equal(t, 128+int(syscall.SIGTERM), code)
}
