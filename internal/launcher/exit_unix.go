//go:build unix

package launcher

import (
	"os"
	"syscall"
)

func exitStatus(state *os.ProcessState) int {
	if state == nil {
		return ExitSpawnFailure
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return state.ExitCode()
}

func terminate(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}
