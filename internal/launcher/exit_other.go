//go:build !unix

package launcher

import "os"

func exitStatus(state *os.ProcessState) int {
	if state == nil {
		return ExitSpawnFailure
	}
	return state.ExitCode()
}

func terminate(p *os.Process) error {
	return p.Kill()
}
