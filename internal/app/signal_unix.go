//go:build unix

package app

import (
	"syscall"

	"github.com/shirou/gopsutil/v3/process"
)

const (
	sigTerm = syscall.SIGTERM
	sigKill = syscall.SIGKILL
)

func sendSignal(pid int, sig syscall.Signal) error {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	return p.SendSignal(sig)
}
