//go:build unix

package launcher

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// SessionDetacher re-executes the current program in a new session with its
// standard streams on the null device. The new instance sees DetachEnv and
// continues the launch itself.
type SessionDetacher struct {
	// Path defaults to the running executable.
	Path string
	// Args defaults to the current arguments, without the program name.
	Args []string
}

// Detach implements Detacher.
func (d SessionDetacher) Detach() (int, error) {
	if os.Getenv(DetachEnv) != "" {
		return 0, nil
	}

	path := d.Path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return 0, fmt.Errorf("resolve executable: %w", err)
		}
		path = exe
	}
	args := d.Args
	if args == nil {
		args = os.Args[1:]
	}

	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return 0, err
	}
	defer devnull.Close()

	cmd := exec.Command(path, args...)
	cmd.Env = append(os.Environ(), DetachEnv+"=1")
	cmd.Stdin = devnull
	cmd.Stdout = devnull
	cmd.Stderr = devnull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start background instance: %w", err)
	}
	pid := cmd.Process.Pid
	_ = cmd.Process.Release()
	return pid, nil
}
