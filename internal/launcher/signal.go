package launcher

import (
	"os"
	"syscall"
)

// forwardSignals relays signals arriving on sigc to child as a
// graceful-then-forceful stop. The returned func stops the relay; the caller
// owns the signal registration.
func (l *Launcher) forwardSignals(child *Child, sigc <-chan os.Signal) func() {
	quit := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigc:
				l.logger.Info("received signal, stopping child", "signal", sig.String(), "pid", child.Pid())
				if err := child.Stop(l.stopTimeout); err != nil {
					l.logger.Warn("failed to stop child", "pid", child.Pid(), "error", err)
				}
			case <-child.Done():
				return
			case <-quit:
				return
			}
		}
	}()

	return func() { close(quit) }
}

// signalCode is the exit status of a process killed by sig.
func signalCode(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return 128 + int(s)
	}
	return ExitSpawnFailure
}
