package launcher

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// DetachEnv marks the background instance started by SessionDetacher.
const DetachEnv = "ENVRUN_DETACHED"

// ErrDetachUnsupported is returned by detachers on platforms without sessions.
var ErrDetachUnsupported = errors.New("detaching is not supported on this platform")

// Detacher moves supervision into a background session.
type Detacher interface {
	// Detach returns the pid of the background instance to the foreground
	// caller, which should then stop, and 0 to the background instance, which
	// carries on with the launch.
	Detach() (int, error)
}

// DetacherFunc adapts a function to Detacher.
type DetacherFunc func() (int, error)

// Detach calls f.
func (f DetacherFunc) Detach() (int, error) { return f() }

var noticeStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("0")).
	Background(lipgloss.Color("2")).
	Bold(true).
	Padding(0, 1)

func detachNotice(pid int) string {
	return noticeStyle.Render(fmt.Sprintf("Running in the background as pid %d", pid)) +
		fmt.Sprintf("\nKill process with: kill %d", pid)
}
