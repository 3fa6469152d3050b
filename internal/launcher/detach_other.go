//go:build !unix

package launcher

// SessionDetacher is unavailable without POSIX sessions.
type SessionDetacher struct {
	Path string
	Args []string
}

// Detach implements Detacher.
func (SessionDetacher) Detach() (int, error) {
	return 0, ErrDetachUnsupported
}
