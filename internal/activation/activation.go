// Package activation turns a logical command into one that runs inside a
// target environment.
package activation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"al.essio.dev/pkg/shellescape"
)

const defaultShell = "bash"

// Wrapper maps a logical command and a target environment to the argument
// vector to execute. The command given by the launcher starts with the shell
// builtin "exec -a <alias>", so a Wrapper must hand it to a shell. script is a temporary file the caller removes once the
// child has exited; it is empty when nothing was written.
type Wrapper interface {
	Wrap(prefix string, command []string) (argv []string, script string, err error)
}

// WrapperFunc adapts a function to Wrapper.
type WrapperFunc func(prefix string, command []string) ([]string, string, error)

// Wrap calls f.
func (f WrapperFunc) Wrap(prefix string, command []string) ([]string, string, error) {
	return f(prefix, command)
}

// ShellWrapper activates the prefix in a generated shell script and runs the
// command from it. The command may begin with shell builtins such as exec.
type ShellWrapper struct {
	// Shell interprets the script. Defaults to bash.
	Shell string
	// TempDir holds generated scripts. Defaults to os.TempDir().
	TempDir string
}

// Wrap writes the activation script and returns [shell, script].
func (w ShellWrapper) Wrap(prefix string, command []string) ([]string, string, error) {
	if len(command) == 0 {
		return nil, "", fmt.Errorf("wrap: empty command")
	}
	shell := w.Shell
	if shell == "" {
		shell = defaultShell
	}

	f, err := os.CreateTemp(w.TempDir, "envrun-*.sh")
	if err != nil {
		return nil, "", fmt.Errorf("create activation script: %w", err)
	}
	path := f.Name()
	_, werr := f.WriteString(Script(prefix, command))
	cerr := f.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(path)
		if werr == nil {
			werr = cerr
		}
		return nil, "", fmt.Errorf("write activation script %s: %w", path, werr)
	}
	return []string{shell, path}, path, nil
}

// Script renders the activation script body for prefix and command.
func Script(prefix string, command []string) string {
	var b strings.Builder
	b.WriteString("#!/usr/bin/env bash\n")
	if prefix != "" {
		fmt.Fprintf(&b, "export CONDA_PREFIX=%s\n", shellescape.Quote(prefix))
		fmt.Fprintf(&b, "export PATH=%s:\"$PATH\"\n", shellescape.Quote(filepath.Join(prefix, "bin")))
	}
	b.WriteString(shellescape.QuoteCommand(command))
	b.WriteString("\n")
	return b.String()
}
