//go:build unix

package app

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"envrun/internal/config"
	"envrun/internal/launcher"
	"envrun/internal/logging"
)

func TestAppRunActivatesPrefix(t *testing.T) {
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}
	prefix := t.TempDir()
	var stdout bytes.Buffer
	a, err := New(Options{
		Config: &config.Config{
			RegistryDir:  filepath.Join(t.TempDir(), "proc"),
			UseLockfiles: true,
			TargetPrefix: "/ignored",
		},
		Logger: logging.Discard(),
		Stdout: &stdout,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	code, err := a.Run(context.Background(), RunParams{Options: launcher.Options{
		Command: []string{"sh", "-c", `printf %s "$CONDA_PREFIX"; exit 4`},
		Name:    "swift_sh",
	}, Prefix: prefix})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 4 {
		t.Fatalf("expected exit status 4, got %d", code)
	}
	if stdout.String() != prefix {
		t.Fatalf("unexpected output %q", stdout.String())
	}
	if got := registeredPIDs(t, a); len(got) != 0 {
		t.Fatalf("descriptor left behind: %v", got)
	}
}

func TestNewLoadsConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := New(Options{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	if err == nil {
		t.Fatal("expected an error for a missing explicit config file")
	}
}
