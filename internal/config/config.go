package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix       = "ENVRUN"
	homeDirName     = ".envrun"
	registryDirName = "proc"

	keyRegistryDir  = "registry_dir"
	keyUseLockfiles = "use_lockfiles"
	keyLockTimeout  = "lock_timeout"
	keyTargetPrefix = "target_prefix"
	keyLogLevel     = "log_level"
	keyLogFormat    = "log_format"
)

// Config aggregates the settings consumed by the launcher and its helpers.
type Config struct {
	// RegistryDir holds one descriptor file per supervised process.
	RegistryDir string
	// UseLockfiles disables the registry directory lock when false.
	UseLockfiles bool
	// LockTimeout bounds lock acquisition: 0 waits indefinitely, negative fails fast.
	LockTimeout time.Duration
	// TargetPrefix is the environment commands are launched into.
	TargetPrefix string
	LogLevel     string
	LogFormat    string
}

// HomeDir returns ~/.envrun.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, homeDirName), nil
}

// Load builds a Config from defaults, an optional YAML file and ENVRUN_* variables.
// With an empty path, ~/.envrun/config.yaml is read if present.
func Load(path string) (Config, error) {
	v := viper.New()

	home, err := HomeDir()
	if err != nil {
		return Config{}, err
	}
	v.SetDefault(keyRegistryDir, filepath.Join(home, registryDirName))
	v.SetDefault(keyUseLockfiles, true)
	v.SetDefault(keyLockTimeout, "0s")
	v.SetDefault(keyLogLevel, "warn")
	v.SetDefault(keyLogFormat, "text")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv(keyTargetPrefix, "ENVRUN_TARGET_PREFIX", "CONDA_PREFIX"); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(home)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	timeout, err := parseDuration(v.GetString(keyLockTimeout))
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", keyLockTimeout, err)
	}
	format := strings.ToLower(v.GetString(keyLogFormat))
	if format != "text" && format != "json" {
		return Config{}, fmt.Errorf("%s must be text or json, got %q", keyLogFormat, format)
	}

	return Config{
		RegistryDir:  expandHome(v.GetString(keyRegistryDir)),
		UseLockfiles: v.GetBool(keyUseLockfiles),
		LockTimeout:  timeout,
		TargetPrefix: v.GetString(keyTargetPrefix),
		LogLevel:     v.GetString(keyLogLevel),
		LogFormat:    format,
	}, nil
}

func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
