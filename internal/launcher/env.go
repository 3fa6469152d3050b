package launcher

import (
	"log/slog"
	"strings"
)

// buildEnv returns the child's environment: base (or nothing when clean) with
// overrides applied in order. A bare KEY override copies the value found by
// lookup and is skipped with a warning when the variable is unset.
func buildEnv(base []string, clean bool, overrides []string, lookup func(string) (string, bool), logger *slog.Logger) []string {
	env := []string{}
	if !clean {
		for _, kv := range base {
			if key, _, _ := strings.Cut(kv, "="); key == DetachEnv {
				continue
			}
			env = append(env, kv)
		}
	}

	for _, o := range overrides {
		key, value, ok := strings.Cut(o, "=")
		if key == "" {
			logger.Warn("ignoring malformed environment override", "override", o)
			continue
		}
		if !ok {
			value, ok = lookup(key)
			if !ok {
				logger.Warn("environment variable not set, not passing it to the child", "key", key)
				continue
			}
		}
		env = setEnv(env, key, value)
	}
	return env
}

func setEnv(env []string, key, value string) []string {
	kv := key + "=" + value
	for i, e := range env {
		if k, _, _ := strings.Cut(e, "="); k == key {
			env[i] = kv
			return env
		}
	}
	return append(env, kv)
}
