package launcher

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildEnv(t *testing.T) {
	current := map[string]string{"HOME": "/home/u", "SHELL": "/bin/zsh"}
	lookup := func(k string) (string, bool) {
		v, ok := current[k]
		return v, ok
	}
	base := []string{"PATH=/usr/bin", "HOME=/home/u", DetachEnv + "=1"}

	tests := []struct {
		name      string
		clean     bool
		overrides []string
		want      []string
		warn      string
	}{
		{
			name: "inherit drops detach marker",
			want: []string{"PATH=/usr/bin", "HOME=/home/u"},
		},
		{
			name:      "override replaces in place",
			overrides: []string{"PATH=/opt/bin", "EMPTY="},
			want:      []string{"PATH=/opt/bin", "HOME=/home/u", "EMPTY="},
		},
		{
			name:      "clean with copies",
			clean:     true,
			overrides: []string{"SHELL", "A=b=c"},
			want:      []string{"SHELL=/bin/zsh", "A=b=c"},
		},
		{
			name:      "missing copy is skipped",
			clean:     true,
			overrides: []string{"NOPE"},
			want:      []string{},
			warn:      "key=NOPE",
		},
		{
			name:      "malformed override",
			clean:     true,
			overrides: []string{"=x"},
			want:      []string{},
			warn:      "malformed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, nil))
			got := buildEnv(base, tt.clean, tt.overrides, lookup, logger)
			assert.Equal(t, tt.want, got)
			if tt.warn != "" {
				assert.Contains(t, logs.String(), "level=WARN")
				assert.Contains(t, logs.String(), tt.warn)
			} else {
				assert.Empty(t, logs.String())
			}
		})
	}
}

func TestStreamOptionsHas(t *testing.T) {
	s := SinkOut | SinkIn
	assert.True(t, s.Has(SinkOut))
	assert.True(t, s.Has(SinkIn))
	assert.False(t, s.Has(SinkErr))
	assert.False(t, StreamOptions(0).Has(SinkOut))
}
