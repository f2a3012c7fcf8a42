package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useBase(t *testing.T, l *slog.Logger) {
	t.Helper()
	mu.Lock()
	prev := base
	base = l
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		base = prev
		mu.Unlock()
	})
}

func TestNew_SingleComponentKey(t *testing.T) {
	var buf bytes.Buffer
	useBase(t, newLogger(&buf, Options{Service: "bot"}))

	New("catalog").Info("menu loaded")

	line := strings.TrimSpace(buf.String())
	assert.Equal(t, 1, strings.Count(line, `"component"`), line)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &rec))
	assert.Equal(t, "bot", rec["service"])
	assert.Equal(t, "catalog", rec["component"])
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, Options{Level: "warn"})

	l.Info("dropped")
	l.Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"msg":"kept"`)
	assert.NotContains(t, out, `"service"`, "no service attr when unset")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}
