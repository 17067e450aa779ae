package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Formats(t *testing.T) {
	t.Run("auto on a buffer is json", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(Options{Writer: &buf})
		require.NoError(t, err)

		logger.Info("built", slog.Int("rows", 3))

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "built", line["msg"])
		assert.Equal(t, float64(3), line["rows"])
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(Options{Writer: &buf, Format: "TEXT"})
		require.NoError(t, err)

		logger.Info("built", slog.Int("rows", 3))
		assert.Contains(t, buf.String(), "msg=built rows=3")
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := New(Options{Format: "xml"})
		assert.Error(t, err)
	})
}

func TestNew_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Writer: &buf, Level: "warn", Format: FormatText})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	logger, err = New(Options{Writer: &buf, Level: "warn", Format: FormatText, Verbose: true})
	require.NoError(t, err)
	logger.Debug("detail")
	assert.Contains(t, buf.String(), "detail")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}
