package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("json logger writes to a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pharmacy.log")
		log, err := New(&Config{
			Level:      "info",
			Format:     "json",
			Output:     path,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		})
		require.NoError(t, err)

		log.Info("stock intake complete")
		require.NoError(t, Sync(log))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), `"msg":"stock intake complete"`)
		assert.Contains(t, string(content), `"level":"info"`)
	})

	t.Run("level filters lower entries", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pharmacy.log")
		log, err := New(&Config{Level: "warn", Format: "json", Output: path})
		require.NoError(t, err)

		log.Info("dropped")
		log.Warn("kept")
		require.NoError(t, Sync(log))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(content), "dropped")
		assert.Contains(t, string(content), "kept")
	})

	t.Run("console format is line oriented", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pharmacy.log")
		log, err := New(&Config{Level: "debug", Format: "console", Output: path, TimeFormat: "15:04:05"})
		require.NoError(t, err)

		log.Debug("lot allocated")
		require.NoError(t, Sync(log))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "lot allocated")
		assert.False(t, strings.HasPrefix(string(content), "{"))
	})
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"fatal":   zapcore.FatalLevel,
		"ERROR":   zapcore.ErrorLevel,
		"verbose": zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestOpenOutput_FallsBackToStdoutOnBadPath(t *testing.T) {
	// A directory cannot be opened for appending
	ws := openOutput(t.TempDir())
	assert.NotNil(t, ws)
}
