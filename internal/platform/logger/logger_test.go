package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/nate007-quant/mission-control/internal/config"
	"github.com/nate007-quant/mission-control/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWithWriter(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	tests := []struct {
		level      string
		debugShown bool
		infoShown  bool
	}{
		{level: "debug", debugShown: true, infoShown: true},
		{level: "INFO", debugShown: false, infoShown: true},
		{level: "error", debugShown: false, infoShown: false},
		{level: "nonsense", debugShown: false, infoShown: true},
	}

	for _, tc := range tests {
		t.Run(tc.level, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := logger.SetupWithWriter(config.ServerConfig{LogLevel: tc.level}, &buf)
			require.NoError(t, err)
			require.NotNil(t, l)
			assert.Same(t, l, slog.Default(), "setup installs the default logger")

			l.Debug("debug message")
			assert.Equal(t, tc.debugShown, bytes.Contains(buf.Bytes(), []byte("debug message")))

			buf.Reset()
			l.Info("info message", "task_id", 7)
			assert.Equal(t, tc.infoShown, bytes.Contains(buf.Bytes(), []byte("info message")))

			if tc.infoShown {
				var entry map[string]any
				require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
				assert.Equal(t, "info message", entry["msg"])
				assert.EqualValues(t, 7, entry["task_id"])
			}
		})
	}
}

func TestContextLogger(t *testing.T) {
	l, buf := logger.NewTestLogger(t)

	ctx := logger.WithLogger(context.Background(), l.With("trace_id", "abc"))
	logger.FromContext(ctx).Info("claimed")

	entries, err := buf.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "abc", entries[0]["trace_id"])

	fallback, _ := logger.NewTestLogger(t)
	assert.Same(t, fallback, logger.FromContextOrDefault(context.Background(), fallback))
	assert.NotNil(t, logger.FromContext(context.Background()))
}
