package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/reckless-court/internal/logger"
)

func TestLogLevels(t *testing.T) {
	testCases := []struct {
		name          string
		level         logger.LogLevel
		logFunc       func(l logger.Logger, msg string)
		shouldContain bool
	}{
		{"debug at debug", logger.LogLevelDebug, func(l logger.Logger, msg string) { l.Debug(msg) }, true},
		{"debug at info", logger.LogLevelInfo, func(l logger.Logger, msg string) { l.Debug(msg) }, false},
		{"info at info", logger.LogLevelInfo, func(l logger.Logger, msg string) { l.Info(msg) }, true},
		{"info at warn", logger.LogLevelWarn, func(l logger.Logger, msg string) { l.Info(msg) }, false},
		{"trace at trace", logger.LogLevelTrace, func(l logger.Logger, msg string) { l.Trace(msg) }, true},
		{"trace at debug", logger.LogLevelDebug, func(l logger.Logger, msg string) { l.Trace(msg) }, false},
		{"error at error", logger.LogLevelError, func(l logger.Logger, msg string) { l.Error(msg) }, true},
		{"explicit warn at info", logger.LogLevelInfo, func(l logger.Logger, msg string) { l.Log(logger.LogLevelWarn, msg) }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := logger.NewSlogLogger(&buf, tc.level, nil)

			tc.logFunc(log, "gavel struck")

			assert.Equal(t, tc.shouldContain, strings.Contains(buf.String(), "gavel struck"))
		})
	}
}

func TestFieldsAndModules(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewSlogLogger(&buf, logger.LogLevelDebug, nil).Module("court").Module("ledger")

	log.With(logger.String("request_id", "r-1")).Info("batch saved",
		logger.Int("saved", 3),
		logger.Bool("confirmed", true),
		logger.Duration("elapsed", 1500*time.Millisecond),
		logger.Error(errors.New("boom")),
		logger.Float64("ratio", 0.123456))

	out := buf.String()
	assert.Contains(t, out, "module=court.ledger")
	assert.Contains(t, out, "request_id=r-1")
	assert.Contains(t, out, "saved=3")
	assert.Contains(t, out, "confirmed=true")
	assert.Contains(t, out, "elapsed=1.5s")
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "ratio=0.123")
	assert.NotContains(t, out, "time=", "timestamps are omitted without a timezone")
}

func TestWithContextAddsTraceID(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewSlogLogger(&buf, logger.LogLevelInfo, nil)

	ctx := logger.WithTraceID(context.Background(), "trace-42")
	log.WithContext(ctx).Info("spin")
	log.WithContext(context.Background()).Info("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "trace_id=trace-42")
	assert.NotContains(t, lines[1], "trace_id")
}

func TestCentralLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "court.log")

	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: path},
		ModuleLevels: map[string]string{"remote": "warn"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cl.Close() })

	cl.Module("court").Debug("ledger ready", logger.Int("pending", 0))
	cl.Module("remote").Info("filtered by module level")
	require.NoError(t, cl.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "ledger ready", entry["msg"])
	assert.Equal(t, "court", entry["module"])
	assert.Equal(t, "DEBUG", entry["level"])
	assert.InDelta(t, 0, entry["pending"], 0)
	assert.NotEmpty(t, entry["time"])
}

func TestCentralLoggerRejectsBadTimezone(t *testing.T) {
	_, err := logger.NewCentralLogger(&logger.LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)

	_, err = logger.NewCentralLogger(nil)
	require.Error(t, err)
}

func TestGlobalFallback(t *testing.T) {
	logger.SetGlobal(nil)
	t.Cleanup(func() { logger.SetGlobal(nil) })

	assert.NotNil(t, logger.Global())
	assert.NotNil(t, logger.Global().Module("test"))
}
