package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, out *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestNew_LevelFiltering(t *testing.T) {
	tests := []struct {
		level    string
		wantMsgs []string
	}{
		{level: "debug", wantMsgs: []string{"claimed", "translated", "retrying", "failed"}},
		{level: "info", wantMsgs: []string{"translated", "retrying", "failed"}},
		{level: "warn", wantMsgs: []string{"retrying", "failed"}},
		{level: "error", wantMsgs: []string{"failed"}},
		{level: "", wantMsgs: []string{"translated", "retrying", "failed"}},
	}

	for _, tt := range tests {
		t.Run("level "+tt.level, func(t *testing.T) {
			out := &bytes.Buffer{}
			logger, err := New(&Config{Level: tt.level, Format: "json", writer: out})
			require.NoError(t, err)

			logger.Debug("claimed")
			logger.Info("translated")
			logger.Warn("retrying")
			logger.Error("failed")

			var msgs []string
			for _, entry := range decodeLines(t, out) {
				msgs = append(msgs, entry["msg"].(string))
			}
			assert.Equal(t, tt.wantMsgs, msgs)
		})
	}
}

func TestNew_JSONAttributes(t *testing.T) {
	out := &bytes.Buffer{}
	logger, err := New(&Config{Level: "info", Format: "json", EnableSource: true, writer: out})
	require.NoError(t, err)

	logger.Info("job completed",
		slog.String("job_id", "job-1"),
		slog.Int("attempts", 2),
		slog.Bool("outdated", false),
	)

	entries := decodeLines(t, out)
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "job-1", entry["job_id"])
	assert.Equal(t, float64(2), entry["attempts"])
	assert.Equal(t, false, entry["outdated"])
	assert.Contains(t, entry, "time")
	assert.Contains(t, entry, "source")
}

func TestNew_ConsoleFormat(t *testing.T) {
	out := &bytes.Buffer{}
	logger, err := New(&Config{Level: "info", Format: "console", writer: out})
	require.NoError(t, err)

	logger.Info("sync finished", slog.Int("jobs_created", 3))

	line := out.String()
	assert.Contains(t, line, "sync finished")
	assert.Contains(t, line, "jobs_created")
	assert.Contains(t, line, "3")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"DEBUG":   slog.LevelInfo,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}

	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")

	logger, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info("written to file", slog.String("job_id", "abc"))
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "written to file", entry["msg"])
	assert.Equal(t, "abc", entry["job_id"])
}

func TestNew_FileOutputInvalidPath(t *testing.T) {
	logger, err := New(&Config{
		Format: "json",
		Output: filepath.Join(t.TempDir(), "missing", "dir", "service.log"),
	})
	require.Error(t, err)
	assert.Nil(t, logger)
}

func TestLogger_Component(t *testing.T) {
	out := &bytes.Buffer{}
	logger, err := New(&Config{Level: "info", Format: "json", writer: out})
	require.NoError(t, err)

	logger.Component("scanner").Info("scan complete")
	logger.Component("worker").Info("job claimed")

	entries := decodeLines(t, out)
	require.Len(t, entries, 2)
	assert.Equal(t, "scanner", entries[0]["component"])
	assert.Equal(t, "worker", entries[1]["component"])
}

func TestNewDiscard(t *testing.T) {
	logger := NewDiscard()
	require.NotNil(t, logger)
	logger.Info("dropped")
	assert.NoError(t, logger.Close())
}
