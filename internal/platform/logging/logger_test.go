package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, sonic.Unmarshal(bytes.TrimSpace(buf.Bytes()), &out))
	return out
}

func TestLogger_ForGameAndFieldEncoding(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelInfo).ForGame("save-1")

	logger.Info("matchday advanced",
		"date", time.Date(2025, time.August, 16, 0, 0, 0, 0, time.UTC),
		"took", 1500*time.Millisecond,
		"error", errors.New("boom"),
	)

	line := decodeLine(t, &buf)
	require.Equal(t, "matchday advanced", line["msg"])
	require.Equal(t, "INFO", line["level"])
	require.Equal(t, "save-1", line["game_id"])
	require.Equal(t, "2025-08-16", line["date"])
	require.Equal(t, "1.5s", line["took"])
	require.Equal(t, "boom", line["error"])
}

func TestLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelWarn)

	logger.DebugContext(context.Background(), "hidden")
	logger.Info("hidden")
	require.Zero(t, buf.Len())

	logger.Warn("shown", "dangling")
	line := decodeLine(t, &buf)
	require.Equal(t, "shown", line["msg"])
	require.NotContains(t, line, "dangling")
}

func TestLogger_NilUsesDefault(t *testing.T) {
	var buf bytes.Buffer
	prev := Default()
	SetDefault(New(&buf, LevelInfo))
	t.Cleanup(func() { SetDefault(prev) })

	var logger *Logger
	logger.Info("through default", "game_id", "save-2")

	line := decodeLine(t, &buf)
	require.Equal(t, "save-2", line["game_id"])
}

func TestLogger_SyncOnce(t *testing.T) {
	logger := NewNop()
	child := logger.With("k", "v")
	require.NoError(t, child.Sync())
	require.NoError(t, logger.Sync())
	require.True(t, logger.synced.Load())
}
