package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureDefault swaps the default logger for one writing JSON into a buffer.
func captureDefault(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })
	return &buf
}

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestWithConversation(t *testing.T) {
	buf := captureDefault(t)

	WithConversation(42).Info("loaded")

	line := logLine(t, buf)
	assert.Equal(t, float64(42), line["conversation_id"])
	assert.Equal(t, "loaded", line["msg"])
}

func TestWithPrompt(t *testing.T) {
	buf := captureDefault(t)

	WithPrompt(7).Info("deleted")

	line := logLine(t, buf)
	assert.Equal(t, float64(7), line["prompt_id"])
}

func TestWithError(t *testing.T) {
	buf := captureDefault(t)

	WithError(errors.New("boom")).Error("failed")

	line := logLine(t, buf)
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "ERROR", line["level"])
}

func TestInitLogger_Levels(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	ctx := context.Background()

	InitLogger("warn", "json")
	assert.False(t, Logger.Enabled(ctx, slog.LevelInfo))
	assert.True(t, Logger.Enabled(ctx, slog.LevelWarn))

	InitLogger("bogus", "text")
	assert.True(t, Logger.Enabled(ctx, slog.LevelInfo))
	assert.False(t, Logger.Enabled(ctx, slog.LevelDebug))
}
