package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/legalai-pro/internal/observability"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, observability.ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, observability.ParseLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, observability.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, observability.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, observability.ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, observability.ParseLevel("verbose"))
}

func TestLoggerFromContextAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	observability.Setup(&buf, "info")
	t.Cleanup(func() { observability.Setup(os.Stdout, "info") })

	ctx := observability.WithRequestID(context.Background(), "req-42")
	assert.Equal(t, "req-42", observability.RequestIDFromContext(ctx))

	observability.LoggerFromContext(ctx).Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "hello", entry["msg"])
}

func TestSetupFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	observability.Setup(&buf, "warn")
	t.Cleanup(func() { observability.Setup(os.Stdout, "info") })

	observability.Logger().Info("dropped")
	assert.Zero(t, buf.Len())

	observability.Logger().Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}
