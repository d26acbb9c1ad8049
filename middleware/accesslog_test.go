package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratushq/stratus"
)

func TestAccessLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	mw := AccessLog(logger)
	ctx := stratus.NewContext("GET", "/api/users/1")
	ctx.Set("middleware.requestID", "req-9")

	require.False(t, mw.Before(ctx).ShortCircuited())
	mw.After(stratus.OK("ok"), ctx)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "request completed", entry["msg"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/api/users/1", entry["path"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, "req-9", entry["request_id"])
	assert.Contains(t, entry, "duration")
}

func TestAccessLog_WithoutRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	mw := AccessLog(logger)
	ctx := stratus.NewContext("DELETE", "/api/users/1")

	mw.Before(ctx)
	mw.After(stratus.NoContent(), ctx)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, float64(204), entry["status"])
	assert.NotContains(t, entry, "request_id")
}
