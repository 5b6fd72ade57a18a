package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{
		Component: component,
		Handler:   slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestComponentIsStampedOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf, ComponentApp)

	logger.Info("plain")
	logger.WithComponent(ComponentLedger).With(FieldRequestID, "r1").Warn("switched")
	logger.Info("explicit", FieldComponent, ComponentSecurity)

	got := lines(t, &buf)
	require.Len(t, got, 3)
	assert.Equal(t, ComponentApp, got[0][FieldComponent])
	assert.Equal(t, ComponentLedger, got[1][FieldComponent])
	assert.Equal(t, "r1", got[1][FieldRequestID])
	assert.Equal(t, ComponentSecurity, got[2][FieldComponent])
	assert.Equal(t, len(got), strings.Count(buf.String(), `"component":`), "one component key per record")
}

func TestWithComponentKeepsAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf, ComponentHTTP).With(FieldRequestID, "abc")

	sec := logger.WithComponent(ComponentSecurity)
	assert.Equal(t, ComponentSecurity, sec.Component())
	sec.Warn("suspicious")

	got := lines(t, &buf)
	assert.Equal(t, "abc", got[0][FieldRequestID])
	assert.Equal(t, ComponentSecurity, got[0][FieldComponent])
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf, ComponentHTTP)

	ctx := NewContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))

	fallback := FromContext(context.Background())
	require.NotNil(t, fallback)
	assert.Equal(t, ComponentApp, fallback.Component())
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(jsonLogger(&buf, ComponentApp))

	sl.LogTransferChanged(context.Background(), OpCreate, "tr-1", 1, 2, 500)
	sl.LogError(context.Background(), "Request failed", errors.New("boom"), ComponentHTTP, OpUpdate,
		NewFields().WithHTTPRequest("PUT", "/api/transfers/tr-1", "", "", ""))

	got := lines(t, &buf)
	require.Len(t, got, 2)
	assert.Equal(t, "tr-1", got[0][FieldTransferID])
	assert.Equal(t, ComponentTransfer, got[0][FieldComponent])
	assert.Equal(t, OpCreate, got[0][FieldOperation])
	assert.EqualValues(t, 500, got[0][FieldAmount])

	assert.Equal(t, "ERROR", got[1]["level"])
	assert.Equal(t, "boom", got[1][FieldError])
	assert.Equal(t, ComponentHTTP, got[1][FieldComponent])
	assert.Equal(t, "/api/transfers/tr-1", got[1][FieldPath])
}

func TestLogHTTPEndLevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(jsonLogger(&buf, ComponentApp))
	req := httptest.NewRequest(http.MethodPost, "/api/transfers?x=1", nil)

	sl.LogHTTPStart(context.Background(), req, "10.0.0.1")
	for _, code := range []int{http.StatusOK, http.StatusConflict, http.StatusServiceUnavailable} {
		sl.LogHTTPEnd(context.Background(), req, code, 3, "10.0.0.1")
	}

	got := lines(t, &buf)
	require.Len(t, got, 4)
	assert.Equal(t, "DEBUG", got[0]["level"])
	assert.Equal(t, "10.0.0.1", got[0][FieldClientIP])
	assert.Equal(t, "x=1", got[0][FieldQuery])
	for i, want := range []string{"INFO", "WARN", "ERROR"} {
		assert.Equal(t, want, got[i+1]["level"])
		assert.Equal(t, ComponentHTTP, got[i+1][FieldComponent])
	}
	assert.Equal(t, false, got[3][FieldSuccess])
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("trace")
	assert.Error(t, err)
}
