package clog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/bits/xerrors"
)

func newBufferLogger(t *testing.T, level string, opts ...Option) (Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	opts = append(opts, WithWriter(buf))
	logger, err := New(&Config{Level: level, Format: "json", Output: "buffer"}, opts...)
	require.NoError(t, err)
	return logger, buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewNilConfig(t *testing.T) {
	logger, err := New(nil)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := New(&Config{Level: "verbose"})
	assert.Error(t, err)

	_, err = New(&Config{Level: "info", Format: "xml"})
	assert.Error(t, err)

	_, err = New(&Config{Level: "info", Format: "json", Output: "buffer"})
	assert.Error(t, err, "buffer output without writer")
}

func TestJSONOutput(t *testing.T) {
	logger, buf := newBufferLogger(t, "info", WithNamespace("bits", "snowflake"))

	logger.Info("id generated", Int64("id", 42), String("policy", "wait"))

	entry := decodeLine(t, buf)
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "id generated", entry["msg"])
	assert.Equal(t, "bits.snowflake", entry[NamespaceKey])
	assert.Equal(t, float64(42), entry["id"])
	assert.Equal(t, "wait", entry["policy"])
}

func TestLevelFilterAndSetLevel(t *testing.T) {
	logger, buf := newBufferLogger(t, "warn")

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	require.NoError(t, logger.SetLevel(DebugLevel))
	logger.Debug("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestWithAndWithNamespace(t *testing.T) {
	logger, buf := newBufferLogger(t, "debug", WithNamespace("bits"))

	child := logger.With(String("component", "generator")).WithNamespace("snowflake")
	child.Debug("hello")

	entry := decodeLine(t, buf)
	assert.Equal(t, "generator", entry["component"])
	assert.Equal(t, "bits.snowflake", entry[NamespaceKey])

	buf.Reset()
	logger.Debug("parent")
	entry = decodeLine(t, buf)
	assert.Equal(t, "bits", entry[NamespaceKey])
	assert.NotContains(t, entry, "component")
}

func TestContextFields(t *testing.T) {
	type ctxKey string
	logger, buf := newBufferLogger(t, "info", WithStandardContext(), WithContextField(ctxKey("node"), "node"))

	ctx := context.WithValue(context.Background(), "trace_id", "abc")
	ctx = context.WithValue(ctx, ctxKey("node"), "1/15")
	logger.InfoContext(ctx, "with context")

	entry := decodeLine(t, buf)
	assert.Equal(t, "abc", entry["trace_id"])
	assert.Equal(t, "1/15", entry["node"])
	assert.NotContains(t, entry, "user_id")
}

func TestErrorFields(t *testing.T) {
	logger, buf := newBufferLogger(t, "info")

	logger.Error("plain", Error(errors.New("boom")))
	entry := decodeLine(t, buf)
	assert.Equal(t, "boom", entry["err_msg"])
	assert.NotContains(t, entry, "err_code")

	buf.Reset()
	coded := xerrors.WithCode(errors.New("backwards"), "CLOCK_REGRESSION")
	logger.Error("coded", Error(coded))
	entry = decodeLine(t, buf)
	assert.Equal(t, "CLOCK_REGRESSION", entry["err_code"])

	buf.Reset()
	logger.Error("nil error", Error(nil))
	entry = decodeLine(t, buf)
	assert.NotContains(t, entry, "err_msg")

	buf.Reset()
	logger.Error("explicit", ErrorWithCode(errors.New("x"), "E1"))
	entry = decodeLine(t, buf)
	group, ok := entry["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "E1", group["code"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		err  bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"fatal", FatalLevel, false},
		{"trace", InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.err, err != nil)
		})
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Info("nothing")
	assert.NoError(t, logger.SetLevel(ErrorLevel))
	assert.Equal(t, logger, logger.With(String("k", "v")))
}
