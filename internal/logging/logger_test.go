package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input    string
		expected Level
		wantErr  bool
	}{
		{input: "INFO", expected: InfoLevel},
		{input: "debug", expected: DebugLevel},
		{input: " trace ", expected: TraceLevel},
		{input: "error", expected: ErrorLevel},
		{input: "warn", wantErr: true},
		{input: "bogus", wantErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.input, func(t *testing.T) {
			level, err := ParseLevel(testCase.input)
			if testCase.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, testCase.expected, level)
		})
	}
}

func TestContextWithLogger(t *testing.T) {
	testLogger := NewLogger(InfoLevel)
	ctx := ContextWithLogger(context.Background(), testLogger)
	require.Same(t, testLogger, ctx.Value(loggerContextKey{}))
}

func TestLoggerFromContext(t *testing.T) {
	// This should give us the global logger if one was never explicitly added
	// to the context.
	logger := LoggerFromContext(context.Background())
	require.NotNil(t, logger)
	require.Same(t, globalLogger, logger)

	testLogger := NewLogger(InfoLevel)
	ctx := context.WithValue(context.Background(), loggerContextKey{}, testLogger)
	require.Same(t, testLogger, LoggerFromContext(ctx))
}

func TestLoggerLevels(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLoggerWithOutput(DebugLevel, buf).WithValues("app", 1)

	logger.Trace("hidden")
	require.Empty(t, buf.String())

	logger.Debug("shown", "key", "value")
	require.Contains(t, buf.String(), "shown")
	require.Contains(t, buf.String(), "key=value")
	require.Contains(t, buf.String(), "app=1")

	buf.Reset()
	logger.Error(errors.New("boom"), "failed")
	require.Contains(t, buf.String(), "boom")
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat(" JSON ")
	require.NoError(t, err)
	require.Equal(t, JSONFormat, format)

	format, err = ParseFormat("text")
	require.NoError(t, err)
	require.Equal(t, TextFormat, format)

	_, err = ParseFormat("xml")
	require.ErrorContains(t, err, "invalid log format")
}

func TestNewJSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Options{Level: InfoLevel, Format: JSONFormat, Output: buf})
	logger.Info("loaded", "appID", 7)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "loaded", entry["msg"])
	require.EqualValues(t, 7, entry["appID"])
}
