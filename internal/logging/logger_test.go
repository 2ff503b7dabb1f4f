package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// restoreLogger puts the package logger back after a test swaps it.
func restoreLogger(t *testing.T) {
	original := defaultLogger
	t.Cleanup(func() {
		defaultLogger = original
		slog.SetDefault(original)
	})
}

func TestSetupLoggerLevels(t *testing.T) {
	restoreLogger(t)

	testCases := []struct {
		name      string
		level     LogLevel
		shouldLog map[string]bool
	}{
		{
			name:      "debug logs everything",
			level:     LevelDebug,
			shouldLog: map[string]bool{"DEBUG": true, "INFO": true, "WARN": true, "ERROR": true},
		},
		{
			name:      "info hides debug",
			level:     LevelInfo,
			shouldLog: map[string]bool{"DEBUG": false, "INFO": true, "WARN": true, "ERROR": true},
		},
		{
			name:      "warn hides info",
			level:     LevelWarn,
			shouldLog: map[string]bool{"DEBUG": false, "INFO": false, "WARN": true, "ERROR": true},
		},
		{
			name:      "error only",
			level:     LevelError,
			shouldLog: map[string]bool{"DEBUG": false, "INFO": false, "WARN": false, "ERROR": true},
		},
		{
			name:      "invalid level defaults to info",
			level:     LogLevel("loud"),
			shouldLog: map[string]bool{"DEBUG": false, "INFO": true, "WARN": true, "ERROR": true},
		},
	}

	funcs := map[string]func(string, ...any){
		"DEBUG": Debug,
		"INFO":  Info,
		"WARN":  Warn,
		"ERROR": Error,
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetupLogger(&buf, tc.level)

			for level, logFunc := range funcs {
				buf.Reset()
				logFunc("row imported", "row", 7)
				didLog := strings.Contains(buf.String(), "row imported")
				assert.Equal(t, tc.shouldLog[level], didLog, "level %s", level)
				if didLog {
					assert.Contains(t, buf.String(), "level="+level)
					assert.Contains(t, buf.String(), "row=7")
				}
			}
		})
	}
}

func TestSetupJSONFormat(t *testing.T) {
	restoreLogger(t)

	var buf bytes.Buffer
	Setup(&buf, LevelInfo, FormatJSON)
	Info("phase complete", "phase", "transform", "rows", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "phase complete", entry["msg"])
	assert.Equal(t, "transform", entry["phase"])
	assert.Equal(t, float64(3), entry["rows"])
}

func TestWithFields(t *testing.T) {
	restoreLogger(t)

	var buf bytes.Buffer
	SetupLogger(&buf, LevelInfo)

	logger := WithFields("run_id", "abc123")
	logger.Info("created issue", "identifier", "ENG-1")

	output := buf.String()
	assert.Contains(t, output, "run_id=abc123")
	assert.Contains(t, output, "identifier=ENG-1")
}

func TestOpenLogFileIn(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	now := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

	f, err := openLogFileIn(dir, "monday-import", now)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, filepath.Join(dir, "monday-import-2024-03-09.log"), f.Name())

	_, err = f.WriteString("hello\n")
	require.NoError(t, err)

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestMaskSensitive(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty string", input: "", expected: "<not set>"},
		{name: "Short string", input: "abc", expected: "<set>"},
		{name: "Exactly 4 characters", input: "abcd", expected: "<set>"},
		{name: "Linear API key", input: "lin_api_9fk39Dkf0s", expected: "lin_...***"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, MaskSensitive(tc.input))
		})
	}
}
