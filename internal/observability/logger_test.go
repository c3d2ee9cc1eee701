// File: internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/vxkeys/puppetry/internal/config"
)

// syncBuffer adapts bytes.Buffer to zapcore.WriteSyncer so tests can capture
// console output without touching os.Stdout.
type syncBuffer struct {
	bytes.Buffer
}

func (b *syncBuffer) Sync() error { return nil }

func initTestLogger(t *testing.T, cfg config.LoggerConfig) *syncBuffer {
	t.Helper()
	ResetForTest()
	t.Cleanup(ResetForTest)

	buf := &syncBuffer{}
	Initialize(cfg, zapcore.Lock(buf))
	return buf
}

func TestInitializeConsoleLoggerWithColors(t *testing.T) {
	buf := initTestLogger(t, config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "puppetry-test",
		Colors:      config.ColorConfig{Info: "green"},
	})

	GetLogger().Info("console message")

	output := buf.String()
	assert.Contains(t, output, "INFO")
	assert.Contains(t, output, "console message")
	assert.Contains(t, output, colorGreen)
	assert.Contains(t, output, colorReset)
	assert.Contains(t, output, "puppetry-test.")
}

func TestInitializeJSONLogger(t *testing.T) {
	buf := initTestLogger(t, config.LoggerConfig{
		Level:       "info",
		Format:      "json",
		ServiceName: "puppetry-test",
	})

	GetLogger().Info("structured message")

	line := bytes.TrimSpace(buf.Bytes())
	var entry map[string]any
	require.NoError(t, json.Unmarshal(line, &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "structured message", entry["msg"])
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	buf := initTestLogger(t, config.LoggerConfig{
		Level:       "chatty",
		Format:      "json",
		ServiceName: "puppetry-test",
	})

	GetLogger().Debug("should be suppressed")
	GetLogger().Info("should appear")

	output := buf.String()
	assert.NotContains(t, output, "should be suppressed")
	assert.Contains(t, output, "should appear")
}

func TestFileCoreWritesJSON(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "puppetry.log")
	initTestLogger(t, config.LoggerConfig{
		Level:       "info",
		Format:      "console",
		ServiceName: "puppetry-test",
		LogFile:     logFile,
		MaxSize:     1,
	})

	GetLogger().Info("to the file")
	Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "to the file", entry["msg"])
}

func TestInitializeRunsOnce(t *testing.T) {
	buf := initTestLogger(t, config.LoggerConfig{
		Level:       "info",
		Format:      "json",
		ServiceName: "first",
	})

	// A second Initialize must not replace the configured logger.
	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "second"}, zapcore.Lock(&syncBuffer{}))
	GetLogger().Info("still the first logger")

	assert.Contains(t, buf.String(), `"logger":"first"`)
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger := GetLogger()
	require.NotNil(t, logger)
}
