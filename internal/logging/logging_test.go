package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/evtelemetry/bmsbridge/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("bogus"))
}

func TestInitLogger_WritesRollingFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bridge.log")
	logger, err := InitLogger(config.LoggingConfig{
		Level:  "debug",
		Format: "json",
		File:   config.LumberjackConfig{Filename: file, MaxSizeMB: 1},
	})
	require.NoError(t, err)

	logger.Debug("frame decoded")
	_ = logger.Sync()

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"frame decoded"`)
	assert.Contains(t, string(b), `"level":"debug"`)
}

func TestInitLogger_LevelFilters(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bridge.log")
	logger, err := InitLogger(config.LoggingConfig{
		Level:  "warn",
		Format: "console",
		File:   config.LumberjackConfig{Filename: file},
	})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	_ = logger.Sync()

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hidden")
	assert.Contains(t, string(b), "shown")
}
