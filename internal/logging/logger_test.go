package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"topdivers/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testApp = config.AppConfig{Name: "topdivers", Environment: "test", Version: "0.1.0"}

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.LoggingConfig
		level zerolog.Level
	}{
		{"Defaults", config.LoggingConfig{}, zerolog.InfoLevel},
		{"DebugStderr", config.LoggingConfig{Level: "debug", Output: "stderr"}, zerolog.DebugLevel},
		{"MixedCase", config.LoggingConfig{Level: " WARN "}, zerolog.WarnLevel},
		{"ConsoleFormat", config.LoggingConfig{Level: "error", Format: "console"}, zerolog.ErrorLevel},
		{"UnknownLevel", config.LoggingConfig{Level: "loud"}, zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, closer, err := New(tt.cfg, testApp)
			require.NoError(t, err)
			assert.Nil(t, closer)
			assert.Equal(t, tt.level, logger.GetLevel())
		})
	}
}

func TestNewFileOutputCarriesAppFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "storefront.log")
	logger, closer, err := New(config.LoggingConfig{Output: "file", FilePath: path}, testApp)
	require.NoError(t, err)
	require.NotNil(t, closer)

	logger.Info().Int64("invoice_id", 42).Msg("invoice created")
	require.NoError(t, closer.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &entry))
	assert.Equal(t, "topdivers", entry["app"])
	assert.Equal(t, "test", entry["env"])
	assert.Equal(t, "0.1.0", entry["version"])
	assert.Equal(t, 42.0, entry["invoice_id"])
	assert.Contains(t, entry, "time")
}

func TestNewRejectsBadOutput(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Output: "file"}, testApp)
	assert.ErrorContains(t, err, "file_path")

	_, _, err = New(config.LoggingConfig{Output: "syslog"}, testApp)
	assert.ErrorContains(t, err, "syslog")
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf).With().Str("app", "topdivers").Logger()
	Component(&base, "gate").Warn().Msg("auth cookie rejected")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "gate", entry["component"])
	assert.Equal(t, "topdivers", entry["app"])
	assert.Equal(t, "warn", entry["level"])
}
