package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 1440, cfg.Browser.Width)
	assert.Equal(t, 900, cfg.Browser.Height)
	assert.Equal(t, "https://mcp.figma.com/toolbar/capture.js", cfg.Capture.ScriptURL)
	assert.False(t, cfg.Debug)
}

func TestLoad(t *testing.T) {
	t.Run("defaults with no environment", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, ".walletbridge", filepath.Base(cfg.Dir))
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("WALLETBRIDGE_DIR", "/tmp/wb-test")
		t.Setenv("WALLETBRIDGE_DEBUG", "true")
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("CHROME_PATH", "/opt/chrome")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/wb-test", cfg.Dir)
		assert.True(t, cfg.Debug)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "/opt/chrome", cfg.Browser.ExecPath)
	})
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default()
	cfg.Dir = "/tmp/wb"

	assert.Equal(t, "/tmp/wb/setup_complete", cfg.SetupMarkerPath())
	assert.Equal(t, "/tmp/wb/logs", cfg.LogsDir())
	assert.Equal(t, "https://mcp.figma.com/mcp/capture/u-1/submit", cfg.Capture.SubmitEndpoint("u-1"))
}
