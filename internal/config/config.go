// Package config loads bridge configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Dir     string `envconfig:"WALLETBRIDGE_DIR"`
	Debug   bool   `envconfig:"WALLETBRIDGE_DEBUG" default:"false"`
	Logging LogConfig
	Browser BrowserConfig
	Capture CaptureConfig
	Assist  AssistConfig
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"true"`
}

// BrowserConfig holds browser launch configuration.
type BrowserConfig struct {
	ExecPath string `envconfig:"CHROME_PATH"`
	Width    int    `envconfig:"VIEWPORT_WIDTH" default:"1440"`
	Height   int    `envconfig:"VIEWPORT_HEIGHT" default:"900"`
}

// CaptureConfig holds the upstream capture service endpoints.
type CaptureConfig struct {
	ScriptURL    string `envconfig:"CAPTURE_SCRIPT_URL" default:"https://mcp.figma.com/toolbar/capture.js"`
	EndpointBase string `envconfig:"CAPTURE_ENDPOINT_BASE" default:"https://mcp.figma.com/mcp"`
}

// SubmitEndpoint derives the submit URL for a capture id.
func (c CaptureConfig) SubmitEndpoint(captureID string) string {
	return fmt.Sprintf("%s/capture/%s/submit", c.EndpointBase, captureID)
}

// AssistConfig holds the capture-id assistant subprocess configuration.
type AssistConfig struct {
	Command string `envconfig:"ASSIST_CMD" default:"figma-mcp"`
}

// Load reads configuration from environment variables and resolves the config
// directory, defaulting to ~/.walletbridge.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		cfg.Dir = filepath.Join(home, ".walletbridge")
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from the environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns the default configuration with the config dir unresolved.
func Default() *Config {
	return &Config{
		Logging: LogConfig{Level: "info", Development: true},
		Browser: BrowserConfig{Width: 1440, Height: 900},
		Capture: CaptureConfig{
			ScriptURL:    "https://mcp.figma.com/toolbar/capture.js",
			EndpointBase: "https://mcp.figma.com/mcp",
		},
		Assist: AssistConfig{Command: "figma-mcp"},
	}
}

// SetupMarkerPath returns the zero-byte file whose presence means setup ran.
func (c *Config) SetupMarkerPath() string {
	return filepath.Join(c.Dir, "setup_complete")
}

// LogsDir returns the session log directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.Dir, "logs")
}
