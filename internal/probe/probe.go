// Package probe verifies session prerequisites and tracks the setup marker.
package probe

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/openclaw/walletbridge/internal/assist"
	"github.com/openclaw/walletbridge/internal/config"
	"github.com/openclaw/walletbridge/internal/logging"
)

// chromeCandidates are the executables tried when no explicit path is set.
var chromeCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
}

// Check is the outcome of one prerequisite probe.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

// Probe runs the environment checks a session depends on.
type Probe struct {
	cfg       *config.Config
	assistant *assist.Assistant
	log       *logging.Logger
}

// New builds a probe. The assistant may be nil to skip its check.
func New(cfg *config.Config, assistant *assist.Assistant, log *logging.Logger) *Probe {
	if log == nil {
		log = logging.NewNop()
	}
	return &Probe{cfg: cfg, assistant: assistant, log: log}
}

// Run executes all checks and reports each outcome. The returned error is
// non-nil when any check failed.
func (p *Probe) Run() ([]Check, error) {
	checks := []Check{
		p.checkConfigDir(),
		p.checkChrome(),
	}
	if p.assistant != nil {
		checks = append(checks, p.checkAssistant())
	}

	failed := 0
	for _, c := range checks {
		if c.OK {
			p.log.Info("prerequisite ok", zap.String("check", c.Name))
		} else {
			failed++
			p.log.Warn("prerequisite failed", zap.String("check", c.Name), zap.String("detail", c.Detail))
		}
	}
	if failed > 0 {
		return checks, fmt.Errorf("%d prerequisite check(s) failed", failed)
	}
	return checks, nil
}

func (p *Probe) checkConfigDir() Check {
	if err := os.MkdirAll(p.cfg.Dir, 0o755); err != nil {
		return Check{Name: "config dir", Detail: err.Error()}
	}
	marker := filepath.Join(p.cfg.Dir, ".probe")
	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		return Check{Name: "config dir", Detail: fmt.Sprintf("not writable: %v", err)}
	}
	os.Remove(marker)
	return Check{Name: "config dir", OK: true, Detail: p.cfg.Dir}
}

func (p *Probe) checkChrome() Check {
	if p.cfg.Browser.ExecPath != "" {
		if _, err := os.Stat(p.cfg.Browser.ExecPath); err != nil {
			return Check{Name: "chrome", Detail: fmt.Sprintf("%s: %v", p.cfg.Browser.ExecPath, err)}
		}
		return Check{Name: "chrome", OK: true, Detail: p.cfg.Browser.ExecPath}
	}
	for _, candidate := range chromeCandidates {
		if filepath.IsAbs(candidate) {
			if _, err := os.Stat(candidate); err == nil {
				return Check{Name: "chrome", OK: true, Detail: candidate}
			}
			continue
		}
		if path, err := exec.LookPath(candidate); err == nil {
			return Check{Name: "chrome", OK: true, Detail: path}
		}
	}
	return Check{Name: "chrome", Detail: "no Chrome or Chromium executable found; set CHROME_PATH"}
}

func (p *Probe) checkAssistant() Check {
	if err := p.assistant.Check(); err != nil {
		return Check{Name: "assistant", Detail: err.Error()}
	}
	return Check{Name: "assistant", OK: true, Detail: p.assistant.Command}
}

// SetupComplete reports whether the setup marker exists.
func SetupComplete(cfg *config.Config) bool {
	_, err := os.Stat(cfg.SetupMarkerPath())
	return err == nil
}

// MarkSetupComplete writes the zero-byte marker.
func MarkSetupComplete(cfg *config.Config) error {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(cfg.SetupMarkerPath(), nil, 0o644)
}
