// Package assist drives the capture-id assistant subprocess over a pty.
//
// The assistant is an interactive tool; it only produces its output when it
// believes it has a terminal, so it runs under a pty rather than a pipe.
package assist

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/openclaw/walletbridge/internal/logging"
)

// captureIDRe matches the id token the assistant prints, e.g.
// "Capture ID: u-20240115-8fk2".
var captureIDRe = regexp.MustCompile(`(?i)capture[ _-]?id[:=]?\s+"?([A-Za-z0-9][A-Za-z0-9._-]*)"?`)

// Assistant launches the configured command and extracts a capture id from
// its terminal output.
type Assistant struct {
	Command string
	Timeout time.Duration

	// Debug dumps the raw pty stream (and a hex variant) under DumpDir.
	Debug   bool
	DumpDir string

	log *logging.Logger
}

// New builds an assistant around the configured command.
func New(command string, log *logging.Logger) *Assistant {
	if log == nil {
		log = logging.NewNop()
	}
	return &Assistant{Command: command, Timeout: 2 * time.Minute, log: log}
}

// Check verifies the assistant command can be resolved at all.
func (a *Assistant) Check() error {
	name := strings.Fields(a.Command)
	if len(name) == 0 {
		return fmt.Errorf("invalid input: assistant command is empty")
	}
	if _, err := exec.LookPath(name[0]); err != nil {
		return fmt.Errorf("assistant %q not found on PATH: %w", name[0], err)
	}
	return nil
}

// CaptureID runs the assistant and returns the first capture id it prints.
func (a *Assistant) CaptureID(ctx context.Context) (string, error) {
	output, err := a.run(ctx)
	if err != nil {
		return "", err
	}
	match := captureIDRe.FindStringSubmatch(output)
	if match == nil {
		return "", fmt.Errorf("assistant produced no capture id")
	}
	id := match[1]
	a.log.Info("capture id obtained", zap.String("captureId", id))
	return id, nil
}

// run executes the command under a pty and returns everything it wrote.
func (a *Assistant) run(ctx context.Context) (string, error) {
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	parts := strings.Fields(a.Command)
	if len(parts) == 0 {
		return "", fmt.Errorf("invalid input: assistant command is empty")
	}
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: 40, Cols: 120})
	if err != nil {
		return "", fmt.Errorf("start assistant pty: %w", err)
	}
	defer ptmx.Close()

	var out strings.Builder
	buf := make([]byte, 4096)
	for {
		n, readErr := ptmx.Read(buf)
		if n > 0 {
			out.Write(buf[:n])
		}
		if readErr != nil {
			// EIO is the normal pty close on Linux.
			if readErr != io.EOF && ctx.Err() != nil {
				cmd.Wait()
				return "", fmt.Errorf("assistant timed out: %w", ctx.Err())
			}
			break
		}
	}
	cmd.Wait()

	raw := out.String()
	a.dump(raw)
	return raw, nil
}

// dump writes the raw pty stream and a hex rendering for offline inspection.
func (a *Assistant) dump(raw string) {
	if !a.Debug || a.DumpDir == "" {
		return
	}
	if err := os.MkdirAll(a.DumpDir, 0o755); err != nil {
		a.log.Warn("pty dump dir", zap.Error(err))
		return
	}
	if err := os.WriteFile(filepath.Join(a.DumpDir, "pty-dump.log"), []byte(raw), 0o644); err != nil {
		a.log.Warn("pty dump", zap.Error(err))
	}
	if err := os.WriteFile(filepath.Join(a.DumpDir, "pty-dump.hex.log"), []byte(hex.Dump([]byte(raw))), 0o644); err != nil {
		a.log.Warn("pty hex dump", zap.Error(err))
	}
}
