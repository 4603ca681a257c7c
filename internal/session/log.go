// Package session writes the per-session line log under the config directory.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Log is a per-session append-only log file. Lines carry an ISO timestamp; the
// first and last lines record session start and end plus duration.
type Log struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	started time.Time
	closed  bool
}

// Open creates `<configDir>/logs/<timestamp>.log` and writes the opening line.
// The timestamp has ":" and "." replaced so the name is filesystem-safe.
func Open(configDir string) (*Log, error) {
	dir := filepath.Join(configDir, "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}

	started := time.Now()
	name := strings.NewReplacer(":", "-", ".", "-").Replace(started.Format(time.RFC3339Nano)) + ".log"
	file, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}

	l := &Log{file: file, path: file.Name(), started: started}
	l.Printf("session started")
	return l, nil
}

// Path returns the log file location.
func (l *Log) Path() string {
	return l.path
}

// Dir returns the logs directory the file lives in.
func (l *Log) Dir() string {
	return filepath.Dir(l.path)
}

// Printf appends one formatted line.
func (l *Log) Printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	fmt.Fprintf(l.file, "[%s] %s\n", time.Now().Format(time.RFC3339Nano), fmt.Sprintf(format, args...))
}

// Error appends an error line, including a stack-like detail when present.
func (l *Log) Error(context string, err error) {
	if err == nil {
		l.Printf("ERROR %s", context)
		return
	}
	l.Printf("ERROR %s: %+v", context, err)
}

// Close writes the terminal line with the session duration and closes the file.
// Safe to call more than once.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	duration := time.Since(l.started).Round(time.Millisecond)
	fmt.Fprintf(l.file, "[%s] session ended after %s\n", time.Now().Format(time.RFC3339Nano), duration)
	l.closed = true
	return l.file.Close()
}
