package session

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog(t *testing.T) {
	t.Run("writes start, lines, and end with duration", func(t *testing.T) {
		dir := t.TempDir()
		log, err := Open(dir)
		require.NoError(t, err)

		log.Printf("navigating to %s", "https://app.example.com")
		log.Error("script fetch", os.ErrDeadlineExceeded)
		require.NoError(t, log.Close())

		data, err := os.ReadFile(log.Path())
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		require.Len(t, lines, 4)

		lineRe := regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2}T[^\]]+\] `)
		for _, line := range lines {
			assert.Regexp(t, lineRe, line)
		}
		assert.Contains(t, lines[0], "session started")
		assert.Contains(t, lines[1], "navigating to https://app.example.com")
		assert.Contains(t, lines[2], "ERROR script fetch")
		assert.Contains(t, lines[3], "session ended after")
	})

	t.Run("file name carries no colons or dots beyond the extension", func(t *testing.T) {
		dir := t.TempDir()
		log, err := Open(dir)
		require.NoError(t, err)
		defer log.Close()

		name := filepath.Base(log.Path())
		assert.NotContains(t, name, ":")
		assert.Equal(t, ".log", filepath.Ext(name))
		assert.NotContains(t, strings.TrimSuffix(name, ".log"), ".")
	})

	t.Run("close is idempotent and printf after close is a no-op", func(t *testing.T) {
		log, err := Open(t.TempDir())
		require.NoError(t, err)
		require.NoError(t, log.Close())
		require.NoError(t, log.Close())
		log.Printf("dropped")

		data, err := os.ReadFile(log.Path())
		require.NoError(t, err)
		assert.NotContains(t, string(data), "dropped")
	})
}
