package probe

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/walletbridge/internal/assist"
	"github.com/openclaw/walletbridge/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Dir = t.TempDir()
	return cfg
}

func TestSetupMarker(t *testing.T) {
	cfg := testConfig(t)

	assert.False(t, SetupComplete(cfg))
	require.NoError(t, MarkSetupComplete(cfg))
	assert.True(t, SetupComplete(cfg))

	// The marker is a zero-byte file.
	info, err := os.Stat(cfg.SetupMarkerPath())
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestChecks(t *testing.T) {
	t.Run("config dir check passes on a writable dir", func(t *testing.T) {
		p := New(testConfig(t), nil, nil)
		c := p.checkConfigDir()
		assert.True(t, c.OK, c.Detail)
	})

	t.Run("explicit chrome path is verified", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Browser.ExecPath = "/definitely/not/chrome"
		p := New(cfg, nil, nil)
		c := p.checkChrome()
		assert.False(t, c.OK)
	})

	t.Run("assistant check follows command resolution", func(t *testing.T) {
		cfg := testConfig(t)

		ok := New(cfg, assist.New("echo hi", nil), nil)
		c := ok.checkAssistant()
		assert.True(t, c.OK, c.Detail)

		missing := New(cfg, assist.New("definitely-not-a-real-binary-xyz", nil), nil)
		c = missing.checkAssistant()
		assert.False(t, c.OK)
	})

	t.Run("run aggregates failures", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Browser.ExecPath = "/definitely/not/chrome"
		p := New(cfg, assist.New("definitely-not-a-real-binary-xyz", nil), nil)

		checks, err := p.Run()
		require.Error(t, err)
		assert.Len(t, checks, 3)
	})
}
