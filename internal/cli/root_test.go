package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTree(t *testing.T) {
	root := NewRootCmd()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "wallets", "setup"} {
		assert.True(t, names[want], "missing command %s", want)
	}

	wallets, _, err := root.Find([]string{"wallets"})
	require.NoError(t, err)
	sub := map[string]bool{}
	for _, c := range wallets.Commands() {
		sub[c.Name()] = true
	}
	for _, want := range []string{"list", "create", "import", "delete"} {
		assert.True(t, sub[want], "missing wallets subcommand %s", want)
	}
}
