// Package provider renders the wallet façade script injected into every page.
//
// The script impersonates a browser wallet on both discovery surfaces dApps
// probe: the legacy window.ethereum global and the EIP-6963 multi-provider
// announcement protocol. Every request it receives is funneled to the host
// through the __rpcProxy binding.
package provider

import (
	_ "embed"
	"strings"

	"github.com/google/uuid"
)

//go:embed provider.js
var providerJS string

// Params parameterise one rendered provider script.
type Params struct {
	Address        string
	ChainHexID     string
	NumericChainID string
	UUID           string // optional; a fresh v4 uuid when empty
}

// Script renders the injectable provider source for the given identity. The
// uuid stays constant for the lifetime of the rendered script, as the
// announcement protocol requires.
func Script(p Params) string {
	id := p.UUID
	if id == "" {
		id = uuid.NewString()
	}
	return strings.NewReplacer(
		"__ADDRESS__", p.Address,
		"__CHAIN_HEX_ID__", p.ChainHexID,
		"__CHAIN_ID_DECIMAL__", p.NumericChainID,
		"__PROVIDER_UUID__", id,
	).Replace(providerJS)
}
