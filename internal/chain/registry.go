// Package chain holds the table of known EVM networks and constructs custom entries.
package chain

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Chain describes an EVM network the bridge can mediate for.
type Chain struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	HexID string `json:"hexId"`
	RPC   string `json:"rpc"`
}

// NumericID returns the decimal chain id as a string, the form net_version expects.
func (c Chain) NumericID() string {
	return strconv.FormatInt(c.ID, 10)
}

// builtins are ordered the way they are presented to the user.
var builtins = []Chain{
	{ID: 1, Name: "Ethereum", HexID: "0x1", RPC: "https://eth.llamarpc.com"},
	{ID: 42161, Name: "Arbitrum", HexID: "0xa4b1", RPC: "https://arb1.arbitrum.io/rpc"},
	{ID: 8453, Name: "Base", HexID: "0x2105", RPC: "https://mainnet.base.org"},
	{ID: 137, Name: "Polygon", HexID: "0x89", RPC: "https://polygon-rpc.com"},
	{ID: 10, Name: "Optimism", HexID: "0xa", RPC: "https://mainnet.optimism.io"},
	{ID: 56, Name: "BNB Chain", HexID: "0x38", RPC: "https://bsc-dataseed.binance.org"},
	{ID: 43114, Name: "Avalanche", HexID: "0xa86a", RPC: "https://api.avax.network/ext/bc/C/rpc"},
}

// Builtins returns a copy of the built-in chain table.
func Builtins() []Chain {
	out := make([]Chain, len(builtins))
	copy(out, builtins)
	return out
}

// FindByID looks up a built-in chain by numeric id.
func FindByID(id int64) (Chain, bool) {
	for _, c := range builtins {
		if c.ID == id {
			return c, true
		}
	}
	return Chain{}, false
}

// Custom constructs a user-defined chain entry. The id must be positive and the
// RPC endpoint an absolute http(s) URL; the hex id is derived from the numeric id.
func Custom(id int64, name, rpc string) (Chain, error) {
	if id <= 0 {
		return Chain{}, fmt.Errorf("invalid input: chain id must be positive, got %d", id)
	}
	u, err := url.Parse(rpc)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Chain{}, fmt.Errorf("invalid input: rpc must be an http(s) URL, got %q", rpc)
	}
	if name == "" {
		name = fmt.Sprintf("Chain %d", id)
	}
	return Chain{
		ID:    id,
		Name:  name,
		HexID: "0x" + strings.ToLower(strconv.FormatInt(id, 16)),
		RPC:   rpc,
	}, nil
}
