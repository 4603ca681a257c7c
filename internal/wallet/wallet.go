// Package wallet manages the named key pairs the bridge impersonates with.
package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet is a named secp256k1 key pair. The address is always derived from the
// private key, never stored independently of it.
type Wallet struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	PrivateKey string `json:"privateKey"`
}

var privateKeyRe = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// Generate creates a wallet with a fresh random key.
func Generate(name string) (Wallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return Wallet{}, fmt.Errorf("generate key: %w", err)
	}
	return fromKey(name, key), nil
}

// FromPrivateKey builds a wallet from a user-supplied 32-byte hex key.
func FromPrivateKey(name, privateKey string) (Wallet, error) {
	if !privateKeyRe.MatchString(privateKey) {
		return Wallet{}, fmt.Errorf("invalid input: private key must match 0x + 64 hex chars")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return Wallet{}, fmt.Errorf("invalid input: %w", err)
	}
	return fromKey(name, key), nil
}

func fromKey(name string, key *ecdsa.PrivateKey) Wallet {
	return Wallet{
		Name:       name,
		Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKey: "0x" + fmt.Sprintf("%064x", key.D),
	}
}

// Key parses the stored private key back into its ECDSA form.
func (w Wallet) Key() (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(strings.TrimPrefix(w.PrivateKey, "0x"))
}

// DeriveAddress recomputes the address for a hex private key. Used to verify
// store integrity; returns the EIP-55 checksummed form.
func DeriveAddress(privateKey string) (string, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return "", err
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), nil
}
