package rpc

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// personalSign signs the raw bytes of the hex payload with the EIP-191
// personal-message prefix.
func personalSign(key *ecdsa.PrivateKey, hexPayload string) (string, error) {
	payload, err := decodeHexPayload(hexPayload)
	if err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}
	sig, err := crypto.Sign(accounts.TextHash(payload), key)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	sig[64] += 27
	return hexutil.Encode(sig), nil
}

// signTypedData parses the EIP-712 payload and signs its digest.
func signTypedData(key *ecdsa.PrivateKey, typedJSON string) (string, error) {
	var typed apitypes.TypedData
	if err := json.Unmarshal([]byte(typedJSON), &typed); err != nil {
		return "", fmt.Errorf("invalid input: typed data is not valid JSON: %v", err)
	}
	digest, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return "", fmt.Errorf("sign typed data: %w", err)
	}
	sig[64] += 27
	return hexutil.Encode(sig), nil
}

// txParams is the transaction object dApps pass to eth_sendTransaction.
type txParams struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"`
	Gas   string `json:"gas"`
}

// sendTransaction completes the missing transaction fields from the upstream
// node, signs a legacy transaction, and submits it. Returns the tx hash.
func (d *Dispatcher) sendTransaction(ctx context.Context, p txParams) (string, error) {
	address := crypto.PubkeyToAddress(d.key.PublicKey)

	nonceHex, err := d.client.CallString(ctx, d.chain.RPC, "eth_getTransactionCount", []any{address.Hex(), "pending"})
	if err != nil {
		return "", err
	}
	nonce, err := hexutil.DecodeUint64(nonceHex)
	if err != nil {
		return "", fmt.Errorf("%w: bad nonce %q", ErrUpstream, nonceHex)
	}

	gasPriceHex, err := d.client.CallString(ctx, d.chain.RPC, "eth_gasPrice", nil)
	if err != nil {
		return "", err
	}
	gasPrice, err := hexutil.DecodeBig(gasPriceHex)
	if err != nil {
		return "", fmt.Errorf("%w: bad gas price %q", ErrUpstream, gasPriceHex)
	}

	value := big.NewInt(0)
	if p.Value != "" {
		value, err = hexutil.DecodeBig(p.Value)
		if err != nil {
			return "", fmt.Errorf("invalid input: bad value %q", p.Value)
		}
	}

	var data []byte
	if p.Data != "" && p.Data != "0x" {
		data, err = hexutil.Decode(p.Data)
		if err != nil {
			return "", fmt.Errorf("invalid input: bad data field: %v", err)
		}
	}

	gas, err := d.gasLimit(ctx, p, address.Hex())
	if err != nil {
		return "", err
	}

	var tx *types.Transaction
	if p.To == "" {
		tx = types.NewContractCreation(nonce, value, gas, gasPrice, data)
	} else {
		to := common.HexToAddress(p.To)
		tx = types.NewTransaction(nonce, to, value, gas, gasPrice, data)
	}

	signed, err := types.SignTx(tx, types.NewEIP155Signer(big.NewInt(d.chain.ID)), d.key)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("encode transaction: %w", err)
	}

	return d.client.CallString(ctx, d.chain.RPC, "eth_sendRawTransaction", []any{hexutil.Encode(raw)})
}

// gasLimit uses the caller-provided gas when present, otherwise asks the node
// for an estimate with headroom.
func (d *Dispatcher) gasLimit(ctx context.Context, p txParams, from string) (uint64, error) {
	if p.Gas != "" {
		gas, err := hexutil.DecodeUint64(p.Gas)
		if err != nil {
			return 0, fmt.Errorf("invalid input: bad gas %q", p.Gas)
		}
		return gas, nil
	}

	call := map[string]any{"from": from}
	if p.To != "" {
		call["to"] = p.To
	}
	if p.Data != "" {
		call["data"] = p.Data
	}
	if p.Value != "" {
		call["value"] = p.Value
	}
	estimateHex, err := d.client.CallString(ctx, d.chain.RPC, "eth_estimateGas", []any{call})
	if err != nil {
		// Estimation is advisory; fall back to a roomy default.
		return 500000, nil
	}
	estimate, err := hexutil.DecodeUint64(estimateHex)
	if err != nil {
		return 500000, nil
	}
	return estimate + estimate/5, nil
}

// decodeHexPayload accepts 0x-prefixed hex; anything else is treated as the
// literal UTF-8 bytes of the string, which some dApps still send.
func decodeHexPayload(payload string) ([]byte, error) {
	if len(payload) >= 2 && (payload[:2] == "0x" || payload[:2] == "0X") {
		return hexutil.Decode(payload)
	}
	return []byte(payload), nil
}
