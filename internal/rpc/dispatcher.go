package rpc

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/openclaw/walletbridge/internal/approver"
	"github.com/openclaw/walletbridge/internal/chain"
	"github.com/openclaw/walletbridge/internal/logging"
	"github.com/openclaw/walletbridge/internal/wallet"
)

// Dispatcher classifies each wallet RPC method and answers, signs, or forwards.
type Dispatcher struct {
	wallet wallet.Wallet
	key    *ecdsa.PrivateKey
	chain  chain.Chain
	bus    *approver.Bus
	client *Client
	log    *logging.Logger
}

// New builds a dispatcher for one session identity.
func New(w wallet.Wallet, ch chain.Chain, bus *approver.Bus, client *Client, log *logging.Logger) (*Dispatcher, error) {
	key, err := w.Key()
	if err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if client == nil {
		client = NewClient()
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Dispatcher{wallet: w, key: key, chain: ch, bus: bus, client: client, log: log}, nil
}

// action is the classification of one incoming method.
type action struct {
	// answer is the local response for wallet-meta methods.
	answer any
	// local is true when answer applies, distinguishing a nil answer from
	// the forward case.
	local bool
	// signer produces a signature or tx hash for signing methods.
	signer func(ctx context.Context) (string, error)
	// display carries the approver-facing rendering of a signing request.
	display []approver.DisplayField
}

// Dispatch handles one call from the injected provider. Every error crosses
// the page boundary as a plain message on a rejected promise.
func (d *Dispatcher) Dispatch(ctx context.Context, method string, params []any) (any, error) {
	d.log.Debug("rpc dispatch", zap.String("method", method))

	act, err := d.classify(method, params)
	if err != nil {
		d.log.Warn("rpc rejected", zap.String("method", method), zap.Error(err))
		return nil, err
	}

	switch {
	case act.local:
		return act.answer, nil
	case act.signer != nil:
		return d.signWithApproval(ctx, method, params, act)
	default:
		result, err := d.client.Call(ctx, d.chain.RPC, method, params)
		if err != nil {
			d.log.Warn("rpc forward failed", zap.String("method", method), zap.Error(err))
			return nil, err
		}
		return result, nil
	}
}

// classify maps a method onto its handling class without performing any I/O.
func (d *Dispatcher) classify(method string, params []any) (action, error) {
	switch method {
	case "eth_accounts", "eth_requestAccounts":
		return action{local: true, answer: []any{d.wallet.Address}}, nil

	case "eth_chainId":
		return action{local: true, answer: d.chain.HexID}, nil

	case "net_version":
		return action{local: true, answer: d.chain.NumericID()}, nil

	case "wallet_requestPermissions", "wallet_getPermissions":
		return action{local: true, answer: []any{map[string]any{"parentCapability": "eth_accounts"}}}, nil

	case "wallet_switchEthereumChain", "wallet_addEthereumChain":
		// Accepted without effect; the session is pinned to one chain.
		return action{local: true, answer: nil}, nil

	case "personal_sign":
		payload, err := stringParam(params, 0)
		if err != nil {
			return action{}, err
		}
		return action{
			signer:  func(context.Context) (string, error) { return personalSign(d.key, payload) },
			display: displayMessage(payload),
		}, nil

	case "eth_signTypedData_v4":
		typedJSON, err := stringParam(params, 1)
		if err != nil {
			return action{}, err
		}
		return action{
			signer:  func(context.Context) (string, error) { return signTypedData(d.key, typedJSON) },
			display: displayTypedData(typedJSON),
		}, nil

	case "eth_sendTransaction":
		tx, err := txParam(params)
		if err != nil {
			return action{}, err
		}
		return action{
			signer:  func(ctx context.Context) (string, error) { return d.sendTransaction(ctx, tx) },
			display: displayTransaction(tx),
		}, nil

	default:
		return action{}, nil
	}
}

// signWithApproval runs the signer directly when nobody is listening, and
// otherwise suspends the call on the bus until the approver decides.
func (d *Dispatcher) signWithApproval(ctx context.Context, method string, params []any, act action) (any, error) {
	if d.bus == nil || d.bus.ListenerCount() == 0 {
		return act.signer(ctx)
	}

	req := approver.NewTxRequest(d.bus.NextSequence(), method, params, act.display)
	req.Signer = func() (string, error) { return act.signer(ctx) }

	d.log.Info("awaiting approval",
		zap.Uint64("sequence", req.SequenceID),
		zap.String("method", method))
	d.bus.Emit(req)

	value, err := req.Wait()
	if err != nil {
		d.log.Info("signing rejected", zap.Uint64("sequence", req.SequenceID), zap.Error(err))
		return nil, fmt.Errorf("signing rejected: %v", err)
	}
	return value, nil
}

func stringParam(params []any, index int) (string, error) {
	if index >= len(params) {
		return "", fmt.Errorf("invalid input: missing parameter %d", index)
	}
	s, ok := params[index].(string)
	if !ok {
		return "", fmt.Errorf("invalid input: parameter %d is not a string", index)
	}
	return s, nil
}

func txParam(params []any) (txParams, error) {
	if len(params) == 0 {
		return txParams{}, fmt.Errorf("invalid input: missing transaction object")
	}
	raw, err := json.Marshal(params[0])
	if err != nil {
		return txParams{}, fmt.Errorf("invalid input: %v", err)
	}
	var tx txParams
	if err := json.Unmarshal(raw, &tx); err != nil {
		return txParams{}, fmt.Errorf("invalid input: malformed transaction object: %v", err)
	}
	return tx, nil
}
