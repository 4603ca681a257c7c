// Package rpc mediates every wallet call the page makes: answered from
// configuration, signed with the session key, or forwarded to the chain RPC.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// ErrUpstream marks a forwarded call that failed, either on the network or
// with a JSON-RPC error object from the node.
var ErrUpstream = errors.New("upstream rpc failed")

// Client forwards JSON-RPC 2.0 calls to a chain endpoint.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
}

// NewClient creates the forwarding client. The limiter is unlimited by
// default; public endpoints that throttle can be accommodated by tightening it.
func NewClient() *Client {
	rc := resty.New().
		SetTimeout(30*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "walletbridge/1.0")

	return &Client{
		resty:   rc,
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
}

// SetRate bounds outgoing calls per second.
func (c *Client) SetRate(perSecond float64, burst int) {
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// Call performs one JSON-RPC POST and returns the decoded result field.
func (c *Client) Call(ctx context.Context, endpoint, method string, params []any) (any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if params == nil {
		params = []any{}
	}

	var decoded rpcResponse
	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params}).
		SetResult(&decoded).
		Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrUpstream, endpoint, resp.StatusCode())
	}
	if len(decoded.Error) > 0 && string(decoded.Error) != "null" {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, string(decoded.Error))
	}
	if len(decoded.Result) == 0 {
		return nil, fmt.Errorf("%w: malformed response from %s", ErrUpstream, endpoint)
	}

	var result any
	if err := json.Unmarshal(decoded.Result, &result); err != nil {
		return nil, fmt.Errorf("%w: malformed result from %s: %v", ErrUpstream, endpoint, err)
	}
	return result, nil
}

// CallString is Call for methods whose result is a hex or decimal string.
func (c *Client) CallString(ctx context.Context, endpoint, method string, params []any) (string, error) {
	result, err := c.Call(ctx, endpoint, method, params)
	if err != nil {
		return "", err
	}
	s, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s result is not a string", ErrUpstream, method)
	}
	return s, nil
}
