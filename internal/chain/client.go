package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"yieldScope/internal/simerr"
	"yieldScope/internal/txb"
)

// Methods names the ledger JSON-RPC methods the client calls.
type Methods struct {
	Simulate     string
	Submit       string
	GetObject    string
	OwnedObjects string
}

func DefaultMethods() Methods {
	return Methods{
		Simulate:     "ledger_simulateIntent",
		Submit:       "ledger_submitIntent",
		GetObject:    "ledger_getObject",
		OwnedObjects: "ledger_getOwnedObjects",
	}
}

type Options struct {
	Methods      Methods
	MaxRetries   int
	RetryBackoff time.Duration
	Logger       *zap.Logger
}

// Client wraps a go-ethereum RPC client speaking the ledger's JSON-RPC API.
type Client struct {
	rpcClient *rpc.Client
	methods   Methods
	retries   int
	backoff   time.Duration
	logger    *zap.Logger
}

// NewClient dials the ledger node at rpcURL.
func NewClient(ctx context.Context, rpcURL string, opts Options) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial ledger rpc: %w", err)
	}
	return newClient(rpcClient, opts), nil
}

func newClient(rpcClient *rpc.Client, opts Options) *Client {
	methods := opts.Methods
	defaults := DefaultMethods()
	if methods.Simulate == "" {
		methods.Simulate = defaults.Simulate
	}
	if methods.Submit == "" {
		methods.Submit = defaults.Submit
	}
	if methods.GetObject == "" {
		methods.GetObject = defaults.GetObject
	}
	if methods.OwnedObjects == "" {
		methods.OwnedObjects = defaults.OwnedObjects
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		rpcClient: rpcClient,
		methods:   methods,
		retries:   opts.MaxRetries,
		backoff:   opts.RetryBackoff,
		logger:    logger,
	}
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// Simulate runs intent in non-committing mode and returns the raw response.
// A rejected intent is reported in the response's Error field, not as an error.
func (c *Client) Simulate(ctx context.Context, intent *txb.Intent) (*SimulateResponse, error) {
	var raw json.RawMessage
	err := c.withRetry(ctx, "simulate", func(ctx context.Context) error {
		return c.call(ctx, &raw, c.methods.Simulate, intent.Sender, intent)
	})
	if err != nil {
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) {
			return nil, &simerr.SimulationError{Message: rpcErr.Error(), Steps: intent.Describe()}
		}
		return nil, err
	}
	resp, err := ParseSimulateResponse(raw)
	if err != nil {
		return nil, &simerr.DecodeInvariantError{Binding: "response", Reason: err.Error(), Steps: intent.Describe(), Raw: raw}
	}
	return resp, nil
}

// Submit sends signed intent bytes for execution and returns the digest.
// Submission is not retried.
func (c *Client) Submit(ctx context.Context, intentBytes []byte, signature string) (string, error) {
	var digest string
	if err := c.call(ctx, &digest, c.methods.Submit, string(intentBytes), []string{signature}); err != nil {
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) {
			return "", &simerr.SimulationError{Message: rpcErr.Error()}
		}
		return "", err
	}
	return digest, nil
}

func (c *Client) call(ctx context.Context, result any, method string, args ...any) error {
	err := c.rpcClient.CallContext(ctx, result, method, args...)
	if err == nil {
		return nil
	}
	return classify(ctx, method, err)
}

// classify maps transport failures to NetworkError. Node-level JSON-RPC
// errors and context errors pass through unchanged.
func classify(ctx context.Context, method string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", method, ctx.Err())
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return fmt.Errorf("%s: %w", method, err)
	}
	return &simerr.NetworkError{Op: method, Err: err}
}
