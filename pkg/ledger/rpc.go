package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"solbank/pkg/logging"
)

// RPCClient is the HTTP JSON-RPC implementation of Client.
type RPCClient struct {
	endpoint string
	http     *http.Client
	logger   *logging.Logger
	reqID    atomic.Uint64

	// confirmPollInterval controls the confirmation polling cadence;
	// overridable in tests.
	confirmPollInterval time.Duration
}

// RPCConfig holds configuration for the RPC client.
type RPCConfig struct {
	Network Network
	// CustomURL overrides the network endpoint when non-empty.
	CustomURL string
	// RequestTimeout bounds each HTTP round trip.
	RequestTimeout time.Duration
}

// DefaultRPCConfig returns a devnet configuration.
func DefaultRPCConfig() RPCConfig {
	return RPCConfig{
		Network:        NetworkDevnet,
		RequestTimeout: 15 * time.Second,
	}
}

// NewRPCClient creates an RPC client for the configured network.
func NewRPCClient(config RPCConfig, logger *logging.Logger) (*RPCClient, error) {
	endpoint, err := Endpoint(config.Network, config.CustomURL)
	if err != nil {
		return nil, err
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = logging.Global()
	}

	return &RPCClient{
		endpoint:            endpoint,
		http:                &http.Client{Timeout: config.RequestTimeout},
		logger:              logger.Named("rpc"),
		confirmPollInterval: 500 * time.Millisecond,
	}, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("ledger: rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call performs one JSON-RPC round trip, decoding result into out.
func (c *RPCClient) call(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.reqID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("ledger: encode %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ledger: %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ledger: %s: %w", method, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("rpc call",
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ledger: %s: unexpected status %d", method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("ledger: decode %s: %w", method, err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("ledger: decode %s result: %w", method, err)
		}
	}
	return nil
}

// contextValue is the standard {context, value} JSON-RPC result envelope.
type contextValue[T any] struct {
	Value T `json:"value"`
}

// GetBalance returns the native balance of an address in lamports.
func (c *RPCClient) GetBalance(ctx context.Context, address string, commitment Commitment) (uint64, error) {
	var result contextValue[uint64]
	params := []any{address, map[string]any{"commitment": commitment}}
	if err := c.call(ctx, "getBalance", params, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// GetLatestBlockhash fetches the freshness token for a new transaction.
func (c *RPCClient) GetLatestBlockhash(ctx context.Context, commitment Commitment) (Blockhash, error) {
	var result contextValue[Blockhash]
	params := []any{map[string]any{"commitment": commitment}}
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return Blockhash{}, err
	}
	return result.Value, nil
}

// SendRawTransaction submits a signed transaction and returns its signature.
func (c *RPCClient) SendRawTransaction(ctx context.Context, raw []byte, opts SendOptions) (string, error) {
	cfg := map[string]any{
		"encoding":      "base64",
		"skipPreflight": opts.SkipPreflight,
	}
	if opts.PreflightCommitment != "" {
		cfg["preflightCommitment"] = opts.PreflightCommitment
	}
	if opts.MaxRetries > 0 {
		cfg["maxRetries"] = opts.MaxRetries
	}

	var signature string
	params := []any{base64.StdEncoding.EncodeToString(raw), cfg}
	if err := c.call(ctx, "sendTransaction", params, &signature); err != nil {
		return "", err
	}
	return signature, nil
}

type signatureStatus struct {
	ConfirmationStatus Commitment      `json:"confirmationStatus"`
	Err                json.RawMessage `json:"err"`
}

// ConfirmTransaction polls signature status until the requested commitment is
// reached, the blockhash expires, or ctx is done.
func (c *RPCClient) ConfirmTransaction(ctx context.Context, signature string, bh Blockhash, commitment Commitment) (Confirmation, error) {
	ticker := time.NewTicker(c.confirmPollInterval)
	defer ticker.Stop()

	for {
		var result contextValue[[]*signatureStatus]
		params := []any{[]string{signature}}
		if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
			return Confirmation{}, err
		}

		if len(result.Value) > 0 && result.Value[0] != nil {
			status := result.Value[0]
			if statusReached(status.ConfirmationStatus, commitment) {
				conf := Confirmation{}
				if len(status.Err) > 0 && string(status.Err) != "null" {
					conf.Err = string(status.Err)
				}
				return conf, nil
			}
		}

		var height uint64
		if err := c.call(ctx, "getBlockHeight", []any{}, &height); err == nil && height > bh.LastValidBlockHeight {
			return Confirmation{}, fmt.Errorf("ledger: blockhash expired for %s", signature)
		}

		select {
		case <-ctx.Done():
			return Confirmation{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// statusReached reports whether observed satisfies the wanted commitment.
func statusReached(observed, wanted Commitment) bool {
	rank := func(c Commitment) int {
		switch c {
		case CommitmentProcessed:
			return 1
		case CommitmentConfirmed:
			return 2
		case CommitmentFinalized:
			return 3
		default:
			return 0
		}
	}
	return rank(observed) >= rank(wanted) && rank(observed) > 0
}

// GetSignaturesForAddress lists recent signatures touching the address.
func (c *RPCClient) GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]SignatureInfo, error) {
	type entry struct {
		Signature string          `json:"signature"`
		Slot      uint64          `json:"slot"`
		BlockTime int64           `json:"blockTime"`
		Err       json.RawMessage `json:"err"`
		Memo      string          `json:"memo"`
	}

	var entries []entry
	params := []any{address, map[string]any{"limit": limit}}
	if err := c.call(ctx, "getSignaturesForAddress", params, &entries); err != nil {
		return nil, err
	}

	out := make([]SignatureInfo, 0, len(entries))
	for _, e := range entries {
		info := SignatureInfo{
			Signature: e.Signature,
			Slot:      e.Slot,
			BlockTime: e.BlockTime,
			Memo:      e.Memo,
		}
		if len(e.Err) > 0 && string(e.Err) != "null" {
			info.Err = string(e.Err)
		}
		out = append(out, info)
	}
	return out, nil
}

// GetTransaction fetches detail for a landed signature, or ErrNotFound.
func (c *RPCClient) GetTransaction(ctx context.Context, signature string, commitment Commitment) (*TransactionDetail, error) {
	type meta struct {
		Fee uint64          `json:"fee"`
		Err json.RawMessage `json:"err"`
	}
	type result struct {
		Slot      uint64 `json:"slot"`
		BlockTime int64  `json:"blockTime"`
		Meta      *meta  `json:"meta"`
	}

	var raw json.RawMessage
	params := []any{signature, map[string]any{"commitment": commitment, "encoding": "json"}}
	if err := c.call(ctx, "getTransaction", params, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrNotFound
	}

	var r result
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("ledger: decode getTransaction result: %w", err)
	}

	detail := &TransactionDetail{
		Signature: signature,
		Slot:      r.Slot,
		BlockTime: r.BlockTime,
	}
	if r.Meta != nil {
		detail.Fee = r.Meta.Fee
		if len(r.Meta.Err) > 0 && string(r.Meta.Err) != "null" {
			detail.Err = string(r.Meta.Err)
		}
	}
	return detail, nil
}

// GetTokenAccountBalance returns the UI-unit balance of a token account.
func (c *RPCClient) GetTokenAccountBalance(ctx context.Context, address string, commitment Commitment) (float64, error) {
	type balance struct {
		UIAmount *float64 `json:"uiAmount"`
	}

	var result contextValue[*balance]
	params := []any{address, map[string]any{"commitment": commitment}}
	if err := c.call(ctx, "getTokenAccountBalance", params, &result); err != nil {
		// The node reports a missing token account as an invalid-param error.
		var rpcErr *rpcError
		if errors.As(err, &rpcErr) && rpcErr.Code == -32602 {
			return 0, ErrNotFound
		}
		return 0, err
	}
	if result.Value == nil || result.Value.UIAmount == nil {
		return 0, ErrNotFound
	}
	return *result.Value.UIAmount, nil
}

// GetAccountInfo returns account existence info, or ErrNotFound.
func (c *RPCClient) GetAccountInfo(ctx context.Context, address string) (*AccountInfo, error) {
	type info struct {
		Lamports uint64 `json:"lamports"`
		Owner    string `json:"owner"`
	}

	var result contextValue[*info]
	params := []any{address, map[string]any{"encoding": "base64"}}
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}
	if result.Value == nil {
		return nil, ErrNotFound
	}
	return &AccountInfo{Lamports: result.Value.Lamports, Owner: result.Value.Owner}, nil
}

// Close releases any underlying resources.
func (c *RPCClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
