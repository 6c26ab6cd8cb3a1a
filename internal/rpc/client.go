// Package rpc talks JSON-RPC 2.0 to the chain's public API nodes and decodes
// account history, account, follow and chain-global responses.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"chainview/internal/log"
)

const maxResponseBytes = 32 << 20

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      uint64 `json:"id"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      any             `json:"id,omitempty"`
}

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Options configures a Client. Endpoints is required.
type Options struct {
	Endpoints  []string
	Timeout    time.Duration // per attempt
	Retry      RetryConfig
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Client sends JSON-RPC calls to a list of equivalent nodes. A node that fails
// with a transient error is rotated to the back for every subsequent call.
type Client struct {
	endpoints  []string
	timeout    time.Duration
	retry      RetryConfig
	httpClient *http.Client
	logger     *log.Logger

	cursor atomic.Uint64
	nextID atomic.Uint64
}

func NewClient(opts Options) (*Client, error) {
	if len(opts.Endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Retry == (RetryConfig{}) {
		opts.Retry = DefaultRetryConfig()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	return &Client{
		endpoints:  append([]string(nil), opts.Endpoints...),
		timeout:    opts.Timeout,
		retry:      opts.Retry,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger.WithComponent(log.ComponentRPC),
	}, nil
}

// Endpoints returns the configured node URLs in their current rotation order.
func (c *Client) Endpoints() []string {
	n := len(c.endpoints)
	start := int(c.cursor.Load() % uint64(n))
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, c.endpoints[(start+i)%n])
	}
	return out
}

// Call invokes method with positional params and decodes the result into result.
// Transient failures move on to the next endpoint after a backoff, up to
// the configured retry count. The returned error wraps a *NetworkError or a
// *RemoteProtocolError, or is the context's error.
func (c *Client) Call(ctx context.Context, method string, params []any, result any) error {
	if params == nil {
		params = []any{}
	}
	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		cursor := c.cursor.Load()
		endpoint := c.endpoints[cursor%uint64(len(c.endpoints))]

		lastErr = c.call(ctx, endpoint, method, params, result)
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}

		c.cursor.CompareAndSwap(cursor, cursor+1)
		c.logger.WarnContext(ctx, "RPC call failed",
			log.NewFields().
				WithRPC(endpoint, method, attempt+1).
				WithError(lastErr).
				WithErrorType(log.ErrorTypeNetwork).
				ToSlice()...)

		if attempt < c.retry.MaxRetries {
			if err := sleep(ctx, c.retry.backoff(attempt)); err != nil {
				return fmt.Errorf("%s: %w (retry cancelled)", method, lastErr)
			}
		}
	}
	return fmt.Errorf("%s: %w (after %d retries)", method, lastErr, c.retry.MaxRetries)
}

func (c *Client) call(ctx context.Context, endpoint, method string, params []any, result any) error {
	body, err := json.Marshal(Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// the caller's own cancellation is not a node failure
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &NetworkError{Endpoint: endpoint, Method: method, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return &NetworkError{Endpoint: endpoint, Method: method, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &NetworkError{Endpoint: endpoint, Method: method, Err: err}
	}

	var envelope Response
	if err := json.Unmarshal(data, &envelope); err != nil {
		return &RemoteProtocolError{Endpoint: endpoint, Method: method, Message: "undecodable response", Err: err}
	}
	if envelope.Error != nil {
		return &RemoteProtocolError{
			Endpoint: endpoint,
			Method:   method,
			Code:     envelope.Error.Code,
			Message:  envelope.Error.Message,
			Data:     envelope.Error.Data,
		}
	}
	if len(envelope.Result) == 0 || bytes.Equal(envelope.Result, []byte("null")) {
		return &RemoteProtocolError{Endpoint: endpoint, Method: method, Message: "missing result"}
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return &RemoteProtocolError{Endpoint: endpoint, Method: method, Message: "undecodable result", Err: err}
	}
	return nil
}
