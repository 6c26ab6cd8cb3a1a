package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainview/internal/log"
)

type rpcCall struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeNode serves JSON-RPC calls through handle and counts requests.
type fakeNode struct {
	*httptest.Server
	hits   atomic.Int64
	last   atomic.Pointer[rpcCall]
	handle func(w http.ResponseWriter, call rpcCall)
}

func newFakeNode(t *testing.T, handle func(w http.ResponseWriter, call rpcCall)) *fakeNode {
	t.Helper()
	n := &fakeNode{handle: handle}
	n.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.hits.Add(1)
		body, _ := io.ReadAll(r.Body)
		var call rpcCall
		if err := json.Unmarshal(body, &call); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		n.last.Store(&call)
		n.handle(w, call)
	}))
	t.Cleanup(n.Close)
	return n
}

func writeResult(w http.ResponseWriter, result string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":1,"result":`+result+`}`)
}

func testClient(t *testing.T, endpoints ...string) *Client {
	t.Helper()
	c, err := NewClient(Options{
		Endpoints: endpoints,
		Timeout:   2 * time.Second,
		Retry:     RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond},
		Logger:    log.New(log.Config{Output: io.Discard}),
	})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresEndpoints(t *testing.T) {
	_, err := NewClient(Options{})
	assert.ErrorIs(t, err, ErrNoEndpoints)
}

func TestCallDecodesResult(t *testing.T) {
	node := newFakeNode(t, func(w http.ResponseWriter, call rpcCall) {
		writeResult(w, `{"head_block_number":123,"time":"2024-03-01T12:00:00","current_supply":"400000000.000 HIVE"}`)
	})
	c := testClient(t, node.URL)

	props, err := c.GetDynamicGlobalProperties(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(123), props.HeadBlockNumber)
	assert.Equal(t, "400000000.000 HIVE", props.CurrentSupply.String())
	assert.Equal(t, "condenser_api.get_dynamic_global_properties", node.last.Load().Method)
	assert.NotNil(t, node.last.Load().Params)
}

func TestCallErrorEnvelopeIsNotRetried(t *testing.T) {
	node := newFakeNode(t, func(w http.ResponseWriter, call rpcCall) {
		_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"Invalid parameters","data":{"name":"bob"}}}`)
	})
	c := testClient(t, node.URL)

	err := c.Call(context.Background(), "condenser_api.get_accounts", []any{[]string{"bob"}}, nil)
	var pe *RemoteProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, -32602, pe.Code)
	assert.Equal(t, "Invalid parameters", pe.Message)
	assert.JSONEq(t, `{"name":"bob"}`, string(pe.Data))
	assert.Equal(t, int64(1), node.hits.Load())
	assert.True(t, IsFetchError(err))
}

func TestCallProtocolFailures(t *testing.T) {
	cases := map[string]string{
		"missing result": `{"jsonrpc":"2.0","id":1}`,
		"null result":    `{"jsonrpc":"2.0","id":1,"result":null}`,
		"undecodable":    `<html>gateway</html>`,
		"wrong shape":    `{"jsonrpc":"2.0","id":1,"result":"text"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			node := newFakeNode(t, func(w http.ResponseWriter, call rpcCall) {
				_, _ = io.WriteString(w, body)
			})
			c := testClient(t, node.URL)

			var out struct{ A int }
			err := c.Call(context.Background(), "m", nil, &out)
			var pe *RemoteProtocolError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, int64(1), node.hits.Load())
		})
	}
}

func TestCallRotatesOnTransientFailure(t *testing.T) {
	bad := newFakeNode(t, func(w http.ResponseWriter, call rpcCall) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	good := newFakeNode(t, func(w http.ResponseWriter, call rpcCall) {
		writeResult(w, `{"current_median_history":{"base":"0.250 HBD","quote":"1.000 HIVE"}}`)
	})
	c := testClient(t, bad.URL, good.URL)

	feed, err := c.GetFeedHistory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.25", feed.CurrentMedianHistory.Rate().String())
	assert.Equal(t, int64(1), bad.hits.Load())
	assert.Equal(t, []string{good.URL, bad.URL}, c.Endpoints())

	// the healthy node stays first
	_, err = c.GetFeedHistory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), bad.hits.Load())
}

func TestCallExhaustsRetries(t *testing.T) {
	node := newFakeNode(t, func(w http.ResponseWriter, call rpcCall) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c := testClient(t, node.URL)

	err := c.Call(context.Background(), "m", nil, nil)
	var ne *NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, http.StatusBadGateway, ne.StatusCode)
	assert.Equal(t, int64(3), node.hits.Load())
}

func TestCallClientErrorStatusIsNotRetried(t *testing.T) {
	node := newFakeNode(t, func(w http.ResponseWriter, call rpcCall) {
		w.WriteHeader(http.StatusNotFound)
	})
	c := testClient(t, node.URL)

	err := c.Call(context.Background(), "m", nil, nil)
	var ne *NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, int64(1), node.hits.Load())
}

func TestCallHonoursCancellation(t *testing.T) {
	node := newFakeNode(t, func(w http.ResponseWriter, call rpcCall) {
		writeResult(w, `{}`)
	})
	c := testClient(t, node.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Call(ctx, "m", nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsFetchError(err))
}

func TestCallUnreachableEndpoint(t *testing.T) {
	node := newFakeNode(t, func(w http.ResponseWriter, call rpcCall) {})
	url := node.URL
	node.Close()

	c := testClient(t, url)
	err := c.Call(context.Background(), "m", nil, nil)
	var ne *NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Zero(t, ne.StatusCode)
}

func TestRequestEnvelope(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.NewDecoder(bytes.NewReader(body)).Decode(&got)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		writeResult(w, `[]`)
	}))
	defer srv.Close()
	c := testClient(t, srv.URL)

	require.NoError(t, c.Call(context.Background(), "condenser_api.get_followers", []any{"bob", "", "blog", 10}, nil))
	assert.Equal(t, "2.0", got["jsonrpc"])
	assert.Equal(t, "condenser_api.get_followers", got["method"])
	assert.Equal(t, []any{"bob", "", "blog", float64(10)}, got["params"])
	assert.NotZero(t, got["id"])
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(&NetworkError{Err: errors.New("reset")}))
	assert.True(t, isTransient(&NetworkError{StatusCode: 503}))
	assert.True(t, isTransient(&NetworkError{StatusCode: 429}))
	assert.False(t, isTransient(&NetworkError{StatusCode: 404}))
	assert.False(t, isTransient(&RemoteProtocolError{Message: "missing result"}))
	assert.False(t, isTransient(context.Canceled))
	assert.False(t, isTransient(nil))
}

func TestBackoffBounds(t *testing.T) {
	rc := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, JitterFraction: 0.25}
	for attempt := 0; attempt < 8; attempt++ {
		d := rc.backoff(attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 1250*time.Millisecond)
	}
}
