package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vietddude/syncer/internal/core/domain"
	"github.com/vietddude/syncer/internal/indexing/metrics"
)

// Caller makes JSON-RPC calls against the sequencer endpoint.
type Caller interface {
	Call(ctx context.Context, method string, params []any) (json.RawMessage, error)
}

// Client is a JSON-RPC 2.0 client over HTTP against a single endpoint.
// The sequencer is the only upstream, so there is no provider rotation;
// transient failures surface to the ingestion loop's error policy instead.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a client for the given endpoint.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Call makes a single JSON-RPC call and returns the raw result payload.
// Transport, HTTP and JSON-RPC level failures all wrap domain.ErrRPC.
func (c *Client) Call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	start := time.Now()
	metrics.RPCCalls.WithLabelValues(method).Inc()

	result, err := c.call(ctx, method, params)
	if err != nil {
		metrics.RPCErrors.WithLabelValues(method).Inc()
		return nil, err
	}

	metrics.RPCLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	return result, nil
}

func (c *Client) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	reqBody := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      1,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal %s request: %v", domain.ErrRPC, method, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: create %s request: %v", domain.ErrRPC, method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrRPC, method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: %s: rate limited (429), retry after: %s",
			domain.ErrRPC, method, resp.Header.Get("Retry-After"))
	}
	if resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: %s: ip blocked (403)", domain.ErrRPC, method)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %v", domain.ErrRPC, method, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: http %d: %s", domain.ErrRPC, method, resp.StatusCode, body)
	}

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *map[string]any `json:"error"`
	}
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, fmt.Errorf("%w: parse %s response: %v", domain.ErrRPC, method, err)
	}

	if rpcResp.Error != nil {
		errMsg := "unknown error"
		if msg, ok := (*rpcResp.Error)["message"].(string); ok {
			errMsg = msg
		}
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrRPC, method, errMsg)
	}

	return rpcResp.Result, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
