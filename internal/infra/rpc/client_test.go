package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/syncer/internal/core/domain"
)

func TestClient_Call_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode body: %v", err)
			return
		}

		if v, ok := req["jsonrpc"].(string); !ok || v != "2.0" {
			t.Errorf("expected jsonrpc 2.0, got %v", req["jsonrpc"])
		}
		if req["method"] != "eth_blockNumber" {
			t.Errorf("expected method eth_blockNumber, got %v", req["method"])
		}

		response := map[string]any{
			"jsonrpc": "2.0",
			"result":  "0xb",
			"id":      req["id"],
		}
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second)
	defer c.Close()

	result, err := c.Call(context.Background(), "eth_blockNumber", []any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var height string
	if err := json.Unmarshal(result, &height); err != nil {
		t.Fatalf("result is not a JSON string: %v", err)
	}
	if height != "0xb" {
		t.Errorf("expected 0xb, got %q", height)
	}
}

func TestClient_Call_RPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := map[string]any{
			"jsonrpc": "2.0",
			"error":   map[string]any{"code": -32601, "message": "method not found"},
			"id":      1,
		}
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second)
	defer c.Close()

	_, err := c.Call(context.Background(), "eth_getBlockRange", []any{})
	if !errors.Is(err, domain.ErrRPC) {
		t.Fatalf("expected ErrRPC, got %v", err)
	}
	if !strings.Contains(err.Error(), "method not found") {
		t.Errorf("expected upstream message in error, got %q", err)
	}
}

func TestClient_Call_HTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second)
	defer c.Close()

	_, err := c.Call(context.Background(), "eth_blockNumber", []any{})
	if !errors.Is(err, domain.ErrRPC) {
		t.Fatalf("expected ErrRPC, got %v", err)
	}
}

func TestClient_Call_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second)
	defer c.Close()

	_, err := c.Call(context.Background(), "eth_blockNumber", []any{})
	if !errors.Is(err, domain.ErrRPC) {
		t.Fatalf("expected ErrRPC, got %v", err)
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("expected rate limit status in error, got %q", err)
	}
}

func TestClient_Call_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Call(ctx, "eth_blockNumber", []any{})
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
	if !errors.Is(err, domain.ErrRPC) {
		t.Errorf("expected ErrRPC wrapping, got %v", err)
	}
}
