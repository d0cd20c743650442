// Package web3 talks JSON-RPC 2.0 to the node gateway. Calls are paced by their own limiter,
// independent from the REST API budget.
package web3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/zamyatin-zkex/swapdash/internal/oneinch"
	"github.com/zamyatin-zkex/swapdash/pkg/throttle"
)

var ErrInvalidNodeType = errors.New("invalid node type")

type NodeType string

const (
	NodeDefault NodeType = ""
	NodeFull    NodeType = "full"
	NodeArchive NodeType = "archive"
)

func ParseNodeType(s string) (NodeType, error) {
	switch NodeType(s) {
	case NodeDefault, NodeFull, NodeArchive:
		return NodeType(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidNodeType, s)
}

// RPCError is an error object returned inside a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *throttle.Limiter
	ids     atomic.Uint64
}

func New(baseURL, apiKey string, limiter *throttle.Limiter, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    hc,
		limiter: limiter,
	}
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// Call performs one JSON-RPC call and decodes its result into out.
func (c *Client) Call(ctx context.Context, chainID int, node NodeType, out any, method string, params ...any) error {
	if err := oneinch.CheckChain(chainID); err != nil {
		return err
	}
	if _, err := ParseNodeType(string(node)); err != nil {
		return err
	}
	if params == nil {
		params = []any{}
	}

	endpoint := c.baseURL + "/" + strconv.Itoa(chainID)
	if node != NodeDefault {
		endpoint += "/" + string(node)
	}

	payload, err := json.Marshal(request{JSONRPC: "2.0", Method: method, Params: params, ID: c.ids.Add(1)})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}

	raw, err := throttle.Do(ctx, c.limiter, func(ctx context.Context) (json.RawMessage, error) {
		return c.post(ctx, endpoint, payload)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: %w: %s", method, oneinch.ErrInvalidResponse, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &oneinch.APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var rpc response
	if err := json.NewDecoder(resp.Body).Decode(&rpc); err != nil {
		return nil, fmt.Errorf("%w: %s", oneinch.ErrInvalidResponse, err)
	}
	if rpc.Error != nil {
		return nil, rpc.Error
	}
	if len(rpc.Result) == 0 || string(rpc.Result) == "null" {
		return nil, fmt.Errorf("%w: empty result", oneinch.ErrInvalidResponse)
	}
	return rpc.Result, nil
}
