package web3

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zamyatin-zkex/swapdash/internal/oneinch"
	"github.com/zamyatin-zkex/swapdash/pkg/throttle"
)

const holder = "0x1111111111111111111111111111111111111111"

type rpcHandler func(method string, params []any) (any, *RPCError)

func newTestClient(t *testing.T, delay time.Duration, handle rpcHandler) *Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2.0", req.JSONRPC)

		result, rpcErr := handle(r.URL.Path+" "+req.Method, req.Params)
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
			"error":   rpcErr,
		}))
	}))
	t.Cleanup(srv.Close)

	limiter, err := throttle.New(throttle.Options{Name: "web3", Delay: delay})
	require.NoError(t, err)

	return New(srv.URL, "", limiter, srv.Client())
}

func TestClient_BlockNumber(t *testing.T) {
	client := newTestClient(t, 0, func(method string, params []any) (any, *RPCError) {
		assert.Equal(t, "/1 eth_blockNumber", method)
		return "0x1312d00", nil
	})

	block, err := client.BlockNumber(context.Background(), 1, NodeDefault)
	require.NoError(t, err)
	assert.Equal(t, uint64(20_000_000), block)
}

func TestClient_Balance(t *testing.T) {
	client := newTestClient(t, 0, func(method string, params []any) (any, *RPCError) {
		assert.Equal(t, "/137/archive eth_getBalance", method)
		assert.Equal(t, []any{holder, "latest"}, params)
		return "0x1bc16d674ec80000", nil
	})

	balance, err := client.Balance(context.Background(), 137, NodeArchive, holder)
	require.NoError(t, err)
	assert.Equal(t, "2", balance.String())
	assert.Equal(t, "2000000000000000000", balance.Minimal())
}

func TestClient_RPCError(t *testing.T) {
	client := newTestClient(t, 0, func(method string, params []any) (any, *RPCError) {
		return nil, &RPCError{Code: -32000, Message: "header not found"}
	})

	_, err := client.TransactionCount(context.Background(), 1, NodeFull, holder)

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32000, rpcErr.Code)
}

func TestClient_Validation(t *testing.T) {
	client := newTestClient(t, 0, func(method string, params []any) (any, *RPCError) {
		t.Fatal("node must not be called")
		return nil, nil
	})

	_, err := client.BlockNumber(context.Background(), 250, NodeDefault)
	assert.ErrorIs(t, err, oneinch.ErrUnsupportedChain)

	_, err = client.BlockNumber(context.Background(), 1, NodeType("light"))
	assert.ErrorIs(t, err, ErrInvalidNodeType)

	_, err = client.Balance(context.Background(), 1, NodeDefault, "0xnope")
	assert.ErrorIs(t, err, oneinch.ErrInvalidAddress)
}

func TestClient_NetworkInfoIsPaced(t *testing.T) {
	const delay = 30 * time.Millisecond

	var calls []time.Time
	client := newTestClient(t, delay, func(method string, params []any) (any, *RPCError) {
		calls = append(calls, time.Now())
		switch method {
		case "/10 eth_chainId":
			return "0xa", nil
		case "/10 eth_blockNumber":
			return "0x10", nil
		case "/10 eth_gasPrice":
			return "0x3b9aca00", nil
		}
		t.Errorf("unexpected call %s", method)
		return nil, nil
	})

	info, err := client.NetworkInfo(context.Background(), 10, NodeDefault)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), info.ChainID)
	assert.Equal(t, uint64(16), info.BlockNumber)
	assert.Equal(t, "0.000000001", info.GasPrice.String())

	require.Len(t, calls, 3)
	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i].Sub(calls[i-1]), delay)
	}
}
