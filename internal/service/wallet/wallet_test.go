package wallet

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zamyatin-zkex/swapdash/internal/entity"
	"github.com/zamyatin-zkex/swapdash/internal/oneinch"
	"github.com/zamyatin-zkex/swapdash/internal/repository"
	"github.com/zamyatin-zkex/swapdash/pkg/amount"
)

const (
	holder = "0x1111111111111111111111111111111111111111"
	usdc   = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	weth   = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	dai    = "0x6b175474e89094c44da98b954eedeac495271d0f"
)

var tokens = map[string]entity.Token{
	usdc: {Address: usdc, Symbol: "USDC", Decimals: 6},
	weth: {Address: weth, Symbol: "WETH", Decimals: 18},
}

type fakeAgg struct {
	tokenCalls int
	quoteReq   oneinch.QuoteRequest
	swapReq    oneinch.SwapRequest
	approveAmt string
}

func (f *fakeAgg) Tokens(ctx context.Context, chainID int) (map[string]entity.Token, error) {
	f.tokenCalls++
	return tokens, nil
}

func (f *fakeAgg) Balances(ctx context.Context, chainID int, wallet string) (map[string]string, error) {
	return map[string]string{usdc: "1500000", weth: "20000000000000000", dai: "1"}, nil
}

func (f *fakeAgg) Quote(ctx context.Context, chainID int, req oneinch.QuoteRequest) (entity.Quote, error) {
	f.quoteReq = req
	src, _ := amount.FromMinimal(req.Amount, 6)
	dst, _ := amount.FromMinimal("1000000000000000", 18)
	return entity.Quote{ChainID: chainID, Src: tokens[usdc], Dst: tokens[weth], SrcAmount: src, DstAmount: dst}, nil
}

func (f *fakeAgg) Swap(ctx context.Context, chainID int, req oneinch.SwapRequest) (oneinch.SwapResult, error) {
	f.swapReq = req
	quote, err := f.Quote(ctx, chainID, req.QuoteRequest)
	return oneinch.SwapResult{Quote: quote, Tx: entity.Tx{To: weth, Data: "0x12aa3caf", Value: "0"}}, err
}

func (f *fakeAgg) Allowance(ctx context.Context, chainID int, token, wallet string) (string, error) {
	return "2500000", nil
}

func (f *fakeAgg) ApproveTransaction(ctx context.Context, chainID int, token, minimal string) (entity.Tx, error) {
	f.approveAmt = minimal
	return entity.Tx{To: token}, nil
}

type memSwaps struct {
	swaps []entity.Swap
}

func (m *memSwaps) Store(ctx context.Context, swap entity.Swap) error {
	m.swaps = append(m.swaps, swap)
	return nil
}

func newWallet() (*Wallet, *fakeAgg, *memSwaps) {
	agg := &fakeAgg{}
	swaps := &memSwaps{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(agg, repository.NewMemoryTokens(time.Hour), swaps, log), agg, swaps
}

func TestWallet_TokensAreCached(t *testing.T) {
	w, agg, _ := newWallet()

	for i := 0; i < 3; i++ {
		got, err := w.Tokens(context.Background(), 1)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	}
	assert.Equal(t, 1, agg.tokenCalls)

	_, err := w.Token(context.Background(), 1, dai)
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestWallet_Balances(t *testing.T) {
	w, _, _ := newWallet()

	balances, err := w.Balances(context.Background(), 1, holder)
	require.NoError(t, err)
	require.Len(t, balances, 2)

	assert.Equal(t, "USDC", balances[0].Token.Symbol)
	assert.Equal(t, "1.5", balances[0].Amount.String())
	assert.Equal(t, "WETH", balances[1].Token.Symbol)
	assert.Equal(t, "0.02", balances[1].Amount.String())
}

func TestWallet_Quote(t *testing.T) {
	w, agg, _ := newWallet()

	quote, err := w.Quote(context.Background(), 1, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", weth, "1.2345678")
	require.NoError(t, err)

	// truncated to 6 decimals
	assert.Equal(t, "1234567", agg.quoteReq.Amount)
	assert.Equal(t, "1.234567", quote.SrcAmount.String())

	_, err = w.Quote(context.Background(), 1, usdc, weth, "1,5")
	assert.ErrorIs(t, err, amount.ErrInvalidFormat)
}

func TestWallet_BuildSwap(t *testing.T) {
	w, agg, swaps := newWallet()

	swap, err := w.BuildSwap(context.Background(), 1, SwapInput{
		Src: usdc, Dst: weth, Amount: "10", From: holder, Slippage: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, "10000000", agg.swapReq.Amount)
	assert.Equal(t, float64(1), agg.swapReq.Slippage)
	assert.NotEqual(t, [16]byte{}, [16]byte(swap.ID))
	assert.Equal(t, "10", swap.SrcAmount.String())
	require.Len(t, swaps.swaps, 1)
	assert.Equal(t, swap.ID, swaps.swaps[0].ID)
}

func TestWallet_AllowanceAndApprove(t *testing.T) {
	w, agg, _ := newWallet()

	allowance, err := w.Allowance(context.Background(), 1, usdc, holder)
	require.NoError(t, err)
	assert.Equal(t, "2.5", allowance.Allowance.String())

	_, err = w.Approve(context.Background(), 1, usdc, "")
	require.NoError(t, err)
	assert.Equal(t, "", agg.approveAmt)

	_, err = w.Approve(context.Background(), 1, usdc, "100.5")
	require.NoError(t, err)
	assert.Equal(t, "100500000", agg.approveAmt)
}
