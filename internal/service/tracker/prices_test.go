package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zamyatin-zkex/swapdash/internal/event"
)

const (
	weth = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	usdc = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
)

type fakeSource struct {
	prices []map[string]decimal.Decimal
	err    error
	calls  int
}

func (f *fakeSource) SpotPrices(ctx context.Context, chainID int, tokens []string, currency string) (map[string]decimal.Decimal, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := f.prices[min(f.calls, len(f.prices)-1)]
	f.calls++
	return out, nil
}

func TestPrices_Poll(t *testing.T) {
	src := &fakeSource{prices: []map[string]decimal.Decimal{
		{weth: decimal.NewFromInt(3000)},
		{weth: decimal.NewFromInt(3300), usdc: decimal.RequireFromString("0.9998")},
		{weth: decimal.NewFromInt(3600), usdc: decimal.NewFromInt(1)},
	}}
	prices := NewPrices(src, 1, "USD", 2, "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", usdc)
	base := time.Unix(1_700_000_000, 0)
	step := 0
	prices.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}

	for i := 0; i < 3; i++ {
		ev, err := prices.Poll(context.Background())
		require.NoError(t, err)
		updated := ev.(event.PricesUpdated)
		assert.Equal(t, 1, updated.ChainID)
		if i == 0 {
			require.Len(t, updated.Prices, 1)
		}
	}

	history := prices.History(weth, 10)
	require.Len(t, history, 2)
	assert.True(t, decimal.NewFromInt(3600).Equal(history[0].Price))
	assert.True(t, decimal.NewFromInt(3300).Equal(history[1].Price))

	change, ok := prices.Change(weth)
	require.True(t, ok)
	assert.Equal(t, "0.0909090909090909", change.StringFixed(16))

	latest := prices.Latest()
	require.Len(t, latest, 2)
	assert.Equal(t, weth, latest[0].Token)
}

func TestPrices_PollError(t *testing.T) {
	boom := errors.New("429")
	prices := NewPrices(&fakeSource{err: boom}, 1, "USD", 5, weth)

	_, err := prices.Poll(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, prices.History(weth, 5))

	_, ok := prices.Change(weth)
	assert.False(t, ok)
}
