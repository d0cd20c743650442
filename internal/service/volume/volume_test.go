package volume

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zamyatin-zkex/swapdash/internal/entity"
	"github.com/zamyatin-zkex/swapdash/internal/event"
	"github.com/zamyatin-zkex/swapdash/pkg/amount"
	"github.com/zamyatin-zkex/swapdash/pkg/ebus"
)

type memRestorer struct {
	mx     sync.Mutex
	last   entity.State
	stored []entity.State
}

func (m *memRestorer) LastState(ctx context.Context) (entity.State, error) {
	return m.last, nil
}

func (m *memRestorer) Store(ctx context.Context, state entity.State) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.stored = append(m.stored, state)
	return nil
}

func (m *memRestorer) count() int {
	m.mx.Lock()
	defer m.mx.Unlock()
	return len(m.stored)
}

func swapOf(t *testing.T, symbol, human string, decimals uint8, offset int64, ts time.Time) event.SwapRecorded {
	t.Helper()
	amt, err := amount.Parse(human, decimals)
	require.NoError(t, err)
	return event.SwapRecorded{
		Swap: entity.Swap{
			ID:        uuid.New(),
			Src:       entity.Token{Symbol: symbol, Decimals: decimals},
			SrcAmount: amt,
			Time:      ts,
		},
		Offset: offset,
	}
}

func startVolume(t *testing.T, rest Restorer, bus *ebus.EBus) (*Volume, context.CancelFunc) {
	t.Helper()

	vol := New(rest, bus, Periods{"1m": time.Minute}).WithSnapshotEvery(20 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = vol.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return vol, cancel
}

func TestVolume_HandleSwap(t *testing.T) {
	bus := ebus.New()
	var skipped []event.SwapSkipped
	ebus.On(bus, func(ctx context.Context, e event.SwapSkipped) error {
		skipped = append(skipped, e)
		return nil
	})

	vol, _ := startVolume(t, &memRestorer{}, bus)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, vol.HandleSwap(ctx, swapOf(t, "USDC", "1.5", 6, 1, now)))
	require.NoError(t, vol.HandleSwap(ctx, swapOf(t, "USDC", "2.25", 6, 2, now)))
	require.NoError(t, vol.HandleSwap(ctx, swapOf(t, "WETH", "0.000000000000000001", 18, 3, now)))

	// replayed offset
	require.NoError(t, vol.HandleSwap(ctx, swapOf(t, "USDC", "100", 6, 2, now)))

	stats := vol.Stats()
	assert.Equal(t, "3.75", stats["USDC"]["1m"].String())
	assert.Equal(t, "0.000000000000000001", stats["WETH"]["1m"].String())
	require.Len(t, skipped, 1)
	assert.Equal(t, int64(2), skipped[0].Offset)
}

func TestVolume_RestoreAndSnapshot(t *testing.T) {
	src := New(&memRestorer{}, ebus.New(), Periods{"1m": time.Minute})
	close(src.restored)
	require.NoError(t, src.HandleSwap(context.Background(), swapOf(t, "USDC", "5", 6, 9, time.Now())))

	rest := &memRestorer{last: src.state()}
	bus := ebus.New()
	saved := make(chan event.StateSaved, 10)
	ebus.On(bus, func(ctx context.Context, e event.StateSaved) error {
		saved <- e
		return nil
	})

	vol, _ := startVolume(t, rest, bus)

	stats, ok := vol.Symbol("USDC")
	require.True(t, ok)
	assert.Equal(t, "5", stats["1m"].String())

	select {
	case e := <-saved:
		assert.Equal(t, int64(9), e.Offset)
		assert.Equal(t, 1, e.Tokens)
	case <-time.After(time.Second):
		t.Fatal("no snapshot")
	}
	assert.GreaterOrEqual(t, rest.count(), 1)
}

func TestVolume_WaitsForRestore(t *testing.T) {
	vol := New(&memRestorer{}, ebus.New(), Periods{"1m": time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := vol.HandleSwap(ctx, swapOf(t, "USDC", "1", 6, 1, time.Now()))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
