package consumer

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zamyatin-zkex/swapdash/internal/entity"
	"github.com/zamyatin-zkex/swapdash/internal/event"
	"github.com/zamyatin-zkex/swapdash/pkg/amount"
	"github.com/zamyatin-zkex/swapdash/pkg/ebus"
)

func newHandler(bus *ebus.EBus) Handler {
	return Handler{
		commits: make(chan int64, 1),
		topic:   "swaps",
		eBus:    bus,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestHandler_Handle(t *testing.T) {
	bus := ebus.New()
	var got []event.SwapRecorded
	ebus.On(bus, func(ctx context.Context, e event.SwapRecorded) error {
		got = append(got, e)
		return nil
	})

	src, err := amount.Parse("12.34", 6)
	require.NoError(t, err)
	swap := entity.Swap{ID: uuid.New(), Src: entity.Token{Symbol: "USDC", Decimals: 6}, SrcAmount: src}
	payload, err := json.Marshal(swap)
	require.NoError(t, err)

	h := newHandler(bus)
	require.NoError(t, h.handle(context.Background(), &sarama.ConsumerMessage{Value: payload, Offset: 17}))
	require.NoError(t, h.handle(context.Background(), &sarama.ConsumerMessage{Value: []byte("{oops"), Offset: 18}))

	require.Len(t, got, 1)
	assert.Equal(t, swap.ID, got[0].ID)
	assert.Equal(t, int64(17), got[0].Offset)
	assert.Equal(t, "12.34", got[0].SrcAmount.String())
}

func TestHandler_Commit(t *testing.T) {
	h := newHandler(ebus.New())

	require.NoError(t, h.commit(context.Background(), 5))
	assert.Equal(t, int64(5), <-h.commits)

	// no claim marks offsets: the newest one wins
	require.NoError(t, h.commit(context.Background(), 6))
	require.NoError(t, h.commit(context.Background(), 7))
	assert.Equal(t, int64(7), <-h.commits)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.commit(ctx, 8), context.Canceled)
}

func TestConsumer_CommitSkipsEmptyState(t *testing.T) {
	c := &Consumer{handler: newHandler(ebus.New())}
	assert.NoError(t, c.Commit(context.Background(), event.StateSaved{}))
}
