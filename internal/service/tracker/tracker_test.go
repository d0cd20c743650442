package tracker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zamyatin-zkex/swapdash/internal/event"
	"github.com/zamyatin-zkex/swapdash/pkg/ebus"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTracker_EmitEvery(t *testing.T) {
	bus := ebus.New()
	got := make(chan event.StateSaved, 10)
	ebus.On(bus, func(ctx context.Context, e event.StateSaved) error {
		got <- e
		return nil
	})

	var calls atomic.Int64
	tr := New(bus, discard()).
		EmitEvery("flaky", 5*time.Millisecond, func(ctx context.Context) (any, error) {
			if calls.Add(1) == 1 {
				return nil, errors.New("upstream down")
			}
			return event.StateSaved{Offset: calls.Load()}, nil
		})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	select {
	case e := <-got:
		assert.GreaterOrEqual(t, e.Offset, int64(2))
	case <-time.After(time.Second):
		t.Fatal("no event after a failed poll")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestLogEvents(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	require.NoError(t, LogEvents(log)(context.Background(), event.StateRestored{Offset: 3, Tokens: 2}))
	assert.Contains(t, buf.String(), `"name":"StateRestored"`)
	assert.Contains(t, buf.String(), `"Offset":3`)
}
