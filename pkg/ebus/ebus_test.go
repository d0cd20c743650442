package ebus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinged struct{ N int }

type ponged struct{ N int }

func TestEBus_Emit(t *testing.T) {
	bus := New()

	got := make([]int, 0)
	On(bus, func(ctx context.Context, e pinged) error {
		got = append(got, e.N)
		return nil
	})
	bus.Subscribe(pinged{}, Typed(func(ctx context.Context, e pinged) error {
		got = append(got, e.N*10)
		return nil
	}))

	require.NoError(t, bus.Emit(context.Background(), pinged{N: 2}))
	assert.Equal(t, []int{2, 20}, got)
}

func TestEBus_NoListener(t *testing.T) {
	bus := New()
	On(bus, func(ctx context.Context, e pinged) error { return nil })

	err := bus.Emit(context.Background(), ponged{})
	assert.ErrorIs(t, err, ErrNoListener)
}

func TestEBus_StopsOnError(t *testing.T) {
	bus := New()
	boom := errors.New("boom")

	called := false
	On(bus, func(ctx context.Context, e pinged) error { return boom })
	On(bus, func(ctx context.Context, e pinged) error {
		called = true
		return nil
	})

	err := bus.Emit(context.Background(), pinged{})
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
}

func TestTyped_WrongType(t *testing.T) {
	listener := Typed(func(ctx context.Context, e pinged) error { return nil })
	assert.Error(t, listener(context.Background(), ponged{}))
	assert.Equal(t, "pinged", Name(pinged{}))
}
