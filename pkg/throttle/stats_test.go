package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	api := newLimiter(t, Options{Name: "api", Delay: 500 * time.Millisecond})
	web3 := newLimiter(t, Options{Name: "web3", Delay: time.Second})

	reg := NewRegistry().Add(web3).Add(api)

	got, err := reg.Get("api")
	require.NoError(t, err)
	assert.Same(t, api, got)

	_, err = reg.Get("nope")
	assert.Error(t, err)

	stats := reg.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "api", stats[0].Name)
	assert.Equal(t, "web3", stats[1].Name)
	assert.Equal(t, time.Second, stats[1].Delay)
	assert.Equal(t, "idle", stats[1].State)
}

func TestRegistry_DuplicateName(t *testing.T) {
	reg := NewRegistry().Add(newLimiter(t, Options{Name: "api"}))

	assert.Panics(t, func() {
		reg.Add(newLimiter(t, Options{Name: "api"}))
	})
	assert.Len(t, reg.Stats(), 1)
}

func TestRegistry_IndependentBudgets(t *testing.T) {
	slow := newLimiter(t, Options{Name: "slow", Delay: time.Hour})
	fast := newLimiter(t, Options{Name: "fast"})
	NewRegistry().Add(slow).Add(fast)

	_, err := slow.Submit(context.Background(), func(ctx context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)

	started := time.Now()
	_, err = fast.Submit(context.Background(), func(ctx context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)
	assert.Less(t, time.Since(started), time.Second)
}

func TestRegistry_RunDrainsOnShutdown(t *testing.T) {
	l := newLimiter(t, Options{Name: "api"})
	reg := NewRegistry().Add(l).WithGrace(time.Second)

	gate := make(chan struct{})
	head := submitQueuedRunning(t, l, gate)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reg.Run(ctx) }()

	cancel()
	time.AfterFunc(20*time.Millisecond, func() { close(gate) })

	assert.ErrorIs(t, <-done, context.Canceled)
	<-head
	assert.Equal(t, Idle, l.State())
}

func TestRegistry_UsableDuringDrain(t *testing.T) {
	l := newLimiter(t, Options{Name: "api"})
	reg := NewRegistry().Add(l).WithGrace(time.Second)

	gate := make(chan struct{})
	head := submitQueuedRunning(t, l, gate)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reg.Run(ctx) }()
	cancel()

	// Run is waiting on the running unit; registry writes must not block behind it.
	web3 := newLimiter(t, Options{Name: "web3"})
	added := make(chan struct{})
	go func() {
		reg.Add(web3)
		close(added)
	}()
	select {
	case <-added:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Add blocked while Run was draining")
	}

	close(gate)
	<-head
	assert.ErrorIs(t, <-done, context.Canceled)
}
