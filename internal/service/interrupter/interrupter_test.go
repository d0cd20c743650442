package interrupter

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterrupter_Signal(t *testing.T) {
	done := make(chan error, 1)
	go func() { done <- New(syscall.SIGUSR1).Run(context.Background()) }()

	// give Notify time to register
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrInterrupted)
	case <-time.After(time.Second):
		t.Fatal("signal not handled")
	}
}

func TestInterrupter_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, New().Run(ctx), context.Canceled)
}
