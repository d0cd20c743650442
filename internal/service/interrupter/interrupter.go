package interrupter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

var ErrInterrupted = errors.New("got interrupt signal")

// Interrupter ends the app group when the process receives one of its signals.
type Interrupter struct {
	signals []os.Signal
}

// New listens for SIGINT and SIGTERM unless other signals are given.
func New(signals ...os.Signal) Interrupter {
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	return Interrupter{signals: signals}
}

func (i Interrupter) Run(ctx context.Context) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, i.signals...)
	defer signal.Stop(stop)

	select {
	case sig := <-stop:
		return fmt.Errorf("%w: %s", ErrInterrupted, sig.String())
	case <-ctx.Done():
		return fmt.Errorf("interrupter: %w", ctx.Err())
	}
}
