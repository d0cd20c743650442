package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApp_StopsOnFirstError(t *testing.T) {
	boom := errors.New("boom")
	stopped := make(chan error, 1)

	err := NewApp(slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithService("waiter", ServiceFunc(func(ctx context.Context) error {
			<-ctx.Done()
			stopped <- context.Cause(ctx)
			return ctx.Err()
		})).
		WithService("failer", ServiceFunc(func(ctx context.Context) error {
			return boom
		})).
		Run(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, <-stopped, boom)
}

func TestApp_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewApp(slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithService("waiter", ServiceFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})).
		Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}
