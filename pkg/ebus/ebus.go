package ebus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var ErrNoListener = errors.New("no listener registered")

type EBus struct {
	listeners map[reflect.Type][]Listener
	mx        sync.RWMutex
}

func New() *EBus {
	return &EBus{
		listeners: make(map[reflect.Type][]Listener),
	}
}

// Subscribe registers handler for events of the same type as event.
func (e *EBus) Subscribe(event any, handler Listener) *EBus {
	e.mx.Lock()
	defer e.mx.Unlock()

	kind := reflect.TypeOf(event)
	e.listeners[kind] = append(e.listeners[kind], handler)

	return e
}

// On subscribes a typed handler without a sample event value.
func On[T any](e *EBus, fn func(ctx context.Context, event T) error) *EBus {
	var zero T
	return e.Subscribe(zero, Typed(fn))
}

// Emit calls the listeners of the event type in subscription order and stops at the first error.
func (e *EBus) Emit(ctx context.Context, event any) error {
	e.mx.RLock()
	handlers := e.listeners[reflect.TypeOf(event)]
	e.mx.RUnlock()

	if len(handlers) == 0 {
		return fmt.Errorf("%w: type %T", ErrNoListener, event)
	}

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			return fmt.Errorf("handle %T: %w", event, err)
		}
	}

	return nil
}

func Name(event any) string {
	return reflect.TypeOf(event).Name()
}
