// Package throttle serializes calls to a rate-limited upstream. Units of work submitted to a
// Limiter run one at a time in submission order, and every unit starts at least Delay after
// the previous one finished.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrInvalidConfig = errors.New("invalid limiter configuration")
	ErrNilWork       = errors.New("nil unit of work")
	ErrPanic         = errors.New("unit of work panicked")
)

// State of the drain loop.
type State int32

const (
	Idle State = iota
	Draining
)

func (s State) String() string {
	if s == Draining {
		return "draining"
	}
	return "idle"
}

// Work is a unit of work. The context is the submitter's, bounded by Options.Timeout.
type Work func(ctx context.Context) (any, error)

type Options struct {
	Name string
	// Delay between the completion of one unit and the start of the next.
	Delay time.Duration
	// Rate additionally caps unit starts per second. Zero disables it.
	Rate float64
	// Timeout bounds each unit through its context. Zero means no bound.
	Timeout time.Duration
}

type result struct {
	val any
	err error
}

type entry struct {
	ctx  context.Context
	work Work
	done chan result
	// started is set under Limiter.mx once drain takes the entry off the queue.
	started bool
}

type Limiter struct {
	name    string
	delay   time.Duration
	timeout time.Duration
	pacer   *rate.Limiter

	mx       sync.Mutex
	queue    []*entry
	draining bool
	idle     chan struct{}
	lastDone time.Time

	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	skipped   atomic.Uint64
}

func New(opts Options) (*Limiter, error) {
	if opts.Delay < 0 {
		return nil, fmt.Errorf("delay must be >= 0: %w", ErrInvalidConfig)
	}
	if opts.Rate < 0 {
		return nil, fmt.Errorf("rate must be >= 0: %w", ErrInvalidConfig)
	}
	if opts.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0: %w", ErrInvalidConfig)
	}

	l := &Limiter{
		name:    opts.Name,
		delay:   opts.Delay,
		timeout: opts.Timeout,
		idle:    make(chan struct{}),
	}
	close(l.idle)

	if opts.Rate > 0 {
		l.pacer = rate.NewLimiter(rate.Limit(opts.Rate), 1)
	}

	return l, nil
}

func (l *Limiter) Name() string {
	return l.name
}

// Submit queues work and blocks until it has run, returning exactly what work returned.
// If ctx ends while the unit is still queued, the unit is skipped and ctx.Err() returned.
// Once the unit has started, Submit waits for it whatever happens to ctx.
func (l *Limiter) Submit(ctx context.Context, work Work) (any, error) {
	if work == nil {
		return nil, ErrNilWork
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e := &entry{ctx: ctx, work: work, done: make(chan result, 1)}

	l.mx.Lock()
	l.queue = append(l.queue, e)
	l.submitted.Add(1)
	if !l.draining {
		l.draining = true
		l.idle = make(chan struct{})
		go l.drain()
	}
	l.mx.Unlock()

	select {
	case res := <-e.done:
		return res.val, res.err
	case <-ctx.Done():
		l.mx.Lock()
		started := e.started
		l.mx.Unlock()

		if !started {
			return nil, ctx.Err()
		}
		res := <-e.done
		return res.val, res.err
	}
}

// Do is Submit with a typed result.
func Do[T any](ctx context.Context, l *Limiter, work func(context.Context) (T, error)) (T, error) {
	if work == nil {
		var zero T
		return zero, ErrNilWork
	}

	val, err := l.Submit(ctx, func(ctx context.Context) (any, error) {
		return work(ctx)
	})
	typed, _ := val.(T)
	return typed, err
}

func (l *Limiter) drain() {
	for {
		l.mx.Lock()
		if len(l.queue) == 0 {
			l.draining = false
			close(l.idle)
			l.mx.Unlock()
			return
		}
		wait := l.delay - time.Since(l.lastDone)
		l.mx.Unlock()

		if wait > 0 {
			time.Sleep(wait)
		}

		l.mx.Lock()
		e := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		e.started = true
		l.mx.Unlock()

		if err := e.ctx.Err(); err != nil {
			l.skip(e, err)
			continue
		}
		if l.pacer != nil {
			if err := l.pacer.Wait(e.ctx); err != nil {
				l.skip(e, err)
				continue
			}
		}

		l.run(e)
	}
}

func (l *Limiter) skip(e *entry, err error) {
	l.skipped.Add(1)
	e.done <- result{err: err}
}

func (l *Limiter) run(e *entry) {
	ctx := e.ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	val, err := call(ctx, e.work)

	l.mx.Lock()
	l.lastDone = time.Now()
	l.mx.Unlock()

	l.completed.Add(1)
	if err != nil {
		l.failed.Add(1)
	}
	e.done <- result{val: val, err: err}
}

// call keeps a panicking unit from killing the drain loop.
func call(ctx context.Context, work Work) (val any, err error) {
	defer func() {
		if r := recover(); r != nil {
			val, err = nil, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return work(ctx)
}

// Wait blocks until the queue is empty and nothing is running.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mx.Lock()
	idle := l.idle
	l.mx.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Limiter) State() State {
	l.mx.Lock()
	defer l.mx.Unlock()

	if l.draining {
		return Draining
	}
	return Idle
}

// Len is the number of queued units, excluding the one running.
func (l *Limiter) Len() int {
	l.mx.Lock()
	defer l.mx.Unlock()
	return len(l.queue)
}
