package throttle

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type Stats struct {
	Name      string        `json:"name"`
	State     string        `json:"state"`
	Delay     time.Duration `json:"delay"`
	Queued    int           `json:"queued"`
	Submitted uint64        `json:"submitted"`
	Completed uint64        `json:"completed"`
	Failed    uint64        `json:"failed"`
	Skipped   uint64        `json:"skipped"`
}

func (l *Limiter) Stats() Stats {
	l.mx.Lock()
	queued, draining := len(l.queue), l.draining
	l.mx.Unlock()

	state := Idle
	if draining {
		state = Draining
	}

	return Stats{
		Name:      l.name,
		State:     state.String(),
		Delay:     l.delay,
		Queued:    queued,
		Submitted: l.submitted.Load(),
		Completed: l.completed.Load(),
		Failed:    l.failed.Load(),
		Skipped:   l.skipped.Load(),
	}
}

// Registry holds the named limiters of one application. Limiters never share delay budgets.
type Registry struct {
	mx       sync.RWMutex
	limiters map[string]*Limiter
	grace    time.Duration
}

func NewRegistry() *Registry {
	return &Registry{
		limiters: make(map[string]*Limiter),
		grace:    5 * time.Second,
	}
}

// WithGrace sets how long Run waits for queued calls on shutdown.
func (r *Registry) WithGrace(grace time.Duration) *Registry {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.grace = grace
	return r
}

// Add registers l under its name. It panics if the name is already taken.
func (r *Registry) Add(l *Limiter) *Registry {
	r.mx.Lock()
	defer r.mx.Unlock()

	if _, ok := r.limiters[l.Name()]; ok {
		panic(fmt.Sprintf("throttle: limiter %q registered twice", l.Name()))
	}
	r.limiters[l.Name()] = l
	return r
}

func (r *Registry) Get(name string) (*Limiter, error) {
	r.mx.RLock()
	defer r.mx.RUnlock()

	l, ok := r.limiters[name]
	if !ok {
		return nil, fmt.Errorf("limiter %q not registered", name)
	}
	return l, nil
}

// Stats returns the stats of every limiter ordered by name.
func (r *Registry) Stats() []Stats {
	r.mx.RLock()
	defer r.mx.RUnlock()

	stats := make([]Stats, 0, len(r.limiters))
	for _, l := range r.limiters {
		stats = append(stats, l.Stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })

	return stats
}

// Run blocks until ctx ends, then gives queued calls the grace period to finish.
func (r *Registry) Run(ctx context.Context) error {
	<-ctx.Done()

	r.mx.RLock()
	grace := r.grace
	limiters := make(map[string]*Limiter, len(r.limiters))
	for name, l := range r.limiters {
		limiters[name] = l
	}
	r.mx.RUnlock()

	waitCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	for name, l := range limiters {
		if err := l.Wait(waitCtx); err != nil {
			return fmt.Errorf("drain limiter %s: %w", name, err)
		}
	}

	return ctx.Err()
}
