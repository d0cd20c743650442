package tracker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/zamyatin-zkex/swapdash/pkg/ebus"
)

type watch struct {
	name   string
	frame  time.Duration
	getter func(ctx context.Context) (any, error)
}

// Tracker polls getters on their own frames and emits what they return on the bus.
type Tracker struct {
	eBus *ebus.EBus
	log  *slog.Logger
	subs []watch
	mx   sync.Mutex
}

func New(eBus *ebus.EBus, log *slog.Logger) *Tracker {
	return &Tracker{
		eBus: eBus,
		log:  log,
	}
}

// EmitEvery emits the result of getter every frame. A failing getter is logged and retried on
// the next frame.
func (t *Tracker) EmitEvery(name string, frame time.Duration, getter func(ctx context.Context) (any, error)) *Tracker {
	t.mx.Lock()
	defer t.mx.Unlock()

	t.subs = append(t.subs, watch{name: name, frame: frame, getter: getter})
	return t
}

func (t *Tracker) Run(ctx context.Context) error {
	t.mx.Lock()
	subs := t.subs
	t.mx.Unlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			t.watch(ctx, sub)
		}()
	}

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

func (t *Tracker) watch(ctx context.Context, sub watch) {
	ticker := time.NewTicker(sub.frame)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ins, err := sub.getter(ctx)
			if err != nil {
				if ctx.Err() == nil {
					t.log.Warn("watch failed", "watch", sub.name, "err", err)
				}
				continue
			}
			if err := t.eBus.Emit(ctx, ins); err != nil {
				t.log.Warn("watch emit failed", "watch", sub.name, "err", err)
			}
		}
	}
}

// LogEvents returns a bus listener that logs any event with its JSON payload.
func LogEvents(log *slog.Logger) ebus.Listener {
	return func(ctx context.Context, event any) error {
		js, err := json.Marshal(event)
		if err != nil {
			return err
		}
		log.InfoContext(ctx, "event", "name", ebus.Name(event), "payload", json.RawMessage(js))
		return nil
	}
}
