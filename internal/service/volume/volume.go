// Package volume keeps rolling swap volumes per source token, in human units, and snapshots them
// so a restart resumes from the last committed swap offset.
package volume

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zamyatin-zkex/swapdash/internal/entity"
	"github.com/zamyatin-zkex/swapdash/internal/event"
	"github.com/zamyatin-zkex/swapdash/pkg/ebus"
)

type Restorer interface {
	LastState(context.Context) (entity.State, error)
	Store(context.Context, entity.State) error
}

type Volume struct {
	mx     sync.RWMutex
	series map[string]*Series

	periods       Periods
	snapshotEvery time.Duration

	restorer Restorer
	restored chan struct{}

	eBus *ebus.EBus
	now  func() time.Time
}

func New(rest Restorer, eBus *ebus.EBus, periods Periods) *Volume {
	return &Volume{
		series:        make(map[string]*Series),
		periods:       periods,
		snapshotEvery: 5 * time.Second,
		restored:      make(chan struct{}),
		eBus:          eBus,
		restorer:      rest,
		now:           time.Now,
	}
}

func (v *Volume) WithSnapshotEvery(every time.Duration) *Volume {
	v.snapshotEvery = every
	return v
}

// AddSymbol starts tracking a symbol before its first swap, so it reports zero volumes.
func (v *Volume) AddSymbol(symbol string) *Volume {
	v.mx.Lock()
	defer v.mx.Unlock()
	if _, ok := v.series[symbol]; !ok {
		v.series[symbol] = NewSeries(symbol, v.periods, v.now())
	}
	return v
}

func (v *Volume) HandleSwap(ctx context.Context, swap event.SwapRecorded) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-v.restored:
	}

	symbol := swap.Src.Symbol
	if symbol == "" {
		return fmt.Errorf("swap %s has no source symbol", swap.ID)
	}

	series := v.seriesOf(symbol)

	if swap.Offset > 0 && swap.Offset <= series.offset() {
		// already part of the restored state
		_ = v.eBus.Emit(ctx, event.SwapSkipped{ID: swap.ID.String(), Offset: swap.Offset})
		return nil
	}

	ts := swap.Time
	if ts.IsZero() {
		ts = v.now()
	}

	err := series.Inc(ts, swap.SrcAmount.Decimal(), swap.Offset)
	if errors.Is(err, ErrTooLate) {
		_ = v.eBus.Emit(ctx, event.SwapSkipped{ID: swap.ID.String(), Offset: swap.Offset})
		return nil
	}
	if err != nil {
		return fmt.Errorf("inc %s: %w", symbol, err)
	}

	return nil
}

func (v *Volume) seriesOf(symbol string) *Series {
	v.mx.RLock()
	series, ok := v.series[symbol]
	v.mx.RUnlock()
	if ok {
		return series
	}

	v.mx.Lock()
	defer v.mx.Unlock()
	if series, ok = v.series[symbol]; !ok {
		series = NewSeries(symbol, v.periods, v.now())
		v.series[symbol] = series
	}
	return series
}

func (v *Volume) Run(ctx context.Context) error {
	state, err := v.restorer.LastState(ctx)
	if err != nil {
		return fmt.Errorf("restorer state: %w", err)
	}

	v.restore(state)
	_ = v.eBus.Emit(ctx, event.StateRestored{Offset: state.Offset, Tokens: len(state.Volumes)})

	rollTicker := time.NewTicker(bucketSpan)
	defer rollTicker.Stop()

	stateTicker := time.NewTicker(v.snapshotEvery)
	defer stateTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-rollTicker.C:
			v.roll()
		case <-stateTicker.C:
			if err := v.snapshot(ctx); err != nil {
				return err
			}
		}
	}
}

// roll keeps buckets aligned with the clock for symbols without swaps.
func (v *Volume) roll() {
	now := v.now()

	v.mx.RLock()
	defer v.mx.RUnlock()
	for _, series := range v.series {
		_ = series.Inc(now, decimal.Zero, 0)
	}
}

func (v *Volume) snapshot(ctx context.Context) error {
	current := v.state()
	if err := v.restorer.Store(ctx, current); err != nil {
		return fmt.Errorf("restorer store: %w", err)
	}

	err := v.eBus.Emit(ctx, event.StateSaved{Offset: current.Offset, Tokens: len(current.Volumes)})
	if err != nil && !errors.Is(err, ebus.ErrNoListener) {
		return fmt.Errorf("ebus emit: %w", err)
	}
	return nil
}

// Stats returns symbol -> period -> volume.
func (v *Volume) Stats() map[string]map[string]decimal.Decimal {
	v.mx.RLock()
	defer v.mx.RUnlock()

	stats := make(map[string]map[string]decimal.Decimal, len(v.series))
	for symbol, series := range v.series {
		stats[symbol] = series.stats()
	}
	return stats
}

func (v *Volume) Symbol(symbol string) (map[string]decimal.Decimal, bool) {
	v.mx.RLock()
	series, ok := v.series[symbol]
	v.mx.RUnlock()
	if !ok {
		return nil, false
	}
	return series.stats(), true
}

func (v *Volume) state() entity.State {
	v.mx.RLock()
	defer v.mx.RUnlock()

	state := entity.State{
		Volumes: make(map[string]entity.Volume, len(v.series)),
	}
	for symbol, series := range v.series {
		volume := series.state()
		state.Volumes[symbol] = volume
		state.Offset = max(state.Offset, volume.Offset)
	}
	return state
}

func (v *Volume) restore(state entity.State) {
	defer close(v.restored)

	v.mx.Lock()
	defer v.mx.Unlock()

	for symbol, volume := range state.Volumes {
		v.series[symbol] = seriesFromState(volume, v.periods)
	}
}
