package volume

import (
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zamyatin-zkex/swapdash/internal/entity"
	"github.com/zamyatin-zkex/swapdash/pkg/ringbuf"
)

// ErrTooLate is returned for swaps older than the longest window.
var ErrTooLate = errors.New("swap is older than the longest window")

// Series keeps one second buckets of swap volume for a token symbol and the running sums of
// every period over them.
type Series struct {
	Symbol   string
	Periods  Periods
	Buckets  *ringbuf.Ring[Bucket]
	RollSums map[string]decimal.Decimal
	Offset   int64

	mx sync.RWMutex
}

func NewSeries(symbol string, periods Periods, now time.Time) *Series {
	return &Series{
		Symbol:   symbol,
		Periods:  periods,
		Buckets:  ringbuf.New[Bucket](periods.max().buckets()).PushFront(Bucket{StartedAt: now.Truncate(bucketSpan)}),
		RollSums: make(map[string]decimal.Decimal),
	}
}

// Inc adds volume at ts. A zero volume only rolls the buckets forward to ts.
func (s *Series) Inc(ts time.Time, volume decimal.Decimal, offset int64) error {
	s.mx.Lock()
	defer s.mx.Unlock()

	newest := s.Buckets.GetN(0)

	if ts.Before(newest.StartedAt) {
		return s.late(ts, volume, offset)
	}

	s.roll(ts)

	s.Buckets.SetN(0, s.Buckets.GetN(0).add(volume))
	for name := range s.Periods {
		s.RollSums[name] = s.RollSums[name].Add(volume)
	}
	s.track(offset)

	return nil
}

// roll pushes buckets until the newest one covers ts, expiring the volume that leaves each window.
func (s *Series) roll(ts time.Time) {
	newest := s.Buckets.GetN(0)
	if newest.covers(ts) {
		return
	}

	steps := int(ts.Sub(newest.StartedAt) / bucketSpan)
	if steps >= s.Buckets.Len() {
		// every window is stale
		s.Buckets = ringbuf.New[Bucket](s.Buckets.Len()).PushFront(Bucket{StartedAt: ts.Truncate(bucketSpan)})
		clear(s.RollSums)
		return
	}

	for i := 0; i < steps; i++ {
		for name, dur := range s.Periods {
			leaving := s.Buckets.GetN(Period(dur).buckets() - 1)
			s.RollSums[name] = s.RollSums[name].Sub(leaving.Volume)
		}
		s.Buckets.PushFront(Bucket{StartedAt: newest.StartedAt.Add(time.Duration(i+1) * bucketSpan)})
	}
}

func (s *Series) late(ts time.Time, volume decimal.Decimal, offset int64) error {
	newest := s.Buckets.GetN(0)
	idx := int(newest.StartedAt.Sub(ts.Truncate(bucketSpan)) / bucketSpan)
	if idx >= s.Buckets.Filled {
		return ErrTooLate
	}

	s.Buckets.SetN(idx, s.Buckets.GetN(idx).add(volume))
	for name, dur := range s.Periods {
		if idx < Period(dur).buckets() {
			s.RollSums[name] = s.RollSums[name].Add(volume)
		}
	}
	s.track(offset)

	return nil
}

func (s *Series) track(offset int64) {
	if offset > s.Offset {
		s.Offset = offset
	}
}

func (s *Series) offset() int64 {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return s.Offset
}

func (s *Series) stats() map[string]decimal.Decimal {
	s.mx.RLock()
	defer s.mx.RUnlock()

	stats := make(map[string]decimal.Decimal, len(s.Periods))
	for name := range s.Periods {
		stats[name] = s.RollSums[name]
	}
	return stats
}

func (s *Series) state() entity.Volume {
	s.mx.RLock()
	defer s.mx.RUnlock()

	return entity.Volume{
		Symbol:   s.Symbol,
		Periods:  maps.Clone(s.Periods),
		Buckets:  ringbuf.Map(s.Buckets, func(b Bucket) entity.Bucket { return entity.Bucket(b) }),
		RollSums: maps.Clone(s.RollSums),
		Offset:   s.Offset,
	}
}

// seriesFromState rebuilds a series from a snapshot over the configured periods, which may
// differ from the periods the snapshot was taken with.
func seriesFromState(v entity.Volume, periods Periods) *Series {
	s := &Series{
		Symbol:   v.Symbol,
		Periods:  periods,
		Buckets:  ringbuf.New[Bucket](periods.max().buckets()),
		RollSums: make(map[string]decimal.Decimal),
		Offset:   v.Offset,
	}

	if v.Buckets == nil || v.Buckets.Filled == 0 {
		s.Buckets.PushFront(Bucket{StartedAt: time.Now().Truncate(bucketSpan)})
		return s
	}

	kept := v.Buckets.Newest(s.Buckets.Len())
	for i := len(kept) - 1; i >= 0; i-- {
		s.Buckets.PushFront(Bucket(kept[i]))
	}
	for name, dur := range periods {
		sum := decimal.Zero
		s.Buckets.WalkFirstN(min(Period(dur).buckets(), s.Buckets.Filled), func(b Bucket) {
			sum = sum.Add(b.Volume)
		})
		s.RollSums[name] = sum
	}
	return s
}
