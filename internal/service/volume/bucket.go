package volume

import (
	"time"

	"github.com/shopspring/decimal"
)

const bucketSpan = time.Second

type Bucket struct {
	StartedAt time.Time
	Volume    decimal.Decimal
}

func (b Bucket) add(volume decimal.Decimal) Bucket {
	b.Volume = b.Volume.Add(volume)
	return b
}

func (b Bucket) covers(ts time.Time) bool {
	return !ts.Before(b.StartedAt) && ts.Before(b.StartedAt.Add(bucketSpan))
}
