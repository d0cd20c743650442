package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/zamyatin-zkex/swapdash/pkg/ringbuf"
)

// State is a snapshot of the rolling swap volumes, one entry per token symbol.
type State struct {
	Volumes map[string]Volume
	Offset  int64
}

type Volume struct {
	Symbol   string
	Periods  map[string]time.Duration
	Buckets  *ringbuf.Ring[Bucket]
	RollSums map[string]decimal.Decimal
	Offset   int64
}

type Bucket struct {
	StartedAt time.Time
	Volume    decimal.Decimal
}

// PricePoint is one spot price observation of a token.
type PricePoint struct {
	Token string          `json:"token"`
	Price decimal.Decimal `json:"price"`
	Time  time.Time       `json:"time"`
}
