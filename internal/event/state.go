package event

import (
	"github.com/shopspring/decimal"
	"github.com/zamyatin-zkex/swapdash/internal/entity"
)

type StateSaved struct {
	Offset int64
	Tokens int
}

type StateRestored struct {
	Offset int64
	Tokens int
}

// VolumeUpdated carries rolling volumes: symbol -> period -> volume in human units.
type VolumeUpdated struct {
	Volumes map[string]map[string]decimal.Decimal
}

type PricesUpdated struct {
	ChainID  int
	Currency string
	Prices   []entity.PricePoint
}
