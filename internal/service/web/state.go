package web

import (
	"sync"

	"github.com/shopspring/decimal"
)

type state struct {
	volumes map[string]map[string]decimal.Decimal // symbol -> period -> volume
	mx      sync.RWMutex
}

func newState() *state {
	return &state{
		volumes: make(map[string]map[string]decimal.Decimal),
	}
}

func (s *state) update(volumes map[string]map[string]decimal.Decimal) {
	s.mx.Lock()
	defer s.mx.Unlock()

	s.volumes = volumes
}

func (s *state) get(symbol string) (map[string]decimal.Decimal, bool) {
	s.mx.RLock()
	defer s.mx.RUnlock()

	v, ok := s.volumes[symbol]
	return v, ok
}
