package tracker

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zamyatin-zkex/swapdash/internal/entity"
	"github.com/zamyatin-zkex/swapdash/internal/event"
	"github.com/zamyatin-zkex/swapdash/pkg/ringbuf"
)

type PriceSource interface {
	SpotPrices(ctx context.Context, chainID int, tokens []string, currency string) (map[string]decimal.Decimal, error)
}

// Prices keeps the recent spot price history of a fixed token set on one chain.
type Prices struct {
	source   PriceSource
	chainID  int
	currency string
	tokens   []string
	size     int

	mx      sync.RWMutex
	history map[string]*ringbuf.Ring[entity.PricePoint]
	now     func() time.Time
}

func NewPrices(source PriceSource, chainID int, currency string, history int, tokens ...string) *Prices {
	normalized := make([]string, 0, len(tokens))
	for _, token := range tokens {
		normalized = append(normalized, strings.ToLower(token))
	}

	return &Prices{
		source:   source,
		chainID:  chainID,
		currency: currency,
		tokens:   normalized,
		size:     history,
		history:  make(map[string]*ringbuf.Ring[entity.PricePoint]),
		now:      time.Now,
	}
}

func (p *Prices) ChainID() int {
	return p.chainID
}

func (p *Prices) Tokens() []string {
	return slices.Clone(p.tokens)
}

// Poll fetches current prices, records them and returns a PricesUpdated event.
func (p *Prices) Poll(ctx context.Context) (any, error) {
	if len(p.tokens) == 0 {
		return event.PricesUpdated{ChainID: p.chainID, Currency: p.currency}, nil
	}

	prices, err := p.source.SpotPrices(ctx, p.chainID, p.tokens, p.currency)
	if err != nil {
		return nil, fmt.Errorf("poll prices: %w", err)
	}

	now := p.now()
	points := make([]entity.PricePoint, 0, len(prices))

	p.mx.Lock()
	for _, token := range p.tokens {
		price, ok := prices[token]
		if !ok {
			continue
		}
		point := entity.PricePoint{Token: token, Price: price, Time: now}

		ring, ok := p.history[token]
		if !ok {
			ring = ringbuf.New[entity.PricePoint](p.size)
			p.history[token] = ring
		}
		ring.PushFront(point)
		points = append(points, point)
	}
	p.mx.Unlock()

	return event.PricesUpdated{ChainID: p.chainID, Currency: p.currency, Prices: points}, nil
}

// History returns up to n observations of token, newest first.
func (p *Prices) History(token string, n int) []entity.PricePoint {
	p.mx.RLock()
	defer p.mx.RUnlock()

	ring, ok := p.history[strings.ToLower(token)]
	if !ok {
		return nil
	}
	return ring.Newest(n)
}

// Latest returns the newest observation of every token that has one.
func (p *Prices) Latest() []entity.PricePoint {
	p.mx.RLock()
	defer p.mx.RUnlock()

	latest := make([]entity.PricePoint, 0, len(p.history))
	for _, token := range p.tokens {
		if ring, ok := p.history[token]; ok {
			latest = append(latest, ring.GetN(0))
		}
	}
	return latest
}

// Change returns the relative change between the oldest and newest recorded price of token.
func (p *Prices) Change(token string) (decimal.Decimal, bool) {
	points := p.History(token, p.size)
	if len(points) < 2 {
		return decimal.Zero, false
	}
	newest, oldest := points[0].Price, points[len(points)-1].Price
	if oldest.IsZero() {
		return decimal.Zero, false
	}
	return newest.Sub(oldest).Div(oldest), true
}
