// Package demo publishes synthetic swaps so the dashboard can be exercised without wallets.
// It runs only when enabled explicitly; nothing falls back to it.
package demo

import (
	"context"
	"fmt"
	"math/big"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/zamyatin-zkex/swapdash/internal/entity"
	"github.com/zamyatin-zkex/swapdash/pkg/amount"
)

type SwapStore interface {
	Store(ctx context.Context, swap entity.Swap) error
}

type Generator struct {
	tokens  []entity.Token
	chainID int
	every   time.Duration
	repo    SwapStore
	rnd     *rand.Rand
}

func NewGenerator(repo SwapStore, chainID int, tokens ...entity.Token) *Generator {
	return &Generator{
		repo:    repo,
		chainID: chainID,
		tokens:  tokens,
		every:   100 * time.Millisecond,
		rnd:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
}

func (g *Generator) WithInterval(every time.Duration) *Generator {
	g.every = every
	return g
}

func (g *Generator) Run(ctx context.Context) error {
	ticker := time.NewTicker(g.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, token := range g.tokens {
				swap, err := g.next(token)
				if err != nil {
					return err
				}
				if err := g.repo.Store(ctx, swap); err != nil {
					return fmt.Errorf("store demo swap: %w", err)
				}
			}
		}
	}
}

// next builds a swap of up to 200 whole tokens with random fractional digits.
func (g *Generator) next(token entity.Token) (entity.Swap, error) {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(token.Decimals)), nil)
	whole := new(big.Int).Mul(big.NewInt(g.rnd.Int64N(200)), scale)
	frac := new(big.Int).SetUint64(g.rnd.Uint64())
	frac.Mod(frac, scale)

	src, err := amount.FromBig(whole.Add(whole, frac), token.Decimals)
	if err != nil {
		return entity.Swap{}, err
	}

	return entity.Swap{
		ID:        uuid.New(),
		ChainID:   g.chainID,
		Src:       token,
		SrcAmount: src,
		Time:      time.Now(),
	}, nil
}
