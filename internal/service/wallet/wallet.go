// Package wallet turns the aggregator's minimal-unit answers into token amounts a person can
// read, and human input amounts into minimal units before they reach the aggregator.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zamyatin-zkex/swapdash/internal/entity"
	"github.com/zamyatin-zkex/swapdash/internal/oneinch"
	"github.com/zamyatin-zkex/swapdash/internal/repository"
	"github.com/zamyatin-zkex/swapdash/pkg/amount"
)

var ErrUnknownToken = errors.New("unknown token")

type Aggregator interface {
	Tokens(ctx context.Context, chainID int) (map[string]entity.Token, error)
	Balances(ctx context.Context, chainID int, wallet string) (map[string]string, error)
	Quote(ctx context.Context, chainID int, req oneinch.QuoteRequest) (entity.Quote, error)
	Swap(ctx context.Context, chainID int, req oneinch.SwapRequest) (oneinch.SwapResult, error)
	Allowance(ctx context.Context, chainID int, token, wallet string) (string, error)
	ApproveTransaction(ctx context.Context, chainID int, token, minimal string) (entity.Tx, error)
}

type TokenCache interface {
	Tokens(ctx context.Context, chainID int) (map[string]entity.Token, error)
	StoreTokens(ctx context.Context, chainID int, tokens map[string]entity.Token) error
}

type SwapStore interface {
	Store(ctx context.Context, swap entity.Swap) error
}

type Wallet struct {
	agg   Aggregator
	cache TokenCache
	swaps SwapStore
	log   *slog.Logger
	now   func() time.Time
}

func New(agg Aggregator, cache TokenCache, swaps SwapStore, log *slog.Logger) *Wallet {
	return &Wallet{
		agg:   agg,
		cache: cache,
		swaps: swaps,
		log:   log,
		now:   time.Now,
	}
}

// Tokens returns the chain's token list, keyed by lowercase address.
func (w *Wallet) Tokens(ctx context.Context, chainID int) (map[string]entity.Token, error) {
	tokens, err := w.cache.Tokens(ctx, chainID)
	if err == nil {
		return tokens, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		w.log.Warn("token cache read failed", "chain", chainID, "err", err)
	}

	tokens, err = w.agg.Tokens(ctx, chainID)
	if err != nil {
		return nil, err
	}

	if err := w.cache.StoreTokens(ctx, chainID, tokens); err != nil {
		w.log.Warn("token cache write failed", "chain", chainID, "err", err)
	}
	return tokens, nil
}

func (w *Wallet) Token(ctx context.Context, chainID int, address string) (entity.Token, error) {
	if err := oneinch.CheckAddress(address); err != nil {
		return entity.Token{}, err
	}

	tokens, err := w.Tokens(ctx, chainID)
	if err != nil {
		return entity.Token{}, err
	}

	token, ok := tokens[strings.ToLower(address)]
	if !ok {
		return entity.Token{}, fmt.Errorf("%w: %s on chain %d", ErrUnknownToken, address, chainID)
	}
	return token, nil
}

// Balances returns the wallet's balances of listed tokens ordered by symbol. Balances of tokens
// missing from the chain's token list are dropped.
func (w *Wallet) Balances(ctx context.Context, chainID int, wallet string) ([]entity.Balance, error) {
	raw, err := w.agg.Balances(ctx, chainID, wallet)
	if err != nil {
		return nil, err
	}
	tokens, err := w.Tokens(ctx, chainID)
	if err != nil {
		return nil, err
	}

	balances := make([]entity.Balance, 0, len(raw))
	for address, minimal := range raw {
		token, ok := tokens[address]
		if !ok {
			w.log.Debug("balance of unlisted token", "chain", chainID, "token", address)
			continue
		}

		value, err := amount.FromMinimal(minimal, token.Decimals)
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", token.Symbol, err)
		}
		balances = append(balances, entity.Balance{Token: token, Amount: value})
	}

	sort.Slice(balances, func(i, j int) bool {
		if balances[i].Token.Symbol != balances[j].Token.Symbol {
			return balances[i].Token.Symbol < balances[j].Token.Symbol
		}
		return balances[i].Token.Address < balances[j].Token.Address
	})
	return balances, nil
}

// Quote prices selling a human amount of src for dst, e.g. "1.5" USDC.
func (w *Wallet) Quote(ctx context.Context, chainID int, src, dst, human string) (entity.Quote, error) {
	req, err := w.quoteRequest(ctx, chainID, src, dst, human)
	if err != nil {
		return entity.Quote{}, err
	}
	return w.agg.Quote(ctx, chainID, req)
}

func (w *Wallet) quoteRequest(ctx context.Context, chainID int, src, dst, human string) (oneinch.QuoteRequest, error) {
	token, err := w.Token(ctx, chainID, src)
	if err != nil {
		return oneinch.QuoteRequest{}, err
	}
	if err := oneinch.CheckAddress(dst); err != nil {
		return oneinch.QuoteRequest{}, err
	}

	minimal, err := amount.ToMinimalUnits(human, int(token.Decimals))
	if err != nil {
		return oneinch.QuoteRequest{}, fmt.Errorf("amount %q: %w", human, err)
	}
	return oneinch.QuoteRequest{Src: token.Address, Dst: dst, Amount: minimal}, nil
}

type SwapInput struct {
	Src      string  `json:"src"`
	Dst      string  `json:"dst"`
	Amount   string  `json:"amount"`
	From     string  `json:"from"`
	Receiver string  `json:"receiver,omitempty"`
	Slippage float64 `json:"slippage"`
}

// BuildSwap builds the swap transaction for the wallet and publishes the resulting swap.
func (w *Wallet) BuildSwap(ctx context.Context, chainID int, in SwapInput) (entity.Swap, error) {
	req, err := w.quoteRequest(ctx, chainID, in.Src, in.Dst, in.Amount)
	if err != nil {
		return entity.Swap{}, err
	}

	res, err := w.agg.Swap(ctx, chainID, oneinch.SwapRequest{
		QuoteRequest: req,
		From:         in.From,
		Receiver:     in.Receiver,
		Slippage:     in.Slippage,
	})
	if err != nil {
		return entity.Swap{}, err
	}

	swap := entity.Swap{
		ID:        uuid.New(),
		ChainID:   chainID,
		Wallet:    strings.ToLower(in.From),
		Src:       res.Quote.Src,
		Dst:       res.Quote.Dst,
		SrcAmount: res.Quote.SrcAmount,
		DstAmount: res.Quote.DstAmount,
		Slippage:  in.Slippage,
		Tx:        res.Tx,
		Time:      w.now(),
	}

	if err := w.swaps.Store(ctx, swap); err != nil {
		return entity.Swap{}, fmt.Errorf("publish swap: %w", err)
	}
	return swap, nil
}

func (w *Wallet) Allowance(ctx context.Context, chainID int, token, wallet string) (entity.Allowance, error) {
	meta, err := w.Token(ctx, chainID, token)
	if err != nil {
		return entity.Allowance{}, err
	}

	minimal, err := w.agg.Allowance(ctx, chainID, meta.Address, wallet)
	if err != nil {
		return entity.Allowance{}, err
	}

	value, err := amount.FromMinimal(minimal, meta.Decimals)
	if err != nil {
		return entity.Allowance{}, err
	}
	return entity.Allowance{Token: meta, Wallet: strings.ToLower(wallet), Allowance: value}, nil
}

// Approve builds the approval of a human amount of token. An empty amount approves without limit.
func (w *Wallet) Approve(ctx context.Context, chainID int, token, human string) (entity.Tx, error) {
	meta, err := w.Token(ctx, chainID, token)
	if err != nil {
		return entity.Tx{}, err
	}

	minimal := ""
	if human != "" {
		if minimal, err = amount.ToMinimalUnits(human, int(meta.Decimals)); err != nil {
			return entity.Tx{}, fmt.Errorf("amount %q: %w", human, err)
		}
	}
	return w.agg.ApproveTransaction(ctx, chainID, meta.Address, minimal)
}
