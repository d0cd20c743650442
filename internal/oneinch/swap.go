package oneinch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/zamyatin-zkex/swapdash/internal/entity"
	"github.com/zamyatin-zkex/swapdash/pkg/amount"
)

const swapAPI = "/swap/v6.1"

// MaxSlippage is the upper bound of the slippage percentage the router accepts.
const MaxSlippage = 50

type TokenInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
	LogoURI  string `json:"logoURI"`
}

func (t TokenInfo) entity() (entity.Token, error) {
	if err := CheckAddress(t.Address); err != nil {
		return entity.Token{}, fmt.Errorf("%w: token %w", ErrInvalidResponse, err)
	}
	if t.Decimals < 0 || t.Decimals > amount.MaxExponent {
		return entity.Token{}, fmt.Errorf("%w: token %s decimals %d", ErrInvalidResponse, t.Address, t.Decimals)
	}
	return entity.Token{
		Address:  t.Address,
		Symbol:   t.Symbol,
		Name:     t.Name,
		Decimals: uint8(t.Decimals),
		LogoURI:  t.LogoURI,
	}, nil
}

type QuoteRequest struct {
	Src string
	Dst string
	// Amount of Src in minimal units.
	Amount string
}

func (r QuoteRequest) validate() error {
	if err := CheckAddress(r.Src); err != nil {
		return fmt.Errorf("src: %w", err)
	}
	if err := CheckAddress(r.Dst); err != nil {
		return fmt.Errorf("dst: %w", err)
	}
	if _, err := amount.FromMinimal(r.Amount, 0); err != nil {
		return fmt.Errorf("%w: amount: %w", ErrInvalidRequest, err)
	}
	return nil
}

func (r QuoteRequest) query() url.Values {
	return url.Values{
		"src":               {r.Src},
		"dst":               {r.Dst},
		"amount":            {r.Amount},
		"includeTokensInfo": {"true"},
		"includeGas":        {"true"},
	}
}

type SwapRequest struct {
	QuoteRequest
	From     string
	Origin   string
	Receiver string
	// Slippage in percent, 0..MaxSlippage.
	Slippage        float64
	DisableEstimate bool
}

func (r SwapRequest) validate() error {
	if err := r.QuoteRequest.validate(); err != nil {
		return err
	}
	if err := CheckAddress(r.From); err != nil {
		return fmt.Errorf("from: %w", err)
	}
	if r.Origin != "" {
		if err := CheckAddress(r.Origin); err != nil {
			return fmt.Errorf("origin: %w", err)
		}
	}
	if r.Receiver != "" {
		if err := CheckAddress(r.Receiver); err != nil {
			return fmt.Errorf("receiver: %w", err)
		}
	}
	if r.Slippage < 0 || r.Slippage > MaxSlippage {
		return fmt.Errorf("%w: slippage %v out of [0, %d]", ErrInvalidRequest, r.Slippage, MaxSlippage)
	}
	return nil
}

func (r SwapRequest) query() url.Values {
	q := r.QuoteRequest.query()
	q.Set("from", r.From)
	q.Set("origin", r.From)
	if r.Origin != "" {
		q.Set("origin", r.Origin)
	}
	if r.Receiver != "" {
		q.Set("receiver", r.Receiver)
	}
	q.Set("slippage", strconv.FormatFloat(r.Slippage, 'f', -1, 64))
	if r.DisableEstimate {
		q.Set("disableEstimate", "true")
	}
	return q
}

type quoteResponse struct {
	SrcToken  *TokenInfo `json:"srcToken"`
	DstToken  *TokenInfo `json:"dstToken"`
	DstAmount string     `json:"dstAmount"`
	Gas       uint64     `json:"gas"`
}

func (r quoteResponse) quote(chainID int, srcAmount string) (entity.Quote, error) {
	if r.SrcToken == nil || r.DstToken == nil {
		return entity.Quote{}, fmt.Errorf("%w: quote without token info", ErrInvalidResponse)
	}
	src, err := r.SrcToken.entity()
	if err != nil {
		return entity.Quote{}, err
	}
	dst, err := r.DstToken.entity()
	if err != nil {
		return entity.Quote{}, err
	}

	srcAmt, err := amount.FromMinimal(srcAmount, src.Decimals)
	if err != nil {
		return entity.Quote{}, fmt.Errorf("%w: src amount: %w", ErrInvalidRequest, err)
	}
	dstAmt, err := amount.FromMinimal(r.DstAmount, dst.Decimals)
	if err != nil {
		return entity.Quote{}, fmt.Errorf("%w: dst amount: %w", ErrInvalidResponse, err)
	}

	return entity.Quote{
		ChainID:   chainID,
		Src:       src,
		Dst:       dst,
		SrcAmount: srcAmt,
		DstAmount: dstAmt,
		Gas:       r.Gas,
	}, nil
}

type txResponse struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	GasPrice string `json:"gasPrice"`
	Gas      uint64 `json:"gas"`
}

func (t txResponse) entity() (entity.Tx, error) {
	if err := CheckAddress(t.To); err != nil {
		return entity.Tx{}, fmt.Errorf("%w: tx to: %w", ErrInvalidResponse, err)
	}
	if _, err := amount.FromMinimal(t.Value, 0); err != nil {
		return entity.Tx{}, fmt.Errorf("%w: tx value: %w", ErrInvalidResponse, err)
	}
	return entity.Tx(t), nil
}

type swapResponse struct {
	quoteResponse
	Tx txResponse `json:"tx"`
}

// SwapResult is a quote together with the transaction that executes it.
type SwapResult struct {
	Quote entity.Quote
	Tx    entity.Tx
}

// Tokens returns the tokens the router can swap on the chain, keyed by lowercase address.
func (c *Client) Tokens(ctx context.Context, chainID int) (map[string]entity.Token, error) {
	if err := CheckChain(chainID); err != nil {
		return nil, err
	}

	resp, err := call[struct {
		Tokens map[string]TokenInfo `json:"tokens"`
	}](ctx, c, http.MethodGet, fmt.Sprintf("%s/%d/tokens", swapAPI, chainID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("tokens: %w", err)
	}

	tokens := make(map[string]entity.Token, len(resp.Tokens))
	for _, info := range resp.Tokens {
		token, err := info.entity()
		if err != nil {
			return nil, fmt.Errorf("tokens: %w", err)
		}
		tokens[normalize(token.Address)] = token
	}
	return tokens, nil
}

func (c *Client) Quote(ctx context.Context, chainID int, req QuoteRequest) (entity.Quote, error) {
	if err := CheckChain(chainID); err != nil {
		return entity.Quote{}, err
	}
	if err := req.validate(); err != nil {
		return entity.Quote{}, err
	}

	resp, err := call[quoteResponse](ctx, c, http.MethodGet, fmt.Sprintf("%s/%d/quote", swapAPI, chainID), req.query(), nil)
	if err != nil {
		return entity.Quote{}, fmt.Errorf("quote: %w", err)
	}
	return resp.quote(chainID, req.Amount)
}

func (c *Client) Swap(ctx context.Context, chainID int, req SwapRequest) (SwapResult, error) {
	if err := CheckChain(chainID); err != nil {
		return SwapResult{}, err
	}
	if err := req.validate(); err != nil {
		return SwapResult{}, err
	}

	resp, err := call[swapResponse](ctx, c, http.MethodGet, fmt.Sprintf("%s/%d/swap", swapAPI, chainID), req.query(), nil)
	if err != nil {
		return SwapResult{}, fmt.Errorf("swap: %w", err)
	}

	quote, err := resp.quote(chainID, req.Amount)
	if err != nil {
		return SwapResult{}, err
	}
	tx, err := resp.Tx.entity()
	if err != nil {
		return SwapResult{}, err
	}
	return SwapResult{Quote: quote, Tx: tx}, nil
}

// Allowance returns how much of token the router may spend from wallet, in minimal units.
func (c *Client) Allowance(ctx context.Context, chainID int, token, wallet string) (string, error) {
	if err := CheckChain(chainID); err != nil {
		return "", err
	}
	if err := CheckAddress(token); err != nil {
		return "", err
	}
	if err := CheckAddress(wallet); err != nil {
		return "", err
	}

	resp, err := call[struct {
		Allowance string `json:"allowance"`
	}](ctx, c, http.MethodGet, fmt.Sprintf("%s/%d/approve/allowance", swapAPI, chainID), url.Values{
		"tokenAddress":  {token},
		"walletAddress": {wallet},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("allowance: %w", err)
	}

	if _, err := amount.FromMinimal(resp.Allowance, 0); err != nil {
		return "", fmt.Errorf("%w: allowance: %w", ErrInvalidResponse, err)
	}
	return resp.Allowance, nil
}

// ApproveTransaction builds the approval of token for the router. An empty amount approves an
// unlimited allowance.
func (c *Client) ApproveTransaction(ctx context.Context, chainID int, token, minimal string) (entity.Tx, error) {
	if err := CheckChain(chainID); err != nil {
		return entity.Tx{}, err
	}
	if err := CheckAddress(token); err != nil {
		return entity.Tx{}, err
	}

	query := url.Values{"tokenAddress": {token}}
	if minimal != "" {
		if _, err := amount.FromMinimal(minimal, 0); err != nil {
			return entity.Tx{}, fmt.Errorf("%w: amount: %w", ErrInvalidRequest, err)
		}
		query.Set("amount", minimal)
	}

	resp, err := call[txResponse](ctx, c, http.MethodGet, fmt.Sprintf("%s/%d/approve/transaction", swapAPI, chainID), query, nil)
	if err != nil {
		return entity.Tx{}, fmt.Errorf("approve transaction: %w", err)
	}
	return resp.entity()
}
