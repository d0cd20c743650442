package oneinch

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "USD"

// SpotPrices returns the price of each token in currency, keyed by lowercase address. Tokens
// the upstream does not price are absent from the result.
func (c *Client) SpotPrices(ctx context.Context, chainID int, tokens []string, currency string) (map[string]decimal.Decimal, error) {
	if err := CheckChain(chainID); err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return map[string]decimal.Decimal{}, nil
	}
	for _, token := range tokens {
		if err := CheckAddress(token); err != nil {
			return nil, err
		}
	}
	if currency == "" {
		currency = DefaultCurrency
	}

	body := struct {
		Tokens   []string `json:"tokens"`
		Currency string   `json:"currency"`
	}{Tokens: tokens, Currency: strings.ToUpper(currency)}

	resp, err := call[map[string]string](ctx, c, http.MethodPost, fmt.Sprintf("/price/v1.1/%d", chainID), nil, body)
	if err != nil {
		return nil, fmt.Errorf("spot prices: %w", err)
	}

	prices := make(map[string]decimal.Decimal, len(resp))
	for token, raw := range resp {
		price, err := decimal.NewFromString(raw)
		if err != nil || price.IsNegative() {
			return nil, fmt.Errorf("%w: price of %s: %q", ErrInvalidResponse, token, raw)
		}
		prices[normalize(token)] = price
	}
	return prices, nil
}
