package oneinch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/zamyatin-zkex/swapdash/pkg/amount"
)

// Balances returns the wallet's non-zero token balances in minimal units, keyed by lowercase
// token address.
func (c *Client) Balances(ctx context.Context, chainID int, wallet string) (map[string]string, error) {
	if err := CheckChain(chainID); err != nil {
		return nil, err
	}
	if err := CheckAddress(wallet); err != nil {
		return nil, err
	}

	resp, err := call[map[string]map[string]string](ctx, c, http.MethodGet,
		fmt.Sprintf("/balance/v1.2/%d", chainID), url.Values{"addresses": {wallet}}, nil)
	if err != nil {
		return nil, fmt.Errorf("balances: %w", err)
	}

	balances := make(map[string]string)
	for token, raw := range resp[normalize(wallet)] {
		value, err := amount.FromMinimal(raw, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: balance of %s: %w", ErrInvalidResponse, token, err)
		}
		if value.IsZero() {
			continue
		}
		balances[normalize(token)] = value.Minimal()
	}
	return balances, nil
}

func normalize(addr string) string {
	return strings.ToLower(addr)
}
