package oneinch

import (
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

type Chain struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Native string `json:"native"`
}

var chains = []Chain{
	{ID: 1, Name: "Ethereum", Native: "ETH"},
	{ID: 56, Name: "BNB Chain", Native: "BNB"},
	{ID: 137, Name: "Polygon", Native: "POL"},
	{ID: 10, Name: "Optimism", Native: "ETH"},
	{ID: 42161, Name: "Arbitrum", Native: "ETH"},
	{ID: 59144, Name: "Linea", Native: "ETH"},
}

// Chains lists the chains the aggregator serves.
func Chains() []Chain {
	return slices.Clone(chains)
}

func IsSupported(chainID int) bool {
	return slices.ContainsFunc(chains, func(c Chain) bool { return c.ID == chainID })
}

func CheckChain(chainID int) error {
	if !IsSupported(chainID) {
		return fmt.Errorf("%w: %d", ErrUnsupportedChain, chainID)
	}
	return nil
}

func CheckAddress(addr string) error {
	if !common.IsHexAddress(addr) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return nil
}
