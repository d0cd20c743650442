package entity

import (
	"strings"

	"github.com/zamyatin-zkex/swapdash/pkg/amount"
)

// NativeToken is the placeholder address the aggregator uses for the chain's gas coin.
const NativeToken = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
	LogoURI  string `json:"logoURI,omitempty"`
}

func (t Token) IsNative() bool {
	return strings.EqualFold(t.Address, NativeToken)
}

type Balance struct {
	Token  Token         `json:"token"`
	Amount amount.Amount `json:"amount"`
}

type Quote struct {
	ChainID   int           `json:"chainId"`
	Src       Token         `json:"src"`
	Dst       Token         `json:"dst"`
	SrcAmount amount.Amount `json:"srcAmount"`
	DstAmount amount.Amount `json:"dstAmount"`
	Gas       uint64        `json:"gas,omitempty"`
}

type Allowance struct {
	Token     Token         `json:"token"`
	Wallet    string        `json:"wallet"`
	Allowance amount.Amount `json:"allowance"`
}
