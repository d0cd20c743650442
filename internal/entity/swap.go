package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/zamyatin-zkex/swapdash/pkg/amount"
)

type Tx struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	GasPrice string `json:"gasPrice"`
	Gas      uint64 `json:"gas"`
}

// Swap is a swap transaction built for a wallet. It is published once built; signing and
// broadcasting happen in the wallet itself.
type Swap struct {
	ID        uuid.UUID     `json:"id"`
	ChainID   int           `json:"chainId"`
	Wallet    string        `json:"wallet"`
	Src       Token         `json:"src"`
	Dst       Token         `json:"dst"`
	SrcAmount amount.Amount `json:"srcAmount"`
	DstAmount amount.Amount `json:"dstAmount"`
	Slippage  float64       `json:"slippage"`
	Tx        Tx            `json:"tx"`
	Time      time.Time     `json:"time"`
}
