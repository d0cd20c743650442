package amount

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// Amount is an immutable token quantity: a non-negative minimal-unit integer and the
// token's decimal exponent. The zero value is zero of a 0-decimal token.
type Amount struct {
	raw      *big.Int
	decimals uint8
}

// Parse builds an Amount from human input such as "0.5".
func Parse(human string, decimals uint8) (Amount, error) {
	value, err := parseHuman(human, int(decimals))
	if err != nil {
		return Amount{}, err
	}
	return Amount{raw: value, decimals: decimals}, nil
}

// FromMinimal builds an Amount from a minimal-unit digit string as returned by the API.
func FromMinimal(raw string, decimals uint8) (Amount, error) {
	value, err := parseMinimal(raw, int(decimals))
	if err != nil {
		return Amount{}, err
	}
	return Amount{raw: value, decimals: decimals}, nil
}

// FromBig copies v into a new Amount.
func FromBig(v *big.Int, decimals uint8) (Amount, error) {
	if v == nil || v.Sign() < 0 {
		return Amount{}, fmt.Errorf("%w: negative or nil value", ErrInvalidFormat)
	}
	return Amount{raw: new(big.Int).Set(v), decimals: decimals}, nil
}

// FromHexQuantity decodes a JSON-RPC quantity ("0x1bc16d674ec80000").
func FromHexQuantity(quantity string, decimals uint8) (Amount, error) {
	value, err := hexutil.DecodeBig(quantity)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %s", ErrInvalidFormat, err)
	}
	return Amount{raw: value, decimals: decimals}, nil
}

func (a Amount) value() *big.Int {
	if a.raw == nil {
		return new(big.Int)
	}
	return a.raw
}

// Decimals returns the token exponent.
func (a Amount) Decimals() uint8 {
	return a.decimals
}

// Minimal returns the minimal-unit integer string.
func (a Amount) Minimal() string {
	return a.value().String()
}

// Big returns a copy of the minimal-unit value.
func (a Amount) Big() *big.Int {
	return new(big.Int).Set(a.value())
}

// String returns the human form, e.g. "1.5".
func (a Amount) String() string {
	return format(a.value(), int(a.decimals))
}

// Decimal returns the human value as a decimal.Decimal.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(a.value(), -int32(a.decimals))
}

func (a Amount) IsZero() bool {
	return a.value().Sign() == 0
}

type amountJSON struct {
	Raw       string `json:"raw"`
	Decimals  uint8  `json:"decimals"`
	Formatted string `json:"formatted,omitempty"`
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(amountJSON{
		Raw:       a.Minimal(),
		Decimals:  a.decimals,
		Formatted: a.String(),
	})
}

// UnmarshalJSON trusts only raw and decimals; formatted is recomputed.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var js amountJSON
	if err := json.Unmarshal(data, &js); err != nil {
		return fmt.Errorf("unmarshal amount: %w", err)
	}

	parsed, err := FromMinimal(js.Raw, js.Decimals)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
