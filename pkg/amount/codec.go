// Package amount converts token quantities between the human decimal notation users type
// ("1.2345") and the minimal-unit integer notation used on chain and by the aggregator API
// (wei for 18-decimal tokens). All arithmetic is arbitrary precision.
package amount

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxExponent bounds the decimal exponent. ERC-20 decimals are a uint8.
const MaxExponent = 255

// ErrInvalidFormat is returned for inputs that are not plain unsigned numeric strings.
var ErrInvalidFormat = errors.New("invalid amount format")

var (
	humanPattern   = regexp.MustCompile(`^\d+(\.\d*)?$`)
	minimalPattern = regexp.MustCompile(`^\d+$`)
)

// ToMinimalUnits converts a human decimal string into a minimal-unit integer string.
// Fraction digits beyond exponent are truncated, not rounded.
func ToMinimalUnits(human string, exponent int) (string, error) {
	value, err := parseHuman(human, exponent)
	if err != nil {
		return "", err
	}

	return value.String(), nil
}

// ToDecimalString renders a minimal-unit integer string as a human decimal string
// without trailing fraction zeros.
func ToDecimalString(minimal string, exponent int) (string, error) {
	value, err := parseMinimal(minimal, exponent)
	if err != nil {
		return "", err
	}

	return format(value, exponent), nil
}

func parseHuman(human string, exponent int) (*big.Int, error) {
	if err := checkExponent(exponent); err != nil {
		return nil, err
	}
	if !humanPattern.MatchString(human) {
		return nil, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidFormat, human)
	}

	d, err := decimal.NewFromString(strings.TrimSuffix(human, "."))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, err)
	}

	// BigInt rescales to exponent 0 with a truncating division.
	return d.Shift(int32(exponent)).BigInt(), nil
}

func parseMinimal(minimal string, exponent int) (*big.Int, error) {
	if err := checkExponent(exponent); err != nil {
		return nil, err
	}
	if !minimalPattern.MatchString(minimal) {
		return nil, fmt.Errorf("%w: %q is not an unsigned integer", ErrInvalidFormat, minimal)
	}

	value, ok := new(big.Int).SetString(minimal, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an unsigned integer", ErrInvalidFormat, minimal)
	}

	return value, nil
}

func format(value *big.Int, exponent int) string {
	return decimal.NewFromBigInt(value, -int32(exponent)).String()
}

func checkExponent(exponent int) error {
	if exponent < 0 || exponent > MaxExponent {
		return fmt.Errorf("%w: exponent %d out of range [0, %d]", ErrInvalidFormat, exponent, MaxExponent)
	}
	return nil
}
