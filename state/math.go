package state

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

const PrecisionDecimals = 18

// Precision is the fixed point base for asset ratios.
var Precision = uint256.NewInt(1_000_000_000_000_000_000)

func pow10(n uint8) *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(n)))
}

func mulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrOverflow
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

func mulDivUp(x, y, d *uint256.Int) (*uint256.Int, error) {
	z, err := mulDiv(x, y, d)
	if err != nil {
		return nil, err
	}
	if !new(uint256.Int).MulMod(x, y, d).IsZero() {
		if z.Eq(maxUint256) {
			return nil, ErrOverflow
		}
		z.AddUint64(z, 1)
	}
	return z, nil
}

var maxUint256 = new(uint256.Int).SetAllOne()

func mul(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

func add(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// CollateralToToken converts an asset amount into token base units at the
// given ratio, rounding down.
//
//	amount * ratio * 10^tokenDecimals / (Precision * 10^assetDecimals)
func CollateralToToken(amount, ratio *uint256.Int, assetDecimals, tokenDecimals uint8) (*uint256.Int, error) {
	if tokenDecimals >= assetDecimals {
		r, err := mul(ratio, pow10(tokenDecimals-assetDecimals))
		if err != nil {
			return nil, err
		}
		return mulDiv(amount, r, Precision)
	}
	d, err := mul(Precision, pow10(assetDecimals-tokenDecimals))
	if err != nil {
		return nil, err
	}
	return mulDiv(amount, ratio, d)
}

// TokenToCollateral is the inverse of CollateralToToken and rounds up, so the
// ledger never undercounts what a minted amount needs.
func TokenToCollateral(amount, ratio *uint256.Int, assetDecimals, tokenDecimals uint8) (*uint256.Int, error) {
	if ratio.IsZero() {
		return nil, ErrRatioNotSet
	}
	if assetDecimals >= tokenDecimals {
		n, err := mul(Precision, pow10(assetDecimals-tokenDecimals))
		if err != nil {
			return nil, err
		}
		return mulDivUp(amount, n, ratio)
	}
	d, err := mul(ratio, pow10(tokenDecimals-assetDecimals))
	if err != nil {
		return nil, err
	}
	return mulDivUp(amount, Precision, d)
}

// ParseUnits parses a decimal string such as "1.5" into base units with the
// given number of decimals.
func ParseUnits(s string, decimals uint8) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	whole, frac, found := strings.Cut(s, ".")
	if found && len(frac) > int(decimals) {
		return nil, fmt.Errorf("amount %s has more than %d decimals", s, decimals)
	}
	if whole == "" {
		whole = "0"
	}
	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(digits)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %s: %w", s, err)
	}
	return v, nil
}

// FormatUnits renders base units as a decimal string, trimming trailing zeros.
func FormatUnits(v *uint256.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	s := v.Dec()
	if decimals == 0 {
		return s
	}
	if len(s) <= int(decimals) {
		s = strings.Repeat("0", int(decimals)-len(s)+1) + s
	}
	whole, frac := s[:len(s)-int(decimals)], strings.TrimRight(s[len(s)-int(decimals):], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// ParseRatio accepts a plain number of tokens per whole asset ("2000",
// "0.25") and returns it scaled by Precision.
func ParseRatio(s string) (*uint256.Int, error) {
	r, err := ParseUnits(s, PrecisionDecimals)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRatio, err)
	}
	if r.IsZero() {
		return nil, ErrInvalidRatio
	}
	return r, nil
}

func FormatRatio(r *uint256.Int) string {
	return FormatUnits(r, PrecisionDecimals)
}
