package state

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollateralToToken(t *testing.T) {
	require := require.New(t)

	ratio, err := ParseRatio("2000")
	require.NoError(err)

	// 1.5 units of an 18 decimal asset at 2000 mints 3000 KHRT with 6 decimals.
	minted, err := CollateralToToken(dec(t, "1500000000000000000"), ratio, 18, 6)
	require.NoError(err)
	require.Equal("3000000000", minted.Dec())

	one, err := ParseRatio("1")
	require.NoError(err)
	minted, err = CollateralToToken(u(1_000_000_000), one, 6, 6)
	require.NoError(err)
	require.Equal("1000000000", minted.Dec())

	// dust floors to zero
	minted, err = CollateralToToken(u(1), ratio, 18, 6)
	require.NoError(err)
	require.True(minted.IsZero())

	// token with more decimals than the asset
	minted, err = CollateralToToken(u(3), ratio, 2, 6)
	require.NoError(err)
	require.Equal("60000000", minted.Dec())
}

func TestTokenToCollateralRoundsUp(t *testing.T) {
	require := require.New(t)

	ratio, err := ParseRatio("2000")
	require.NoError(err)

	need, err := TokenToCollateral(u(1_000_000), ratio, 18, 6)
	require.NoError(err)
	require.Equal("500000000000000", need.Dec())

	need, err = TokenToCollateral(u(1), ratio, 18, 6)
	require.NoError(err)
	require.Equal("500000000", need.Dec())

	three, err := ParseRatio("3")
	require.NoError(err)
	need, err = TokenToCollateral(u(1), three, 18, 6)
	require.NoError(err)
	require.Equal("333333333334", need.Dec())

	back, err := CollateralToToken(need, three, 18, 6)
	require.NoError(err)
	require.Equal("1", back.Dec())

	_, err = TokenToCollateral(u(1), u(0), 18, 6)
	require.ErrorIs(err, ErrRatioNotSet)
}

func TestParseUnits(t *testing.T) {
	require := require.New(t)

	v, err := ParseUnits("1.5", 18)
	require.NoError(err)
	require.Equal("1500000000000000000", v.Dec())

	v, err = ParseUnits("42", 6)
	require.NoError(err)
	require.Equal("42000000", v.Dec())

	v, err = ParseUnits(".25", 2)
	require.NoError(err)
	require.Equal("25", v.Dec())

	v, err = ParseUnits("0", 6)
	require.NoError(err)
	require.True(v.IsZero())

	_, err = ParseUnits("1.1234567", 6)
	require.Error(err)
	_, err = ParseUnits("abc", 6)
	require.Error(err)
	_, err = ParseUnits("", 6)
	require.Error(err)

	require.Equal("1.5", FormatUnits(dec(t, "1500000000000000000"), 18))
	require.Equal("0.000001", FormatUnits(u(1), 6))
	require.Equal("3000", FormatUnits(u(3_000_000_000), 6))
	require.Equal("7", FormatUnits(u(7), 0))
}

func TestParseRatio(t *testing.T) {
	require := require.New(t)

	r, err := ParseRatio("0.25")
	require.NoError(err)
	require.Equal("250000000000000000", r.Dec())
	require.Equal("0.25", FormatRatio(r))

	_, err = ParseRatio("0")
	require.ErrorIs(err, ErrInvalidRatio)
	_, err = ParseRatio("-1")
	require.ErrorIs(err, ErrInvalidRatio)
}
