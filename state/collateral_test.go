package state

import (
	"math/rand"
	"testing"

	"github.com/calehh/khrt-app/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestDepositWithdrawOneToOne(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	l := st.Collateral()

	st.TakeEvents()
	minted, err := l.Deposit(user, asset6, u(1_000_000_000))
	require.NoError(err)
	require.Equal("1000000000", minted.Dec())
	require.Equal(
		[]string{types.EventAssetTransferType, types.EventMintedType, types.EventCollateralDepositedType},
		eventTypes(st),
	)
	require.True(st.Bank().BalanceOf(asset6, user).IsZero())
	require.Equal("1000000000", st.Bank().BalanceOf(asset6, collateralAddr).Dec())
	require.Equal("1000000000", st.Token().BalanceOf(user).Dec())
	require.Equal("1000000000", l.TotalCollateral(asset6).Dec())

	released, err := l.Withdraw(user, asset6, u(1_000_000_000))
	require.NoError(err)
	require.Equal("1000000000", released.Dec())
	require.Equal("1000000000", st.Bank().BalanceOf(asset6, user).Dec())
	require.True(st.Token().TotalSupply().IsZero())
	require.True(l.TotalCollateral(asset6).IsZero())

	pos := l.Position(user, asset6)
	require.True(pos.Balance.IsZero())
	require.True(pos.Minted.IsZero())
	require.Empty(l.Positions(user))
}

func TestDepositEighteenDecimals(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	l := st.Collateral()

	minted, err := l.Deposit(user, asset18, dec(t, "1500000000000000000"))
	require.NoError(err)
	require.Equal("3000000000", minted.Dec())

	need, err := l.CollateralRequired(asset18, u(1))
	require.NoError(err)
	require.Equal("500000000", need.Dec())

	preview, err := l.MintAmount(asset18, dec(t, "1000000000000000000"))
	require.NoError(err)
	require.Equal("2000000000", preview.Dec())

	pos := l.Position(user, asset18)
	require.Equal("1500000000000000000", pos.Balance.Dec())
	require.Equal("3000000000", pos.Minted.Dec())
	require.Equal("10000", pos.RatioBasisPoints.Dec())
	require.True(pos.MaxWithdrawableKHRT.IsZero())
}

func TestPartialWithdraw(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	l := st.Collateral()

	_, err := l.Deposit(user, asset18, dec(t, "1500000000000000000"))
	require.NoError(err)

	out, err := l.Withdraw(user, asset18, u(1_000_000_000))
	require.NoError(err)
	require.Equal("500000000000000000", out.Dec())

	pos := l.Position(user, asset18)
	require.Equal("1000000000000000000", pos.Balance.Dec())
	require.Equal("2000000000", pos.Minted.Dec())

	_, err = l.Withdraw(user, asset18, u(2_000_000_001))
	require.ErrorIs(err, ErrInsufficientMinted)
}

func TestWithdrawBelowRatio(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	l := st.Collateral()

	_, err := l.Deposit(user, asset18, dec(t, "1500000000000000000"))
	require.NoError(err)

	// the asset halves in value
	half, err := ParseRatio("1000")
	require.NoError(err)
	require.NoError(l.SetAssetRatio(councilAddr, asset18, half))

	pos := l.Position(user, asset18)
	require.Equal("5000", pos.RatioBasisPoints.Dec())

	_, err = l.Withdraw(user, asset18, u(1_000_000_000))
	require.ErrorIs(err, ErrWouldViolateMinimumRatio)

	// repaying everything still releases the whole position
	out, err := l.Withdraw(user, asset18, u(3_000_000_000))
	require.NoError(err)
	require.Equal("1500000000000000000", out.Dec())
	require.Equal("10000000000000000000", st.Bank().BalanceOf(asset18, user).Dec())
}

func TestOverCollateralizedPosition(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	l := st.Collateral()

	_, err := l.Deposit(user, asset18, dec(t, "1500000000000000000"))
	require.NoError(err)

	double, err := ParseRatio("4000")
	require.NoError(err)
	require.NoError(l.SetAssetRatio(councilAddr, asset18, double))

	pos := l.Position(user, asset18)
	require.Equal("20000", pos.RatioBasisPoints.Dec())
	require.Equal("3000000000", pos.MaxWithdrawableKHRT.Dec())
}

func TestDepositRejections(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	l := st.Collateral()

	_, err := l.Deposit(user, asset18, u(0))
	require.ErrorIs(err, ErrZeroAmount)

	_, err = l.Deposit(user, assetNR, u(10))
	require.ErrorIs(err, ErrRatioNotSet)

	_, err = l.Deposit(user, asset18, u(1))
	require.ErrorIs(err, ErrBelowMinimumMint)

	_, err = l.Deposit(user, asset18, dec(t, "20000000000000000000"))
	require.ErrorIs(err, ErrInsufficientBalance)

	require.NoError(st.Token().UpdateCollateralWhitelist(councilAddr, asset18, false))
	_, err = l.Deposit(user, asset18, dec(t, "1000000000000000000"))
	require.ErrorIs(err, ErrAssetNotWhitelisted)

	require.NoError(st.Authority().RevokeRole(councilAddr, types.RoleMinter, collateralAddr, "halt"))
	_, err = l.Deposit(user, asset6, u(1_000_000))
	require.ErrorIs(err, ErrNoMintAuthority)

	_, err = l.Withdraw(user, assetNR, u(1))
	require.ErrorIs(err, ErrRatioNotSet)
}

func TestSetAssetRatio(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	l := st.Collateral()

	r, err := ParseRatio("3")
	require.NoError(err)
	require.ErrorIs(l.SetAssetRatio(user, assetNR, r), ErrNotGovernance)
	require.ErrorIs(l.SetAssetRatio(councilAddr, assetNR, uint256.NewInt(0)), ErrInvalidRatio)
	require.ErrorIs(l.SetAssetRatio(councilAddr, user2, r), ErrAssetNotWhitelisted)
	require.NoError(l.SetAssetRatio(councilAddr, assetNR, r))

	cfg, ok := l.AssetConfig(assetNR)
	require.True(ok)
	require.Equal(uint8(18), cfg.Decimals)
	require.Equal(r.Dec(), cfg.Ratio.Dec())
}

func TestLedgerGuard(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	l := st.Collateral()

	l.guard.entered = true
	_, err := l.Deposit(user, asset6, u(1_000_000))
	require.ErrorIs(err, ErrReentrantCall)
	_, err = l.Withdraw(user, asset6, u(1))
	require.ErrorIs(err, ErrReentrantCall)
	l.guard.entered = false

	_, err = l.Deposit(user, asset6, u(1_000_000))
	require.NoError(err)
	require.False(l.guard.entered)

	// released on error paths too
	_, err = l.Withdraw(user, asset6, u(5_000_000))
	require.ErrorIs(err, ErrInsufficientMinted)
	require.False(l.guard.entered)
}

// Random deposit and withdraw sequences never leave a position below 100%.
func TestSolvencyInvariant(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	l := st.Collateral()
	rnd := rand.New(rand.NewSource(7))

	three, err := ParseRatio("3.3")
	require.NoError(err)
	require.NoError(l.SetAssetRatio(councilAddr, asset18, three))

	for i := 0; i < 200; i++ {
		pos := l.Position(user, asset18)
		if pos.Minted.IsZero() || rnd.Intn(2) == 0 {
			amount := uint256.NewInt(uint64(rnd.Int63n(1_000_000_000_000_000)) + 1_000_000_000_000)
			_, err := l.Deposit(user, asset18, amount)
			if err != nil {
				require.ErrorIs(err, ErrInsufficientBalance)
			}
		} else {
			amount := uint256.NewInt(uint64(rnd.Int63n(int64(pos.Minted.Uint64()))) + 1)
			_, err := l.Withdraw(user, asset18, amount)
			if err != nil {
				require.ErrorIs(err, ErrWouldViolateMinimumRatio)
			}
		}

		pos = l.Position(user, asset18)
		if !pos.Minted.IsZero() {
			backing, err := CollateralToToken(pos.Balance, three, 18, 6)
			require.NoError(err)
			require.False(backing.Lt(pos.Minted), "step %d: %s backs %s", i, backing.Dec(), pos.Minted.Dec())
		} else {
			require.True(pos.Balance.IsZero())
		}
	}
}
