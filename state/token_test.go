package state

import (
	"testing"

	"github.com/calehh/khrt-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func mintTo(t *testing.T, st *State, to common.Address, amount uint64) {
	require.NoError(t, st.Token().Mint(collateralAddr, to, u(amount)))
}

func TestMint(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	tk := st.Token()

	require.ErrorIs(tk.Mint(user, user, u(1)), ErrMissingRole)
	require.ErrorIs(tk.Mint(collateralAddr, common.Address{}, u(1)), ErrZeroAddress)
	require.ErrorIs(tk.Mint(collateralAddr, user, u(0)), ErrZeroAmount)

	st.TakeEvents()
	mintTo(t, st, user, 500)
	require.Equal([]string{types.EventMintedType}, eventTypes(st))
	require.Equal("500", tk.BalanceOf(user).Dec())
	require.Equal("500", tk.TotalSupply().Dec())
	require.True(tk.IsAuthorizedMinter(collateralAddr))
	require.False(tk.IsAuthorizedMinter(user))
}

func TestMaxSupply(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	tk := st.Token()

	mintTo(t, st, user, 500)
	require.ErrorIs(tk.UpdateMaxSupply(user, u(1000)), ErrNotGovernance)
	require.ErrorIs(tk.UpdateMaxSupply(councilAddr, u(499)), ErrMaxSupplyBelowTotal)
	require.NoError(tk.UpdateMaxSupply(councilAddr, u(1000)))
	require.Equal("1000", tk.MaxSupply().Dec())

	require.ErrorIs(tk.Mint(collateralAddr, user, u(501)), ErrMaxSupplyExceeded)
	require.Equal("500", tk.TotalSupply().Dec())
	require.Equal("500", tk.BalanceOf(user).Dec())

	mintTo(t, st, user2, 500)
	require.Equal("1000", tk.TotalSupply().Dec())
}

func TestTransferAndAllowance(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	tk := st.Token()
	mintTo(t, st, user, 1000)

	require.ErrorIs(tk.Transfer(user, common.Address{}, u(1)), ErrZeroAddress)
	require.ErrorIs(tk.Transfer(user2, user, u(1)), ErrInsufficientBalance)
	require.NoError(tk.Transfer(user, user2, u(300)))
	require.Equal("700", tk.BalanceOf(user).Dec())
	require.Equal("300", tk.BalanceOf(user2).Dec())

	require.ErrorIs(tk.TransferFrom(memberA, user, memberA, u(10)), ErrInsufficientAllowance)
	require.NoError(tk.Approve(user, memberA, u(50)))
	require.NoError(tk.TransferFrom(memberA, user, memberB, u(20)))
	require.Equal("30", tk.Allowance(user, memberA).Dec())
	require.Equal("20", tk.BalanceOf(memberB).Dec())

	require.ErrorIs(tk.BurnFrom(memberA, user, u(31)), ErrInsufficientAllowance)
	require.NoError(tk.BurnFrom(memberA, user, u(30)))
	require.True(tk.Allowance(user, memberA).IsZero())

	// burners need no allowance
	require.NoError(tk.BurnFrom(collateralAddr, user2, u(100)))
	require.Equal("200", tk.BalanceOf(user2).Dec())

	require.NoError(tk.Burn(user2, u(200)))
	require.True(tk.BalanceOf(user2).IsZero())
	require.Equal("670", tk.TotalSupply().Dec())
}

func TestBlacklist(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	tk := st.Token()
	mintTo(t, st, user, 1000)

	require.ErrorIs(tk.UpdateBlacklist(user, user2, true), ErrMissingRole)
	require.NoError(tk.UpdateBlacklist(owner, user2, true))
	require.True(tk.IsBlacklisted(user2))

	require.ErrorIs(tk.Transfer(user, user2, u(1)), ErrBlacklisted)
	require.ErrorIs(tk.Transfer(user2, user, u(1)), ErrBlacklisted)
	require.ErrorIs(tk.Mint(collateralAddr, user2, u(1)), ErrBlacklisted)

	require.NoError(tk.UpdateBlacklist(owner, user2, false))
	require.NoError(tk.Transfer(user, user2, u(1)))
}

func TestPauseAndLocalEmergency(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	tk := st.Token()
	mintTo(t, st, user, 1000)

	require.ErrorIs(tk.Pause(councilAddr), ErrNotEmergencyAdmin)
	require.NoError(tk.Pause(owner))
	require.True(tk.Paused())
	require.ErrorIs(tk.Transfer(user, user2, u(1)), ErrPaused)
	require.ErrorIs(tk.Mint(collateralAddr, user, u(1)), ErrPaused)
	require.NoError(tk.Unpause(owner))

	require.ErrorIs(tk.ToggleLocalEmergency(user, true), ErrNotEmergencyAdmin)
	require.NoError(tk.ToggleLocalEmergency(owner, true))
	require.ErrorIs(tk.Transfer(user, user2, u(1)), ErrEmergencyActive)
	require.NoError(tk.ToggleLocalEmergency(owner, false))
	require.NoError(tk.Transfer(user, user2, u(1)))

	// approvals are not balance changes
	require.NoError(tk.Pause(owner))
	require.NoError(tk.Approve(user, user2, u(5)))
}

func TestCollateralWhitelist(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	tk := st.Token()

	require.True(tk.IsCollateralWhitelisted(asset18))
	require.ErrorIs(tk.UpdateCollateralWhitelist(user, asset18, false), ErrNotGovernance)
	require.NoError(tk.UpdateCollateralWhitelist(councilAddr, asset18, false))
	require.False(tk.IsCollateralWhitelisted(asset18))
	require.ErrorIs(tk.UpdateCollateralWhitelist(councilAddr, common.Address{}, true), ErrZeroAddress)
}

func TestMintFailsWhenTokenNotAuthorized(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)

	require.NoError(st.Authority().SetAuthorizedCaller(councilAddr, tokenAddr, false))
	require.ErrorIs(st.Token().Mint(collateralAddr, user, u(1)), ErrUnauthorizedCaller)
	require.False(st.Token().IsAuthorizedMinter(collateralAddr))
}
