package state

import (
	"testing"

	"github.com/calehh/khrt-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestHasRoleAllowList(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	r := st.Authority()

	ok, err := r.HasRole(tokenAddr, types.RoleMinter, collateralAddr)
	require.NoError(err)
	require.True(ok)

	_, err = r.HasRole(user, types.RoleMinter, collateralAddr)
	require.ErrorIs(err, ErrUnauthorizedCaller)

	require.NoError(r.CheckRole(tokenAddr, types.RoleBurner, collateralAddr))
	require.ErrorIs(r.CheckRole(tokenAddr, types.RoleBurner, user), ErrMissingRole)
}

func TestGrantRevokeRole(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	r := st.Authority()
	st.TakeEvents()

	require.ErrorIs(r.GrantRole(owner, types.RoleMinter, user, "x"), ErrNotGovernance)
	require.ErrorIs(r.GrantRole(councilAddr, types.RoleMinter, common.Address{}, "x"), ErrZeroAddress)
	require.ErrorIs(r.GrantRole(councilAddr, common.HexToHash("0x01"), user, "x"), ErrUnknownRole)

	require.NoError(r.GrantRole(councilAddr, types.RoleMinter, user, "desk"))
	require.Equal([]string{types.EventRoleGrantedType}, eventTypes(st))
	require.Equal([]string{"MINTER"}, r.RolesOf(user))

	// already held
	require.NoError(r.GrantRole(councilAddr, types.RoleMinter, user, "desk"))
	require.Empty(eventTypes(st))

	require.NoError(r.RevokeRole(councilAddr, types.RoleMinter, user, "done"))
	require.Equal([]string{types.EventRoleRevokedType}, eventTypes(st))
	require.Empty(r.RolesOf(user))
}

func TestRoleChangeTwoPhase(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	r := st.Authority()

	id, err := r.ProposeRoleChange(councilAddr, types.RoleGovernance, user, true)
	require.NoError(err)
	require.Equal(uint64(1), id)

	again, err := r.ProposeRoleChange(councilAddr, types.RoleGovernance, user, true)
	require.NoError(err)
	require.Equal(id, again)

	other, err := r.ProposeRoleChange(councilAddr, types.RoleGovernance, user, false)
	require.NoError(err)
	require.Equal(uint64(2), other)

	_, err = r.ProposeRoleChange(user, types.RoleGovernance, user, true)
	require.ErrorIs(err, ErrNotGovernance)

	require.False(r.IsGovernance(user))
	require.NoError(r.ExecuteRoleChange(councilAddr, id))
	require.True(r.IsGovernance(user))

	require.ErrorIs(r.ExecuteRoleChange(councilAddr, id), ErrRoleChangeExecuted)
	require.ErrorIs(r.RetryRoleChange(councilAddr, id), ErrRoleChangeExecuted)
	require.ErrorIs(r.ExecuteRoleChange(councilAddr, 99), ErrRoleChangeNotFound)

	c, ok := r.RoleChange(id)
	require.True(ok)
	require.True(c.Executed)

	// an executed change no longer dedups
	next, err := r.ProposeRoleChange(councilAddr, types.RoleGovernance, user, true)
	require.NoError(err)
	require.Equal(uint64(3), next)
}

func setupGenesis() *types.GenesisState {
	g := testGenesis()
	g.Controller = common.Address{}
	g.CloseSetup = false
	return g
}

func TestSetupWindow(t *testing.T) {
	require := require.New(t)
	st := newTestStateFrom(t, setupGenesis())
	r := st.Authority()

	require.True(r.SetupOpen())
	require.NoError(r.GrantRole(owner, types.RoleMinter, user, "bootstrap"))
	require.ErrorIs(r.GrantRole(user, types.RoleMinter, user, ""), ErrControllerNotConfigured)

	require.ErrorIs(r.CloseSetup(owner), ErrControllerNotConfigured)
	require.ErrorIs(r.UpdateGovernanceController(owner, common.Address{}), ErrZeroAddress)
	require.NoError(r.UpdateGovernanceController(owner, councilAddr))
	require.Equal(councilAddr, r.GovernanceController())

	require.NoError(r.CloseSetup(owner))
	require.False(r.SetupOpen())
	require.ErrorIs(r.CloseSetup(owner), ErrSetupClosed)

	require.ErrorIs(r.GrantRole(owner, types.RoleBurner, user, ""), ErrNotGovernance)
	require.ErrorIs(r.UpdateGovernanceController(owner, owner), ErrNotGovernance)
	require.NoError(r.UpdateGovernanceController(councilAddr, memberA))
	require.Equal(memberA, r.GovernanceController())
}

func TestSetupWindowExpires(t *testing.T) {
	require := require.New(t)
	g := setupGenesis()
	st := newTestStateFrom(t, g)
	r := st.Authority()

	st.SetTime(genesisTime + g.SetupWindow)
	require.False(r.SetupOpen())
	require.ErrorIs(r.GrantRole(owner, types.RoleMinter, user, ""), ErrControllerNotConfigured)
	require.ErrorIs(r.UpdateGovernanceController(owner, councilAddr), ErrControllerNotConfigured)
}

func TestAuthorizedCallers(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	r := st.Authority()

	require.ErrorIs(r.SetAuthorizedCaller(user, user, true), ErrNotGovernance)
	require.NoError(r.SetAuthorizedCaller(councilAddr, user, true))
	_, err := r.HasRole(user, types.RoleMinter, user)
	require.NoError(err)

	require.NoError(r.SetAuthorizedCaller(councilAddr, user, false))
	_, err = r.HasRole(user, types.RoleMinter, user)
	require.ErrorIs(err, ErrUnauthorizedCaller)
}

func TestEmergencyMode(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	r := st.Authority()

	require.ErrorIs(r.ToggleEmergencyMode(memberA, true), ErrNotEmergencyAdmin)
	require.NoError(r.ToggleEmergencyMode(owner, true))
	require.True(r.EmergencyMode())

	_, err := st.Collateral().Deposit(user, asset6, u(1_000_000))
	require.ErrorIs(err, ErrEmergencyActive)

	require.NoError(r.ToggleEmergencyMode(owner, false))
	_, err = st.Collateral().Deposit(user, asset6, u(1_000_000))
	require.NoError(err)
}

func TestIsGovernance(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	r := st.Authority()

	require.True(r.IsGovernance(councilAddr))
	require.False(r.IsGovernance(user))
	require.False(r.IsGovernance(common.Address{}))
	require.NoError(r.GrantRole(councilAddr, types.RoleGovernance, user, ""))
	require.True(r.IsGovernance(user))
}
