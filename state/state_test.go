package state

import (
	"testing"

	"github.com/calehh/khrt-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/require"
)

func TestCloneIsolation(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)

	tmp := st.Clone()
	_, err := tmp.Collateral().Deposit(user, asset6, u(5_000_000))
	require.NoError(err)
	tmp.IncNonce(user)
	require.NoError(tmp.Authority().ToggleEmergencyMode(owner, true))

	require.Equal("5000000", tmp.Token().BalanceOf(user).Dec())
	require.True(st.Token().BalanceOf(user).IsZero())
	require.Equal("1000000000", st.Bank().BalanceOf(asset6, user).Dec())
	require.True(st.Collateral().TotalCollateral(asset6).IsZero())
	require.Equal(uint64(0), st.Nonce(user))
	require.Equal(uint64(1), tmp.Nonce(user))
	require.False(st.Authority().EmergencyMode())

	// events emitted on the copy stay there
	require.Empty(st.TakeEvents())
	require.NotEmpty(tmp.TakeEvents())
}

func TestCloneRewiresDispatch(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	d := &stubDispatcher{}
	st.SetDispatcher(d)

	tmp := st.Clone()
	require.NoError(tmp.Council().dispatch(councilAddr, tokenAddr, []byte("x")))
	require.Equal(1, d.calls)
	require.Equal([]byte("x"), d.last)

	tmp.SetDispatcher(nil)
	require.ErrorIs(tmp.Council().dispatch(councilAddr, tokenAddr, nil), ErrNoDispatcher)
	require.NoError(st.Council().dispatch(councilAddr, tokenAddr, nil))
}

func TestCheckNonce(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)

	require.NoError(st.CheckNonce(user, 0, false))
	require.ErrorIs(st.CheckNonce(user, 1, false), ErrTxNonceInvalid)
	require.NoError(st.CheckNonce(user, 3, true))

	st.IncNonce(user)
	require.ErrorIs(st.CheckNonce(user, 0, true), ErrTxNonceInvalid)
	require.NoError(st.CheckNonce(user, 1, false))
}

func TestStatePersistence(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	db, err := NewStateDB(dir, cmtlog.NewNopLogger())
	require.NoError(err)
	st := db.NewState()
	st.SetChainId("khrt-test")
	require.NoError(st.InitGenesis(testGenesis(), genesisTime))

	_, err = st.Collateral().Deposit(user, asset18, dec(t, "1500000000000000000"))
	require.NoError(err)
	id, err := st.Council().Propose(memberA, types.ProposalKindMemberAdd, ProposalPayload{Account: user2, Power: 10}, "add")
	require.NoError(err)
	require.NoError(st.Council().Vote(memberB, id, true))
	st.IncNonce(user)
	st.IncNonce(user)

	working, err := st.Update()
	require.NoError(err)
	hash, err := db.SetState(st)
	require.NoError(err)
	require.Equal(working, hash)
	require.Equal(hash, st.Hash())
	require.NoError(db.Close())

	db, err = NewStateDB(dir, cmtlog.NewNopLogger())
	require.NoError(err)
	defer db.Close()

	loaded := db.State()
	require.Equal(hash, loaded.Hash())
	require.Equal("khrt-test", loaded.Header().ChainId)
	require.Equal(genesisTime, loaded.Header().Time)
	require.Equal(uint64(2), loaded.Nonce(user))
	require.Equal("3000000000", loaded.Token().BalanceOf(user).Dec())
	require.Equal("1500000000000000000", loaded.Collateral().TotalCollateral(asset18).Dec())
	require.Equal([]string{"MINTER", "BURNER"}, loaded.Authority().RolesOf(collateralAddr))
	require.Len(loaded.Council().Members(), 3)

	p, err := loaded.Council().Proposal(id)
	require.NoError(err)
	require.Equal(types.ProposalKindMemberAdd, p.Kind)
	require.Equal(uint64(75), p.ForVotes)
	require.Equal(uint64(1), loaded.Council().ProposalCount())

	acnt, _, err := db.GetAccount(user)
	require.NoError(err)
	require.Equal(uint64(2), acnt.Nonce)
	require.Equal("3000000000", acnt.Balance)
	require.Equal("8500000000000000000", acnt.Assets[asset18])

	next := db.NewState()
	require.Equal(loaded.Header().Height+1, next.Header().Height)
}
