package state

import (
	"errors"
	"testing"

	"github.com/calehh/khrt-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestQuorum(t *testing.T) {
	require := require.New(t)
	require.Equal(uint64(135), Quorum(225, 60))
	require.Equal(uint64(1), Quorum(1, 1))
	require.Equal(uint64(68), Quorum(225, 30))
	require.Equal(uint64(225), Quorum(225, 100))
}

func TestResolve(t *testing.T) {
	cases := []struct {
		forVotes, against, quorum uint64
		want                      types.ProposalStatus
	}{
		{100, 0, 135, types.ProposalStatusActive},
		{175, 0, 135, types.ProposalStatusSucceeded},
		{0, 175, 135, types.ProposalStatusDefeated},
		{100, 100, 200, types.ProposalStatusDefeated},
		{100, 50, 135, types.ProposalStatusSucceeded},
		{50, 100, 135, types.ProposalStatusDefeated},
		{67, 67, 135, types.ProposalStatusActive},
	}
	for _, c := range cases {
		require.Equal(t, c.want, resolve(c.forVotes, c.against, c.quorum), "%d/%d q%d", c.forVotes, c.against, c.quorum)
	}
}

func proposeGrant(t *testing.T, st *State, account common.Address) uint64 {
	id, err := st.Council().Propose(memberA, types.ProposalKindRoleChange, ProposalPayload{
		Role:    types.RoleBlacklistManager,
		Account: account,
		Grant:   true,
	}, "grant blacklist manager")
	require.NoError(t, err)
	return id
}

func TestProposalSucceedsEarly(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	c := st.Council()

	id := proposeGrant(t, st, user)
	require.Equal(uint64(1), id)
	p, err := c.Proposal(id)
	require.NoError(err)
	require.Equal(types.ProposalStatusActive, p.Status)
	require.Equal(genesisTime+DefaultVotingPeriod, p.Deadline)
	require.Equal(p.Deadline+DefaultTimeLock, p.ExecuteTime)

	require.NoError(c.Vote(memberA, id, true))
	p, _ = c.Proposal(id)
	require.Equal(types.ProposalStatusActive, p.Status)

	require.NoError(c.Vote(memberB, id, true))
	p, _ = c.Proposal(id)
	require.Equal(types.ProposalStatusSucceeded, p.Status)
	require.Equal(uint64(175), p.ForVotes)

	require.ErrorIs(c.Vote(memberC, id, false), ErrProposalNotActive)
	require.ErrorIs(c.Execute(user, id), ErrTimelockActive)

	st.SetTime(p.ExecuteTime)
	require.NoError(c.Execute(user, id))
	require.Contains(st.Authority().RolesOf(user), "BLACKLIST_MANAGER")

	p, _ = c.Proposal(id)
	require.Equal(types.ProposalStatusExecuted, p.Status)
	require.ErrorIs(c.Execute(user, id), ErrProposalExecuted)
}

func TestProposalDefeatedEarly(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	c := st.Council()

	id := proposeGrant(t, st, user)
	require.NoError(c.Vote(memberA, id, false))
	require.NoError(c.Vote(memberB, id, false))
	p, _ := c.Proposal(id)
	require.Equal(types.ProposalStatusDefeated, p.Status)
	require.Equal(uint64(175), p.AgainstVotes)

	require.ErrorIs(c.Execute(user, id), ErrProposalNotSucceeded)
	st.SetTime(p.ExecuteTime + 1)
	require.ErrorIs(c.Execute(user, id), ErrProposalNotSucceeded)
}

func TestTieAtQuorumIsDefeat(t *testing.T) {
	require := require.New(t)
	g := testGenesis()
	g.Council = []types.GenesisCouncilMember{
		{Address: memberA, Power: 100},
		{Address: memberB, Power: 100},
		{Address: memberC, Power: 100},
		{Address: user2, Power: 100},
	}
	g.CouncilParams.QuorumPercent = 50
	st := newTestStateFrom(t, g)
	c := st.Council()

	id := proposeGrant(t, st, user)
	require.NoError(c.Vote(memberA, id, true))
	require.NoError(c.Vote(memberB, id, false))
	p, _ := c.Proposal(id)
	require.Equal(types.ProposalStatusDefeated, p.Status)
}

func TestProposalWithoutQuorumStaysActive(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	c := st.Council()

	id := proposeGrant(t, st, user)
	require.NoError(c.Vote(memberA, id, true))
	require.ErrorIs(c.Vote(memberA, id, true), ErrAlreadyVoted)

	p, _ := c.Proposal(id)
	st.SetTime(p.Deadline)
	require.ErrorIs(c.Vote(memberB, id, true), ErrVotingClosed)

	st.SetTime(p.ExecuteTime + 365*24*3600)
	p, _ = c.Proposal(id)
	require.Equal(types.ProposalStatusActive, p.Status)
	require.ErrorIs(c.Execute(user, id), ErrProposalNotSucceeded)
}

func TestProposeValidation(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	c := st.Council()

	_, err := c.Propose(user, types.ProposalKindRoleChange, ProposalPayload{Role: types.RoleMinter, Account: user}, "")
	require.ErrorIs(err, ErrNotCouncilMember)
	_, err = c.Propose(memberA, types.ProposalKindUnknown, ProposalPayload{}, "")
	require.ErrorIs(err, ErrInvalidProposal)
	_, err = c.Propose(memberA, types.ProposalKindRoleChange, ProposalPayload{Role: types.RoleMinter}, "")
	require.ErrorIs(err, ErrZeroAddress)
	_, err = c.Propose(memberA, types.ProposalKindMemberAdd, ProposalPayload{Account: memberB, Power: 10}, "")
	require.ErrorIs(err, ErrAlreadyMember)
	_, err = c.Propose(memberA, types.ProposalKindMemberAdd, ProposalPayload{Account: user}, "")
	require.ErrorIs(err, ErrInvalidPower)
	_, err = c.Propose(memberA, types.ProposalKindMemberRemove, ProposalPayload{Account: memberA}, "")
	require.ErrorIs(err, ErrCannotRemoveSelf)
	_, err = c.Propose(memberA, types.ProposalKindExecution, ProposalPayload{Target: tokenAddr}, "")
	require.ErrorIs(err, ErrInvalidProposal)
	_, err = c.Propose(memberA, types.ProposalKindExecution, ProposalPayload{Calldata: []byte("{}")}, "")
	require.ErrorIs(err, ErrZeroAddress)

	require.ErrorIs(c.Vote(user, 1, true), ErrNotCouncilMember)
	require.ErrorIs(c.Vote(memberA, 1, true), ErrProposalNotFound)
	require.ErrorIs(c.Execute(user, 1), ErrProposalNotFound)
	require.Equal(uint64(0), c.ProposalCount())
}

func TestRemoveAtMinimumFails(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	c := st.Council()

	_, err := c.Propose(memberA, types.ProposalKindMemberRemove, ProposalPayload{Account: memberC}, "")
	require.ErrorIs(err, ErrCouncilBelowMinimum)
	require.Equal(MinCouncil, c.ActiveMembers())
	require.Equal(uint64(225), c.TotalVotingPower())
	require.Equal(uint64(0), c.ProposalCount())
}

func passProposal(t *testing.T, st *State, id uint64) {
	c := st.Council()
	require.NoError(t, c.Vote(memberA, id, true))
	require.NoError(t, c.Vote(memberB, id, true))
	p, err := c.Proposal(id)
	require.NoError(t, err)
	require.Equal(t, types.ProposalStatusSucceeded, p.Status)
	if st.Now() < p.ExecuteTime {
		st.SetTime(p.ExecuteTime)
	}
}

func TestMembershipProposals(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	c := st.Council()

	add, err := c.Propose(memberA, types.ProposalKindMemberAdd, ProposalPayload{Account: user2, Power: 60}, "add")
	require.NoError(err)
	passProposal(t, st, add)
	require.NoError(c.Execute(user, add))
	require.Equal(4, c.ActiveMembers())
	require.Equal(uint64(285), c.TotalVotingPower())
	require.True(c.IsMember(user2))

	// two removals both pass while the council has four members
	rmC, err := c.Propose(memberA, types.ProposalKindMemberRemove, ProposalPayload{Account: memberC}, "")
	require.NoError(err)
	rmD, err := c.Propose(memberA, types.ProposalKindMemberRemove, ProposalPayload{Account: user2}, "")
	require.NoError(err)
	passProposal(t, st, rmC)
	passProposal(t, st, rmD)

	require.NoError(c.Execute(user, rmC))
	require.Equal(MinCouncil, c.ActiveMembers())

	err = c.Execute(user, rmD)
	require.ErrorIs(err, ErrExecutionFailed)
	require.ErrorIs(err, ErrCouncilBelowMinimum)
	p, _ := c.Proposal(rmD)
	require.Equal(types.ProposalStatusSucceeded, p.Status)
	require.Equal(MinCouncil, c.ActiveMembers())
	require.False(c.IsMember(memberC))
}

func TestConfigSnapshot(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	c := st.Council()

	id := proposeGrant(t, st, user)

	require.ErrorIs(c.UpdateConfig(user, DefaultCouncilConfig()), ErrNotCouncilMember)
	bad := DefaultCouncilConfig()
	bad.QuorumPercent = 101
	require.ErrorIs(c.UpdateConfig(memberA, bad), ErrInvalidConfig)
	bad = DefaultCouncilConfig()
	bad.VotingPeriod = 60
	require.ErrorIs(c.UpdateConfig(memberA, bad), ErrInvalidConfig)
	bad = DefaultCouncilConfig()
	bad.TimeLock = MaxTimeLock + 1
	require.ErrorIs(c.UpdateConfig(memberA, bad), ErrInvalidConfig)

	cfg := CouncilConfig{VotingPeriod: MinVotingPeriod, TimeLock: MinTimeLock, QuorumPercent: 100}
	require.NoError(c.UpdateConfig(memberA, cfg))
	require.Equal(cfg, c.Config())

	// the in-flight proposal keeps its 60% quorum
	require.NoError(c.Vote(memberA, id, true))
	require.NoError(c.Vote(memberB, id, true))
	p, _ := c.Proposal(id)
	require.Equal(types.ProposalStatusSucceeded, p.Status)
	require.Equal(genesisTime+DefaultVotingPeriod, p.Deadline)

	next := proposeGrant(t, st, user2)
	p, _ = c.Proposal(next)
	require.Equal(uint64(100), p.QuorumPercent)
	require.Equal(st.Now()+MinVotingPeriod, p.Deadline)
}

type stubDispatcher struct {
	fail  error
	calls int
	last  []byte
}

func (d *stubDispatcher) Dispatch(_ *State, caller, target common.Address, calldata []byte) error {
	d.calls++
	d.last = calldata
	if caller != councilAddr {
		return errors.New("unexpected caller")
	}
	return d.fail
}

func TestExecutionRetry(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	c := st.Council()

	id, err := c.Propose(memberA, types.ProposalKindExecution, ProposalPayload{
		Target:   tokenAddr,
		Calldata: []byte(`{"type":1}`),
	}, "call token")
	require.NoError(err)
	passProposal(t, st, id)

	err = c.Execute(user, id)
	require.ErrorIs(err, ErrExecutionFailed)
	require.ErrorIs(err, ErrNoDispatcher)

	d := &stubDispatcher{fail: ErrUnknownTarget}
	st.SetDispatcher(d)
	err = c.Execute(user, id)
	require.ErrorIs(err, ErrExecutionFailed)
	require.ErrorIs(err, ErrUnknownTarget)
	p, _ := c.Proposal(id)
	require.Equal(types.ProposalStatusSucceeded, p.Status)

	d.fail = nil
	require.NoError(c.Execute(user, id))
	require.Equal(2, d.calls)
	require.Equal([]byte(`{"type":1}`), d.last)
	p, _ = c.Proposal(id)
	require.Equal(types.ProposalStatusExecuted, p.Status)
}

func TestRoleChangeRetryAfterAuthorization(t *testing.T) {
	require := require.New(t)
	g := testGenesis()
	g.Controller = owner
	st := newTestStateFrom(t, g)
	c := st.Council()
	r := st.Authority()

	require.NoError(r.SetAuthorizedCaller(owner, councilAddr, false))

	id := proposeGrant(t, st, user)
	passProposal(t, st, id)

	err := c.Execute(user, id)
	require.ErrorIs(err, ErrExecutionFailed)
	require.ErrorIs(err, ErrNotGovernance)
	require.Empty(r.RolesOf(user))

	require.NoError(r.SetAuthorizedCaller(owner, councilAddr, true))
	require.NoError(c.Execute(user, id))
	require.Equal([]string{"BLACKLIST_MANAGER"}, r.RolesOf(user))
}

func TestExecuteGuard(t *testing.T) {
	require := require.New(t)
	st := newTestState(t)
	c := st.Council()

	id := proposeGrant(t, st, user)
	passProposal(t, st, id)

	c.guard.entered = true
	require.ErrorIs(c.Execute(user, id), ErrReentrantCall)
	c.guard.entered = false
	require.NoError(c.Execute(user, id))
	require.False(c.guard.entered)
}
