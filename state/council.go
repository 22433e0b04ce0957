package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/calehh/khrt-app/types"
	"github.com/ethereum/go-ethereum/common"
)

const (
	MinCouncil = 3
	MaxCouncil = 21

	MinVotingPeriod = uint64(time.Hour / time.Second)
	MaxVotingPeriod = uint64(30 * 24 * time.Hour / time.Second)
	MinTimeLock     = uint64(time.Hour / time.Second)
	MaxTimeLock     = uint64(14 * 24 * time.Hour / time.Second)

	DefaultVotingPeriod  = uint64(3 * 24 * time.Hour / time.Second)
	DefaultTimeLock      = uint64(24 * time.Hour / time.Second)
	DefaultQuorumPercent = 60
)

// RoleAuthority is the registry surface a RoleChange proposal drives.
type RoleAuthority interface {
	ProposeRoleChange(caller common.Address, role common.Hash, account common.Address, grant bool) (uint64, error)
	ExecuteRoleChange(caller common.Address, id uint64) error
}

type CouncilMember struct {
	Address  common.Address `json:"address"`
	Power    uint64         `json:"power"`
	Active   bool           `json:"active"`
	JoinedAt uint64         `json:"joinedAt"`
}

type CouncilConfig struct {
	VotingPeriod  uint64 `json:"votingPeriod"`
	TimeLock      uint64 `json:"timeLock"`
	QuorumPercent uint64 `json:"quorumPercent"`
}

func DefaultCouncilConfig() CouncilConfig {
	return CouncilConfig{
		VotingPeriod:  DefaultVotingPeriod,
		TimeLock:      DefaultTimeLock,
		QuorumPercent: DefaultQuorumPercent,
	}
}

func (c CouncilConfig) Validate() error {
	if c.VotingPeriod < MinVotingPeriod || c.VotingPeriod > MaxVotingPeriod {
		return fmt.Errorf("%w: voting period %d", ErrInvalidConfig, c.VotingPeriod)
	}
	if c.TimeLock < MinTimeLock || c.TimeLock > MaxTimeLock {
		return fmt.Errorf("%w: time lock %d", ErrInvalidConfig, c.TimeLock)
	}
	if c.QuorumPercent < 1 || c.QuorumPercent > 100 {
		return fmt.Errorf("%w: quorum %d", ErrInvalidConfig, c.QuorumPercent)
	}
	return nil
}

// ProposalPayload carries the kind specific arguments of a proposal.
type ProposalPayload struct {
	Role     common.Hash    `json:"role,omitempty"`
	Account  common.Address `json:"account,omitempty"`
	Grant    bool           `json:"grant,omitempty"`
	Power    uint64         `json:"power,omitempty"`
	Target   common.Address `json:"target,omitempty"`
	Calldata []byte         `json:"calldata,omitempty"`
}

type Receipt struct {
	Support bool   `json:"support"`
	Weight  uint64 `json:"weight"`
}

type Proposal struct {
	ID            uint64                     `json:"id"`
	Proposer      common.Address             `json:"proposer"`
	Kind          types.ProposalKind         `json:"kind"`
	Payload       ProposalPayload            `json:"payload"`
	Description   string                     `json:"description"`
	CreatedAt     uint64                     `json:"createdAt"`
	Deadline      uint64                     `json:"deadline"`
	ExecuteTime   uint64                     `json:"executeTime"`
	QuorumPercent uint64                     `json:"quorumPercent"`
	ForVotes      uint64                     `json:"forVotes"`
	AgainstVotes  uint64                     `json:"againstVotes"`
	Status        types.ProposalStatus       `json:"status"`
	ChangeID      uint64                     `json:"changeId,omitempty"`
	Receipts      map[common.Address]Receipt `json:"receipts"`
}

func (p *Proposal) clone() *Proposal {
	n := *p
	if p.Payload.Calldata != nil {
		n.Payload.Calldata = append([]byte(nil), p.Payload.Calldata...)
	}
	n.Receipts = copyMap(p.Receipts)
	return &n
}

type councilData struct {
	Members map[common.Address]*CouncilMember `json:"members"`
	Config  CouncilConfig                     `json:"config"`
	NextID  uint64                            `json:"nextId"`
}

// Council is the proposal engine: members propose, vote with their power and
// execute succeeded proposals once the time lock has passed.
type Council struct {
	env       *env
	roles     RoleAuthority
	dispatch  func(caller, target common.Address, calldata []byte) error
	self      common.Address
	guard     guard
	data      councilData
	proposals map[uint64]*Proposal
	modified  map[uint64]struct{}
}

func NewCouncil(e *env, roles RoleAuthority, cfg CouncilConfig) *Council {
	return &Council{
		env:   e,
		roles: roles,
		self:  types.ModuleAddress(types.CouncilModule),
		data: councilData{
			Members: make(map[common.Address]*CouncilMember),
			Config:  cfg,
			NextID:  1,
		},
		proposals: make(map[uint64]*Proposal),
		modified:  make(map[uint64]struct{}),
	}
}

func (c *Council) clone(e *env, roles RoleAuthority) *Council {
	n := &Council{
		env:       e,
		roles:     roles,
		self:      c.self,
		data:      c.data,
		proposals: make(map[uint64]*Proposal, len(c.proposals)),
		modified:  copyMap(c.modified),
	}
	n.data.Members = make(map[common.Address]*CouncilMember, len(c.data.Members))
	for k, m := range c.data.Members {
		mm := *m
		n.data.Members[k] = &mm
	}
	for id, p := range c.proposals {
		n.proposals[id] = p.clone()
	}
	return n
}

func (c *Council) marshal() ([]byte, error) {
	return json.Marshal(&c.data)
}

func (c *Council) unmarshal(bz []byte) error {
	if err := json.Unmarshal(bz, &c.data); err != nil {
		return err
	}
	if c.data.Members == nil {
		c.data.Members = make(map[common.Address]*CouncilMember)
	}
	return nil
}

func (c *Council) loadProposal(bz []byte) error {
	p := new(Proposal)
	if err := json.Unmarshal(bz, p); err != nil {
		return err
	}
	if p.Receipts == nil {
		p.Receipts = make(map[common.Address]Receipt)
	}
	c.proposals[p.ID] = p
	return nil
}

func (c *Council) member(addr common.Address) (*CouncilMember, error) {
	m, ok := c.data.Members[addr]
	if !ok || !m.Active {
		return nil, fmt.Errorf("%w: %v", ErrNotCouncilMember, addr)
	}
	return m, nil
}

func (c *Council) activeCount() int {
	n := 0
	for _, m := range c.data.Members {
		if m.Active {
			n++
		}
	}
	return n
}

func (c *Council) ActiveMembers() int { return c.activeCount() }

// TotalVotingPower sums the power of active members.
func (c *Council) TotalVotingPower() uint64 {
	var total uint64
	for _, m := range c.data.Members {
		if m.Active {
			total += m.Power
		}
	}
	return total
}

// Quorum is the vote weight a proposal needs on one side to resolve early.
func Quorum(totalPower, percent uint64) uint64 {
	return (totalPower*percent + 99) / 100
}

// resolve applies the early resolution rule to an active proposal. A tie that
// reaches quorum is a defeat.
func resolve(forVotes, againstVotes, quorum uint64) types.ProposalStatus {
	if forVotes+againstVotes < quorum {
		return types.ProposalStatusActive
	}
	if forVotes > againstVotes {
		return types.ProposalStatusSucceeded
	}
	return types.ProposalStatusDefeated
}

func (c *Council) validatePayload(proposer common.Address, kind types.ProposalKind, pl *ProposalPayload) error {
	switch kind {
	case types.ProposalKindRoleChange:
		return validRoleTarget(pl.Role, pl.Account)
	case types.ProposalKindMemberAdd:
		if pl.Account == (common.Address{}) {
			return ErrZeroAddress
		}
		if pl.Power == 0 {
			return ErrInvalidPower
		}
		if m, ok := c.data.Members[pl.Account]; ok && m.Active {
			return fmt.Errorf("%w: %v", ErrAlreadyMember, pl.Account)
		}
		if c.activeCount()+1 > MaxCouncil {
			return ErrCouncilAboveMaximum
		}
	case types.ProposalKindMemberRemove:
		if pl.Account == proposer {
			return ErrCannotRemoveSelf
		}
		if _, err := c.member(pl.Account); err != nil {
			return err
		}
		if c.activeCount()-1 < MinCouncil {
			return ErrCouncilBelowMinimum
		}
	case types.ProposalKindExecution:
		if pl.Target == (common.Address{}) {
			return ErrZeroAddress
		}
		if len(pl.Calldata) == 0 {
			return fmt.Errorf("%w: empty calldata", ErrInvalidProposal)
		}
	default:
		return fmt.Errorf("%w: kind %d", ErrInvalidProposal, kind)
	}
	return nil
}

// Propose opens a proposal for voting straight away.
func (c *Council) Propose(caller common.Address, kind types.ProposalKind, payload ProposalPayload, description string) (uint64, error) {
	if _, err := c.member(caller); err != nil {
		return 0, err
	}
	if err := c.validatePayload(caller, kind, &payload); err != nil {
		return 0, err
	}
	cfg := c.data.Config
	now := c.env.now
	p := &Proposal{
		ID:            c.data.NextID,
		Proposer:      caller,
		Kind:          kind,
		Payload:       payload,
		Description:   description,
		CreatedAt:     now,
		Deadline:      now + cfg.VotingPeriod,
		ExecuteTime:   now + cfg.VotingPeriod + cfg.TimeLock,
		QuorumPercent: cfg.QuorumPercent,
		Status:        types.ProposalStatusActive,
		Receipts:      make(map[common.Address]Receipt),
	}
	c.data.NextID++
	c.proposals[p.ID] = p
	c.modified[p.ID] = struct{}{}
	c.env.emit(types.EncodeEventProposal(&types.EventProposal{
		ProposalIndex: p.ID,
		Proposer:      caller,
		Kind:          kind,
		Deadline:      p.Deadline,
		ExecuteTime:   p.ExecuteTime,
		Status:        p.Status,
		Description:   description,
	}))
	return p.ID, nil
}

func (c *Council) Vote(caller common.Address, id uint64, support bool) error {
	m, err := c.member(caller)
	if err != nil {
		return err
	}
	p, ok := c.proposals[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrProposalNotFound, id)
	}
	if p.Status != types.ProposalStatusActive {
		return fmt.Errorf("%w: %d is %v", ErrProposalNotActive, id, p.Status)
	}
	if c.env.now >= p.Deadline {
		return ErrVotingClosed
	}
	if _, voted := p.Receipts[caller]; voted {
		return ErrAlreadyVoted
	}
	p.Receipts[caller] = Receipt{Support: support, Weight: m.Power}
	if support {
		p.ForVotes += m.Power
	} else {
		p.AgainstVotes += m.Power
	}
	p.Status = resolve(p.ForVotes, p.AgainstVotes, Quorum(c.TotalVotingPower(), p.QuorumPercent))
	c.modified[id] = struct{}{}
	c.env.emit(types.EncodeEventVote(&types.EventVote{
		ProposalIndex: id,
		Voter:         caller,
		Support:       support,
		Weight:        m.Power,
		ForVotes:      p.ForVotes,
		AgainstVotes:  p.AgainstVotes,
		Status:        p.Status,
	}))
	return nil
}

// Execute applies a succeeded proposal after its time lock. Anyone may call
// it. On failure the proposal stays succeeded and can be executed again.
func (c *Council) Execute(caller common.Address, id uint64) error {
	release, err := c.guard.enter()
	if err != nil {
		return err
	}
	defer release()

	p, ok := c.proposals[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrProposalNotFound, id)
	}
	switch {
	case p.Status == types.ProposalStatusExecuted:
		return ErrProposalExecuted
	case p.Status != types.ProposalStatusSucceeded:
		return fmt.Errorf("%w: %d is %v", ErrProposalNotSucceeded, id, p.Status)
	case c.env.now < p.ExecuteTime:
		return fmt.Errorf("%w: until %d", ErrTimelockActive, p.ExecuteTime)
	}

	p.Status = types.ProposalStatusExecuted
	c.modified[id] = struct{}{}
	if err := c.apply(p); err != nil {
		p.Status = types.ProposalStatusSucceeded
		return fmt.Errorf("%w: proposal %d: %w", ErrExecutionFailed, id, err)
	}
	c.env.emit(types.EncodeEventProposalExecuted(&types.EventProposalExecuted{
		ProposalIndex: id,
		Kind:          p.Kind,
		Executor:      caller,
	}))
	return nil
}

func (c *Council) apply(p *Proposal) error {
	pl := p.Payload
	switch p.Kind {
	case types.ProposalKindRoleChange:
		if p.ChangeID == 0 {
			changeID, err := c.roles.ProposeRoleChange(c.self, pl.Role, pl.Account, pl.Grant)
			if err != nil {
				return err
			}
			p.ChangeID = changeID
		}
		return c.roles.ExecuteRoleChange(c.self, p.ChangeID)
	case types.ProposalKindMemberAdd:
		return c.addMember(pl.Account, pl.Power)
	case types.ProposalKindMemberRemove:
		return c.removeMember(pl.Account)
	case types.ProposalKindExecution:
		if c.dispatch == nil {
			return ErrNoDispatcher
		}
		return c.dispatch(c.self, pl.Target, pl.Calldata)
	}
	return fmt.Errorf("%w: kind %d", ErrInvalidProposal, p.Kind)
}

func (c *Council) addMember(addr common.Address, power uint64) error {
	if addr == (common.Address{}) {
		return ErrZeroAddress
	}
	if power == 0 {
		return ErrInvalidPower
	}
	if m, ok := c.data.Members[addr]; ok && m.Active {
		return fmt.Errorf("%w: %v", ErrAlreadyMember, addr)
	}
	if c.activeCount()+1 > MaxCouncil {
		return ErrCouncilAboveMaximum
	}
	c.data.Members[addr] = &CouncilMember{
		Address:  addr,
		Power:    power,
		Active:   true,
		JoinedAt: c.env.now,
	}
	c.env.emit(types.EncodeEventCouncil(&types.EventCouncil{
		Member: addr,
		Power:  power,
		Added:  true,
		Total:  c.TotalVotingPower(),
	}))
	return nil
}

func (c *Council) removeMember(addr common.Address) error {
	m, err := c.member(addr)
	if err != nil {
		return err
	}
	if c.activeCount()-1 < MinCouncil {
		return ErrCouncilBelowMinimum
	}
	m.Active = false
	c.env.emit(types.EncodeEventCouncil(&types.EventCouncil{
		Member: addr,
		Power:  m.Power,
		Total:  c.TotalVotingPower(),
	}))
	return nil
}

// AddGenesisMember seeds the founding council without the size bounds, which
// InitGenesis checks once all members are in.
func (c *Council) AddGenesisMember(addr common.Address, power uint64) error {
	if addr == (common.Address{}) {
		return ErrZeroAddress
	}
	if power == 0 {
		return ErrInvalidPower
	}
	if _, ok := c.data.Members[addr]; ok {
		return fmt.Errorf("%w: %v", ErrAlreadyMember, addr)
	}
	c.data.Members[addr] = &CouncilMember{Address: addr, Power: power, Active: true, JoinedAt: c.env.now}
	return nil
}

func (c *Council) checkSize() error {
	n := c.activeCount()
	if n < MinCouncil {
		return fmt.Errorf("%w: %d members", ErrCouncilBelowMinimum, n)
	}
	if n > MaxCouncil {
		return fmt.Errorf("%w: %d members", ErrCouncilAboveMaximum, n)
	}
	return nil
}

// UpdateConfig changes the parameters used by proposals created afterwards.
func (c *Council) UpdateConfig(caller common.Address, cfg CouncilConfig) error {
	if caller != c.self {
		if _, err := c.member(caller); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.data.Config = cfg
	c.env.emit(types.EncodeEventCouncilConfig(&types.EventCouncilConfig{
		VotingPeriod:  cfg.VotingPeriod,
		TimeLock:      cfg.TimeLock,
		QuorumPercent: cfg.QuorumPercent,
	}))
	return nil
}

func (c *Council) Proposal(id uint64) (*Proposal, error) {
	p, ok := c.proposals[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrProposalNotFound, id)
	}
	return p.clone(), nil
}

func (c *Council) Receipt(id uint64, voter common.Address) (Receipt, bool, error) {
	p, ok := c.proposals[id]
	if !ok {
		return Receipt{}, false, fmt.Errorf("%w: %d", ErrProposalNotFound, id)
	}
	r, voted := p.Receipts[voter]
	return r, voted, nil
}

func (c *Council) Member(addr common.Address) (*CouncilMember, bool) {
	m, ok := c.data.Members[addr]
	if !ok {
		return nil, false
	}
	mm := *m
	return &mm, true
}

// Members lists active members in address order.
func (c *Council) Members() []*CouncilMember {
	var res []*CouncilMember
	for _, addr := range sortedKeys(c.data.Members) {
		m := c.data.Members[addr]
		if m.Active {
			mm := *m
			res = append(res, &mm)
		}
	}
	return res
}

func (c *Council) IsMember(addr common.Address) bool {
	_, err := c.member(addr)
	return err == nil
}

func (c *Council) Config() CouncilConfig { return c.data.Config }

func (c *Council) ProposalCount() uint64 { return c.data.NextID - 1 }

// IterateProposals walks proposals from newest to oldest until fn returns
// false.
func (c *Council) IterateProposals(fn func(*Proposal) bool) {
	for id := c.data.NextID - 1; id >= 1; id-- {
		p, ok := c.proposals[id]
		if !ok {
			continue
		}
		if !fn(p.clone()) {
			return
		}
	}
}
