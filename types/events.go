package types

import (
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	EventRoleGrantedType         = "role_granted"
	EventRoleRevokedType         = "role_revoked"
	EventRoleChangeProposedType  = "role_change_proposed"
	EventRoleChangeExecutedType  = "role_change_executed"
	EventAuthorizedCallerType    = "authorized_caller"
	EventEmergencyModeType       = "emergency_mode"
	EventControllerUpdatedType   = "controller_updated"
	EventSetupClosedType         = "setup_closed"
	EventProposalCreatedType     = "proposal_created"
	EventProposalVotedType       = "proposal_voted"
	EventProposalExecutedType    = "proposal_executed"
	EventCouncilAddedType        = "council_added"
	EventCouncilRemovedType      = "council_removed"
	EventCouncilConfigType       = "council_config"
	EventCollateralDepositedType = "collateral_deposited"
	EventCollateralWithdrawnType = "collateral_withdrawn"
	EventAssetRatioType          = "asset_ratio"
	EventTransferType            = "transfer"
	EventApprovalType            = "approval"
	EventMintedType              = "minted"
	EventBurnedType              = "burned"
	EventBlacklistType           = "blacklist"
	EventMaxSupplyType           = "max_supply"
	EventPausedType              = "paused"
	EventLocalEmergencyType      = "local_emergency"
	EventCollateralWhitelistType = "collateral_whitelist"
	EventAssetTransferType       = "asset_transfer"
)

func attr(key, value string, index bool) abci.EventAttribute {
	return abci.EventAttribute{Key: key, Value: value, Index: index}
}

func attrMap(ev abci.Event) map[string]string {
	m := make(map[string]string, len(ev.Attributes))
	for _, a := range ev.Attributes {
		m[a.Key] = a.Value
	}
	return m
}

func amountStr(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func parseAmount(s string) *uint256.Int {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil
	}
	return v
}

func parseAddress(s string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

type EventRole struct {
	Role    common.Hash    `json:"role"`
	Account common.Address `json:"account"`
	Sender  common.Address `json:"sender"`
	Reason  string         `json:"reason"`
	Granted bool           `json:"granted"`
}

func EncodeEventRole(event *EventRole) abci.Event {
	tp := EventRoleRevokedType
	if event.Granted {
		tp = EventRoleGrantedType
	}
	return abci.Event{
		Type: tp,
		Attributes: []abci.EventAttribute{
			attr("role", event.Role.Hex(), true),
			attr("account", event.Account.Hex(), true),
			attr("sender", event.Sender.Hex(), false),
			attr("reason", event.Reason, false),
		},
	}
}

func DecodeEventRole(originEvent abci.Event) *EventRole {
	if originEvent.Type != EventRoleGrantedType && originEvent.Type != EventRoleRevokedType {
		return nil
	}
	m := attrMap(originEvent)
	account, ok := parseAddress(m["account"])
	if !ok {
		return nil
	}
	sender, _ := parseAddress(m["sender"])
	return &EventRole{
		Role:    common.HexToHash(m["role"]),
		Account: account,
		Sender:  sender,
		Reason:  m["reason"],
		Granted: originEvent.Type == EventRoleGrantedType,
	}
}

type EventRoleChange struct {
	Change   uint64         `json:"change"`
	Role     common.Hash    `json:"role"`
	Account  common.Address `json:"account"`
	Grant    bool           `json:"grant"`
	Executed bool           `json:"executed"`
}

func EncodeEventRoleChange(event *EventRoleChange) abci.Event {
	tp := EventRoleChangeProposedType
	if event.Executed {
		tp = EventRoleChangeExecutedType
	}
	return abci.Event{
		Type: tp,
		Attributes: []abci.EventAttribute{
			attr("change", strconv.FormatUint(event.Change, 10), true),
			attr("role", event.Role.Hex(), false),
			attr("account", event.Account.Hex(), true),
			attr("grant", strconv.FormatBool(event.Grant), false),
		},
	}
}

type EventAuthorizedCaller struct {
	Caller  common.Address `json:"caller"`
	Allowed bool           `json:"allowed"`
}

func EncodeEventAuthorizedCaller(event *EventAuthorizedCaller) abci.Event {
	return abci.Event{
		Type: EventAuthorizedCallerType,
		Attributes: []abci.EventAttribute{
			attr("caller", event.Caller.Hex(), true),
			attr("allowed", strconv.FormatBool(event.Allowed), false),
		},
	}
}

type EventEmergencyMode struct {
	Active bool           `json:"active"`
	Admin  common.Address `json:"admin"`
}

func EncodeEventEmergencyMode(event *EventEmergencyMode) abci.Event {
	return abci.Event{
		Type: EventEmergencyModeType,
		Attributes: []abci.EventAttribute{
			attr("active", strconv.FormatBool(event.Active), false),
			attr("admin", event.Admin.Hex(), true),
		},
	}
}

type EventControllerUpdated struct {
	Previous common.Address `json:"previous"`
	Next     common.Address `json:"next"`
	Closed   bool           `json:"closed"`
}

func EncodeEventControllerUpdated(event *EventControllerUpdated) abci.Event {
	tp := EventControllerUpdatedType
	if event.Closed {
		tp = EventSetupClosedType
	}
	return abci.Event{
		Type: tp,
		Attributes: []abci.EventAttribute{
			attr("previous", event.Previous.Hex(), false),
			attr("next", event.Next.Hex(), true),
		},
	}
}

type EventProposal struct {
	ProposalIndex uint64         `json:"proposalIndex"`
	Proposer      common.Address `json:"proposer"`
	Kind          ProposalKind   `json:"kind"`
	Deadline      uint64         `json:"deadline"`
	ExecuteTime   uint64         `json:"executeTime"`
	Status        ProposalStatus `json:"status"`
	Description   string         `json:"description"`
}

func EncodeEventProposal(event *EventProposal) abci.Event {
	return abci.Event{
		Type: EventProposalCreatedType,
		Attributes: []abci.EventAttribute{
			attr("proposal", strconv.FormatUint(event.ProposalIndex, 10), true),
			attr("proposer", event.Proposer.Hex(), true),
			attr("kind", event.Kind.String(), false),
			attr("deadline", strconv.FormatUint(event.Deadline, 10), false),
			attr("executeTime", strconv.FormatUint(event.ExecuteTime, 10), false),
			attr("status", strconv.FormatUint(uint64(event.Status), 10), false),
			attr("description", event.Description, false),
		},
	}
}

func DecodeEventProposal(originEvent abci.Event) *EventProposal {
	m := attrMap(originEvent)
	event := &EventProposal{}
	var err error
	if event.ProposalIndex, err = strconv.ParseUint(m["proposal"], 10, 64); err != nil {
		return nil
	}
	proposer, ok := parseAddress(m["proposer"])
	if !ok {
		return nil
	}
	event.Proposer = proposer
	event.Kind = ParseProposalKind(m["kind"])
	if event.Deadline, err = strconv.ParseUint(m["deadline"], 10, 64); err != nil {
		return nil
	}
	if event.ExecuteTime, err = strconv.ParseUint(m["executeTime"], 10, 64); err != nil {
		return nil
	}
	status, err := strconv.ParseUint(m["status"], 10, 64)
	if err != nil {
		return nil
	}
	event.Status = ProposalStatus(status)
	event.Description = m["description"]
	return event
}

type EventVote struct {
	ProposalIndex uint64         `json:"proposalIndex"`
	Voter         common.Address `json:"voter"`
	Support       bool           `json:"support"`
	Weight        uint64         `json:"weight"`
	ForVotes      uint64         `json:"forVotes"`
	AgainstVotes  uint64         `json:"againstVotes"`
	Status        ProposalStatus `json:"status"`
}

func EncodeEventVote(event *EventVote) abci.Event {
	return abci.Event{
		Type: EventProposalVotedType,
		Attributes: []abci.EventAttribute{
			attr("proposal", strconv.FormatUint(event.ProposalIndex, 10), true),
			attr("voter", event.Voter.Hex(), true),
			attr("support", strconv.FormatBool(event.Support), false),
			attr("weight", strconv.FormatUint(event.Weight, 10), false),
			attr("for", strconv.FormatUint(event.ForVotes, 10), false),
			attr("against", strconv.FormatUint(event.AgainstVotes, 10), false),
			attr("status", strconv.FormatUint(uint64(event.Status), 10), false),
		},
	}
}

func DecodeEventVote(originEvent abci.Event) *EventVote {
	m := attrMap(originEvent)
	event := &EventVote{}
	var err error
	if event.ProposalIndex, err = strconv.ParseUint(m["proposal"], 10, 64); err != nil {
		return nil
	}
	voter, ok := parseAddress(m["voter"])
	if !ok {
		return nil
	}
	event.Voter = voter
	if event.Support, err = strconv.ParseBool(m["support"]); err != nil {
		return nil
	}
	if event.Weight, err = strconv.ParseUint(m["weight"], 10, 64); err != nil {
		return nil
	}
	if event.ForVotes, err = strconv.ParseUint(m["for"], 10, 64); err != nil {
		return nil
	}
	if event.AgainstVotes, err = strconv.ParseUint(m["against"], 10, 64); err != nil {
		return nil
	}
	status, err := strconv.ParseUint(m["status"], 10, 64)
	if err != nil {
		return nil
	}
	event.Status = ProposalStatus(status)
	return event
}

type EventProposalExecuted struct {
	ProposalIndex uint64         `json:"proposalIndex"`
	Kind          ProposalKind   `json:"kind"`
	Executor      common.Address `json:"executor"`
}

func EncodeEventProposalExecuted(event *EventProposalExecuted) abci.Event {
	return abci.Event{
		Type: EventProposalExecutedType,
		Attributes: []abci.EventAttribute{
			attr("proposal", strconv.FormatUint(event.ProposalIndex, 10), true),
			attr("kind", event.Kind.String(), false),
			attr("executor", event.Executor.Hex(), false),
		},
	}
}

func DecodeEventProposalExecuted(originEvent abci.Event) *EventProposalExecuted {
	m := attrMap(originEvent)
	index, err := strconv.ParseUint(m["proposal"], 10, 64)
	if err != nil {
		return nil
	}
	executor, _ := parseAddress(m["executor"])
	return &EventProposalExecuted{
		ProposalIndex: index,
		Kind:          ParseProposalKind(m["kind"]),
		Executor:      executor,
	}
}

type EventCouncil struct {
	Member common.Address `json:"member"`
	Power  uint64         `json:"power"`
	Added  bool           `json:"added"`
	Total  uint64         `json:"total"`
}

func EncodeEventCouncil(event *EventCouncil) abci.Event {
	tp := EventCouncilRemovedType
	if event.Added {
		tp = EventCouncilAddedType
	}
	return abci.Event{
		Type: tp,
		Attributes: []abci.EventAttribute{
			attr("member", event.Member.Hex(), true),
			attr("power", strconv.FormatUint(event.Power, 10), false),
			attr("total", strconv.FormatUint(event.Total, 10), false),
		},
	}
}

func DecodeEventCouncil(originEvent abci.Event) *EventCouncil {
	if originEvent.Type != EventCouncilAddedType && originEvent.Type != EventCouncilRemovedType {
		return nil
	}
	m := attrMap(originEvent)
	member, ok := parseAddress(m["member"])
	if !ok {
		return nil
	}
	power, err := strconv.ParseUint(m["power"], 10, 64)
	if err != nil {
		return nil
	}
	total, err := strconv.ParseUint(m["total"], 10, 64)
	if err != nil {
		return nil
	}
	return &EventCouncil{
		Member: member,
		Power:  power,
		Added:  originEvent.Type == EventCouncilAddedType,
		Total:  total,
	}
}

type EventCouncilConfig struct {
	VotingPeriod  uint64 `json:"votingPeriod"`
	TimeLock      uint64 `json:"timeLock"`
	QuorumPercent uint64 `json:"quorumPercent"`
}

func EncodeEventCouncilConfig(event *EventCouncilConfig) abci.Event {
	return abci.Event{
		Type: EventCouncilConfigType,
		Attributes: []abci.EventAttribute{
			attr("votingPeriod", strconv.FormatUint(event.VotingPeriod, 10), false),
			attr("timeLock", strconv.FormatUint(event.TimeLock, 10), false),
			attr("quorum", strconv.FormatUint(event.QuorumPercent, 10), false),
		},
	}
}

type EventCollateral struct {
	User       common.Address `json:"user"`
	Asset      common.Address `json:"asset"`
	Collateral *uint256.Int   `json:"collateral"`
	KHRT       *uint256.Int   `json:"khrt"`
	Deposit    bool           `json:"deposit"`
}

func EncodeEventCollateral(event *EventCollateral) abci.Event {
	tp := EventCollateralWithdrawnType
	if event.Deposit {
		tp = EventCollateralDepositedType
	}
	return abci.Event{
		Type: tp,
		Attributes: []abci.EventAttribute{
			attr("user", event.User.Hex(), true),
			attr("asset", event.Asset.Hex(), true),
			attr("collateral", amountStr(event.Collateral), false),
			attr("khrt", amountStr(event.KHRT), false),
		},
	}
}

func DecodeEventCollateral(originEvent abci.Event) *EventCollateral {
	if originEvent.Type != EventCollateralDepositedType && originEvent.Type != EventCollateralWithdrawnType {
		return nil
	}
	m := attrMap(originEvent)
	user, ok := parseAddress(m["user"])
	if !ok {
		return nil
	}
	asset, ok := parseAddress(m["asset"])
	if !ok {
		return nil
	}
	collateral := parseAmount(m["collateral"])
	khrt := parseAmount(m["khrt"])
	if collateral == nil || khrt == nil {
		return nil
	}
	return &EventCollateral{
		User:       user,
		Asset:      asset,
		Collateral: collateral,
		KHRT:       khrt,
		Deposit:    originEvent.Type == EventCollateralDepositedType,
	}
}

type EventAssetRatio struct {
	Asset common.Address `json:"asset"`
	Ratio *uint256.Int   `json:"ratio"`
}

func EncodeEventAssetRatio(event *EventAssetRatio) abci.Event {
	return abci.Event{
		Type: EventAssetRatioType,
		Attributes: []abci.EventAttribute{
			attr("asset", event.Asset.Hex(), true),
			attr("ratio", amountStr(event.Ratio), false),
		},
	}
}

// EventTransfer covers transfer, mint and burn; mint has a zero From, burn a
// zero To.
type EventTransfer struct {
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
}

func EncodeEventTransfer(event *EventTransfer) abci.Event {
	tp := EventTransferType
	switch {
	case event.From == (common.Address{}):
		tp = EventMintedType
	case event.To == (common.Address{}):
		tp = EventBurnedType
	}
	return abci.Event{
		Type: tp,
		Attributes: []abci.EventAttribute{
			attr("from", event.From.Hex(), true),
			attr("to", event.To.Hex(), true),
			attr("amount", amountStr(event.Amount), false),
		},
	}
}

func DecodeEventTransfer(originEvent abci.Event) *EventTransfer {
	switch originEvent.Type {
	case EventTransferType, EventMintedType, EventBurnedType:
	default:
		return nil
	}
	m := attrMap(originEvent)
	from, ok := parseAddress(m["from"])
	if !ok {
		return nil
	}
	to, ok := parseAddress(m["to"])
	if !ok {
		return nil
	}
	amount := parseAmount(m["amount"])
	if amount == nil {
		return nil
	}
	return &EventTransfer{From: from, To: to, Amount: amount}
}

type EventApproval struct {
	Owner   common.Address `json:"owner"`
	Spender common.Address `json:"spender"`
	Amount  *uint256.Int   `json:"amount"`
}

func EncodeEventApproval(event *EventApproval) abci.Event {
	return abci.Event{
		Type: EventApprovalType,
		Attributes: []abci.EventAttribute{
			attr("owner", event.Owner.Hex(), true),
			attr("spender", event.Spender.Hex(), true),
			attr("amount", amountStr(event.Amount), false),
		},
	}
}

type EventBlacklist struct {
	Account     common.Address `json:"account"`
	Blacklisted bool           `json:"blacklisted"`
	Sender      common.Address `json:"sender"`
}

func EncodeEventBlacklist(event *EventBlacklist) abci.Event {
	return abci.Event{
		Type: EventBlacklistType,
		Attributes: []abci.EventAttribute{
			attr("account", event.Account.Hex(), true),
			attr("blacklisted", strconv.FormatBool(event.Blacklisted), false),
			attr("sender", event.Sender.Hex(), false),
		},
	}
}

type EventMaxSupply struct {
	Previous *uint256.Int `json:"previous"`
	Next     *uint256.Int `json:"next"`
}

func EncodeEventMaxSupply(event *EventMaxSupply) abci.Event {
	return abci.Event{
		Type: EventMaxSupplyType,
		Attributes: []abci.EventAttribute{
			attr("previous", amountStr(event.Previous), false),
			attr("next", amountStr(event.Next), false),
		},
	}
}

// EventSwitch reports pause and local emergency flips.
type EventSwitch struct {
	Type   string         `json:"type"`
	Active bool           `json:"active"`
	Sender common.Address `json:"sender"`
}

func EncodeEventSwitch(event *EventSwitch) abci.Event {
	return abci.Event{
		Type: event.Type,
		Attributes: []abci.EventAttribute{
			attr("active", strconv.FormatBool(event.Active), false),
			attr("sender", event.Sender.Hex(), true),
		},
	}
}

type EventCollateralWhitelist struct {
	Asset   common.Address `json:"asset"`
	Allowed bool           `json:"allowed"`
}

func EncodeEventCollateralWhitelist(event *EventCollateralWhitelist) abci.Event {
	return abci.Event{
		Type: EventCollateralWhitelistType,
		Attributes: []abci.EventAttribute{
			attr("asset", event.Asset.Hex(), true),
			attr("allowed", strconv.FormatBool(event.Allowed), false),
		},
	}
}

type EventAssetTransfer struct {
	Asset  common.Address `json:"asset"`
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
}

func EncodeEventAssetTransfer(event *EventAssetTransfer) abci.Event {
	return abci.Event{
		Type: EventAssetTransferType,
		Attributes: []abci.EventAttribute{
			attr("asset", event.Asset.Hex(), true),
			attr("from", event.From.Hex(), true),
			attr("to", event.To.Hex(), true),
			attr("amount", amountStr(event.Amount), false),
		},
	}
}
