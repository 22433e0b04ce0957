package types

type ProposalStatus uint64

const (
	ProposalStatusPending   ProposalStatus = 1
	ProposalStatusActive    ProposalStatus = 2
	ProposalStatusDefeated  ProposalStatus = 3
	ProposalStatusSucceeded ProposalStatus = 4
	ProposalStatusExecuted  ProposalStatus = 5
)

func (s ProposalStatus) String() string {
	switch s {
	case ProposalStatusPending:
		return "pending"
	case ProposalStatusActive:
		return "active"
	case ProposalStatusDefeated:
		return "defeated"
	case ProposalStatusSucceeded:
		return "succeeded"
	case ProposalStatusExecuted:
		return "executed"
	}
	return "unknown"
}

// Decided reports whether the vote outcome is final.
func (s ProposalStatus) Decided() bool {
	return s == ProposalStatusDefeated || s == ProposalStatusSucceeded || s == ProposalStatusExecuted
}

type ProposalKind uint8

const (
	ProposalKindUnknown      ProposalKind = 0
	ProposalKindRoleChange   ProposalKind = 1
	ProposalKindMemberAdd    ProposalKind = 2
	ProposalKindMemberRemove ProposalKind = 3
	ProposalKindExecution    ProposalKind = 4
)

func (k ProposalKind) String() string {
	switch k {
	case ProposalKindRoleChange:
		return "role_change"
	case ProposalKindMemberAdd:
		return "member_add"
	case ProposalKindMemberRemove:
		return "member_remove"
	case ProposalKindExecution:
		return "execution"
	}
	return "unknown"
}

func ParseProposalKind(s string) ProposalKind {
	for _, k := range []ProposalKind{ProposalKindRoleChange, ProposalKindMemberAdd, ProposalKindMemberRemove, ProposalKindExecution} {
		if k.String() == s {
			return k
		}
	}
	return ProposalKindUnknown
}
