package main

import (
	"fmt"
	"strconv"

	"github.com/calehh/khrt-app/tx"
	"github.com/calehh/khrt-app/types"
	"github.com/spf13/cobra"
)

var councilCmd = &cobra.Command{
	Use:   "council",
	Short: "Council proposals and votes",
}

type proposeArguments struct {
	Role        string
	Account     string
	Grant       bool
	Power       uint64
	CallType    string
	Call        string
	Description string
}

var proposeArgs proposeArguments

// buildProposal assembles the payload for kind from the propose flags. An
// execution proposal wraps one transaction body that the council sends to
// the module owning the call type.
func buildProposal(kind types.ProposalKind) (*tx.ProposeTx, error) {
	p := &tx.ProposeTx{Kind: kind, Description: proposeArgs.Description}
	switch kind {
	case types.ProposalKindRoleChange, types.ProposalKindMemberAdd, types.ProposalKindMemberRemove:
		account, err := parseAddr(proposeArgs.Account)
		if err != nil {
			return nil, err
		}
		p.Account = account
		p.Role = proposeArgs.Role
		p.Grant = proposeArgs.Grant
		p.Power = proposeArgs.Power
	case types.ProposalKindExecution:
		tp, ok := tx.ParseTxType(proposeArgs.CallType)
		if !ok {
			return nil, fmt.Errorf("unknown call type %q, one of: %s", proposeArgs.CallType, txTypeList())
		}
		target, ok := tp.Target()
		if !ok {
			return nil, fmt.Errorf("%s cannot be executed by the council", tp)
		}
		body, err := tx.DecodeBody(tp, []byte(proposeArgs.Call))
		if err != nil {
			return nil, err
		}
		calldata, err := tx.NewCall(tp, body)
		if err != nil {
			return nil, err
		}
		p.Target = target
		p.Calldata = calldata
	default:
		return nil, fmt.Errorf("unknown proposal kind")
	}
	return p, nil
}

func init() {
	propose := txCommand("propose <kind>", "open a proposal: role_change, member_add, member_remove or execution", 1, tx.KHRTTxTypePropose, func(args []string) (any, error) {
		kind := types.ParseProposalKind(args[0])
		if kind == types.ProposalKindUnknown {
			return nil, fmt.Errorf("unknown proposal kind %q", args[0])
		}
		return buildProposal(kind)
	})
	propose.Flags().StringVar(&proposeArgs.Role, "role", "", "role for role_change")
	propose.Flags().StringVar(&proposeArgs.Account, "account", "", "account for role and member changes")
	propose.Flags().BoolVar(&proposeArgs.Grant, "grant", true, "grant (true) or revoke (false) for role_change")
	propose.Flags().Uint64Var(&proposeArgs.Power, "power", types.DefaultPower, "voting power for member_add")
	propose.Flags().StringVar(&proposeArgs.CallType, "call-type", "", "tx type run by an execution proposal")
	propose.Flags().StringVar(&proposeArgs.Call, "call", "{}", "JSON body of the execution call")
	propose.Flags().StringVar(&proposeArgs.Description, "description", "", "proposal description")

	councilCmd.AddCommand(
		propose,
		txCommand("vote <proposal> <support>", "vote on an active proposal", 2, tx.KHRTTxTypeVote, func(args []string) (any, error) {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return nil, err
			}
			support, err := strconv.ParseBool(args[1])
			if err != nil {
				return nil, err
			}
			return &tx.VoteTx{Proposal: id, Support: support}, nil
		}),
		txCommand("execute <proposal>", "execute a succeeded proposal after its time lock", 1, tx.KHRTTxTypeExecute, func(args []string) (any, error) {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return nil, err
			}
			return &tx.ExecuteTx{Proposal: id}, nil
		}),
		txCommand("config <voting period> <time lock> <quorum percent>", "update council parameters", 3, tx.KHRTTxTypeUpdateCouncilConfig, func(args []string) (any, error) {
			var vals [3]uint64
			for i, a := range args {
				v, err := strconv.ParseUint(a, 10, 64)
				if err != nil {
					return nil, err
				}
				vals[i] = v
			}
			return &tx.CouncilConfigTx{VotingPeriod: vals[0], TimeLock: vals[1], QuorumPercent: vals[2]}, nil
		}),
	)
}
